package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/flockcast/internal/models"
)

func mustStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func addLot(t *testing.T, s *Storage, id string, category models.Category, initial int) *models.Lot {
	t.Helper()
	lot := &models.Lot{
		ID:           id,
		Name:         "Galpon " + id,
		Category:     category,
		BirthDate:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		InitialCount: initial,
		CurrentCount: initial,
		Active:       true,
	}
	require.NoError(t, s.AddLot(context.Background(), lot))
	return lot
}

func TestStorage_AddAndGetLot(t *testing.T) {
	s := mustStorage(t)
	ctx := context.Background()
	lot := addLot(t, s, "lot-1", models.CategoryBroiler, 500)

	got, err := s.GetLot(ctx, "lot-1")
	require.NoError(t, err)
	assert.Equal(t, lot.ID, got.ID)
	assert.Equal(t, models.CategoryBroiler, got.Category)
	assert.True(t, got.BirthDate.Equal(lot.BirthDate))
	assert.Equal(t, 500, got.CurrentCount)
	assert.True(t, got.Active)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStorage_ListLotsOrdersByInstantAcrossOffsets(t *testing.T) {
	s := mustStorage(t)
	ctx := context.Background()

	// "east" reads earlier as text but was born two hours after "west".
	east := time.Date(2026, 9, 1, 23, 0, 0, 0, time.FixedZone("EST", -5*3600))
	west := time.Date(2026, 9, 2, 2, 0, 0, 0, time.UTC)
	for id, birth := range map[string]time.Time{"east": east, "west": west} {
		require.NoError(t, s.AddLot(ctx, &models.Lot{
			ID: id, Category: models.CategoryGrower, BirthDate: birth, InitialCount: 10, CurrentCount: 10, Active: true,
		}))
	}

	lots, err := s.ListLots(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, "west", lots[0].ID)
	assert.Equal(t, "east", lots[1].ID)
	assert.True(t, lots[1].BirthDate.Equal(east))
	_, offset := lots[1].BirthDate.Zone()
	assert.Equal(t, -5*3600, offset)
}

func TestStorage_AddLotAssignsID(t *testing.T) {
	s := mustStorage(t)
	lot := &models.Lot{
		Category:     models.CategoryLayer,
		BirthDate:    time.Now().AddDate(0, 0, -10),
		InitialCount: 10,
		CurrentCount: 10,
	}
	require.NoError(t, s.AddLot(context.Background(), lot))
	assert.NotEmpty(t, lot.ID)
}

func TestStorage_AddLotRejectsInvalid(t *testing.T) {
	s := mustStorage(t)
	err := s.AddLot(context.Background(), &models.Lot{ID: "x", Category: "DUCK", BirthDate: time.Now(), InitialCount: 1})
	assert.Error(t, err)
}

func TestStorage_GetLotNotFound(t *testing.T) {
	s := mustStorage(t)
	_, err := s.GetLot(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStorage_ListLots(t *testing.T) {
	s := mustStorage(t)
	ctx := context.Background()
	addLot(t, s, "a", models.CategoryBroiler, 100)
	addLot(t, s, "b", models.CategoryBroiler, 100)
	addLot(t, s, "c", models.CategoryLayer, 100)
	require.NoError(t, s.CloseLot(ctx, "b"))

	all, err := s.ListLots(ctx, "", false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	broilers, err := s.ListLots(ctx, models.CategoryBroiler, false)
	require.NoError(t, err)
	assert.Len(t, broilers, 2)

	active, err := s.ListLots(ctx, models.CategoryBroiler, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].ID)
}

func TestStorage_UpdateAndCloseLot(t *testing.T) {
	s := mustStorage(t)
	ctx := context.Background()
	lot := addLot(t, s, "lot-1", models.CategoryGrower, 100)

	lot.Name = "renamed"
	require.NoError(t, s.UpdateLot(ctx, lot))
	got, err := s.GetLot(ctx, "lot-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	assert.True(t, errors.Is(s.CloseLot(ctx, "nope"), ErrNotFound))

	missing := *lot
	missing.ID = "nope"
	assert.True(t, errors.Is(s.UpdateLot(ctx, &missing), ErrNotFound))
}

func TestStorage_WeightSamplesOrderedByAge(t *testing.T) {
	s := mustStorage(t)
	ctx := context.Background()
	addLot(t, s, "lot-1", models.CategoryBroiler, 100)

	for _, w := range []models.WeightSample{
		{LotID: "lot-1", AgeInDays: 21, AverageWeight: 0.9},
		{LotID: "lot-1", AgeInDays: 7, AverageWeight: 0.2},
		{LotID: "lot-1", AgeInDays: 14, AverageWeight: 0.5},
	} {
		w := w
		require.NoError(t, s.AddWeightSample(ctx, &w))
		assert.NotEmpty(t, w.ID)
	}

	got, err := s.GetWeightSamples(ctx, "lot-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{7, 14, 21}, []int{got[0].AgeInDays, got[1].AgeInDays, got[2].AgeInDays})
}

func TestStorage_WeightSampleUnknownLot(t *testing.T) {
	s := mustStorage(t)
	err := s.AddWeightSample(context.Background(), &models.WeightSample{LotID: "ghost", AgeInDays: 1, AverageWeight: 0.1})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStorage_MortalityDecrementsHeadCount(t *testing.T) {
	s := mustStorage(t)
	ctx := context.Background()
	addLot(t, s, "lot-1", models.CategoryBroiler, 100)

	now := time.Now()
	require.NoError(t, s.AddMortalityEvent(ctx, &models.MortalityEvent{LotID: "lot-1", Count: 3, Date: now.Add(-time.Hour)}))
	require.NoError(t, s.AddMortalityEvent(ctx, &models.MortalityEvent{LotID: "lot-1", Count: 2, Date: now, Cause: "heat"}))

	lot, err := s.GetLot(ctx, "lot-1")
	require.NoError(t, err)
	assert.Equal(t, 95, lot.CurrentCount)

	events, err := s.GetMortalityEvents(ctx, "lot-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 5, models.TotalDeaths(events))
	assert.Equal(t, "heat", events[1].Cause)
}

func TestStorage_MortalityAboveHeadCountRejected(t *testing.T) {
	s := mustStorage(t)
	ctx := context.Background()
	addLot(t, s, "lot-1", models.CategoryBroiler, 10)

	err := s.AddMortalityEvent(ctx, &models.MortalityEvent{LotID: "lot-1", Count: 11, Date: time.Now()})
	require.Error(t, err)

	lot, err := s.GetLot(ctx, "lot-1")
	require.NoError(t, err)
	assert.Equal(t, 10, lot.CurrentCount)

	events, err := s.GetMortalityEvents(ctx, "lot-1")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStorage_ExpensesAndSales(t *testing.T) {
	s := mustStorage(t)
	ctx := context.Background()
	addLot(t, s, "lot-1", models.CategoryBroiler, 10)

	total, err := s.TotalExpense(ctx, "lot-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, total)

	require.NoError(t, s.AddExpense(ctx, &models.Expense{LotID: "lot-1", Amount: 120.5, Concept: "feed"}))
	require.NoError(t, s.AddExpense(ctx, &models.Expense{LotID: "lot-1", Amount: 30, Concept: "vaccines"}))
	require.NoError(t, s.AddSale(ctx, &models.Sale{LotID: "lot-1", Amount: 400, Units: 8}))

	total, err = s.TotalExpense(ctx, "lot-1")
	require.NoError(t, err)
	assert.InDelta(t, 150.5, total, 1e-9)

	sales, err := s.TotalSales(ctx, "lot-1")
	require.NoError(t, err)
	assert.InDelta(t, 400.0, sales, 1e-9)

	assert.True(t, errors.Is(s.AddExpense(ctx, &models.Expense{LotID: "ghost", Amount: 1, Concept: "x"}), ErrNotFound))
}

func TestStorage_LoadForecastInput(t *testing.T) {
	s := mustStorage(t)
	ctx := context.Background()
	addLot(t, s, "lot-1", models.CategoryBroiler, 100)
	require.NoError(t, s.AddWeightSample(ctx, &models.WeightSample{LotID: "lot-1", AgeInDays: 7, AverageWeight: 0.2}))
	require.NoError(t, s.AddMortalityEvent(ctx, &models.MortalityEvent{LotID: "lot-1", Count: 4, Date: time.Now()}))
	require.NoError(t, s.AddExpense(ctx, &models.Expense{LotID: "lot-1", Amount: 80, Concept: "feed"}))

	in, err := s.LoadForecastInput(ctx, "lot-1")
	require.NoError(t, err)
	assert.Equal(t, 96, in.Lot.CurrentCount)
	assert.Len(t, in.Samples, 1)
	assert.Len(t, in.Events, 1)
	assert.Equal(t, 80.0, in.CumulativeExpense)

	_, err = s.LoadForecastInput(ctx, "ghost")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStorage_ExportLot(t *testing.T) {
	s := mustStorage(t)
	ctx := context.Background()
	addLot(t, s, "lot-1", models.CategoryLayer, 50)
	require.NoError(t, s.AddWeightSample(ctx, &models.WeightSample{LotID: "lot-1", AgeInDays: 30, AverageWeight: 0.9}))
	require.NoError(t, s.AddSale(ctx, &models.Sale{LotID: "lot-1", Amount: 75, Units: 5}))

	path := filepath.Join(t.TempDir(), "exports", "lot-1.json")
	require.NoError(t, s.ExportLot(ctx, "lot-1", path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var out ExportFile
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "lot-1", out.Lot.ID)
	assert.Len(t, out.Weighings, 1)
	assert.Equal(t, 75.0, out.TotalSales)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStorage_FileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "flockcast.db")
	s, err := New(path)
	require.NoError(t, err)
	addLot(t, s, "lot-1", models.CategoryGrower, 20)
	require.NoError(t, s.Close())

	s2, err := New(path)
	require.NoError(t, err)
	defer s2.Close()
	lot, err := s2.GetLot(context.Background(), "lot-1")
	require.NoError(t, err)
	assert.Equal(t, 20, lot.InitialCount)
}
