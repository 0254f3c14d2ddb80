// Package storage provides sqlite-backed persistence for lots and the records
// captured against them: weighings, mortality events, expenses and sales.
//
// The forecaster never talks to storage directly; callers use LoadForecastInput
// to assemble a read-only snapshot of a lot and hand it to the forecast package.
// Lot exports are written atomically (temp file + rename) as JSON.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/rewired-gh/flockcast/internal/models"
)

// ErrNotFound is returned when a lot does not exist.
var ErrNotFound = errors.New("not found")

// Timestamps keep the writer's offset so calendar days survive a round trip.
// Queries order them with julianday(), which compares instants.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS lots (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL,
	birth_date    TEXT NOT NULL,
	initial_count INTEGER NOT NULL,
	current_count INTEGER NOT NULL,
	active        INTEGER NOT NULL DEFAULT 1,
	created_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS weight_samples (
	id             TEXT PRIMARY KEY,
	lot_id         TEXT NOT NULL REFERENCES lots(id) ON DELETE CASCADE,
	age_in_days    INTEGER NOT NULL,
	average_weight REAL NOT NULL,
	recorded_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_weight_samples_lot ON weight_samples(lot_id, age_in_days);
CREATE TABLE IF NOT EXISTS mortality_events (
	id     TEXT PRIMARY KEY,
	lot_id TEXT NOT NULL REFERENCES lots(id) ON DELETE CASCADE,
	count  INTEGER NOT NULL,
	date   TEXT NOT NULL,
	cause  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_mortality_events_lot ON mortality_events(lot_id, date);
CREATE TABLE IF NOT EXISTS expenses (
	id      TEXT PRIMARY KEY,
	lot_id  TEXT NOT NULL REFERENCES lots(id) ON DELETE CASCADE,
	amount  REAL NOT NULL,
	concept TEXT NOT NULL,
	date    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sales (
	id     TEXT PRIMARY KEY,
	lot_id TEXT NOT NULL REFERENCES lots(id) ON DELETE CASCADE,
	amount REAL NOT NULL,
	units  INTEGER NOT NULL,
	date   TEXT NOT NULL
);
`

// Storage is a sqlite-backed store. It is safe for concurrent use.
type Storage struct {
	db   *sql.DB
	path string
}

// ForecastInput is everything the forecaster needs for one lot.
type ForecastInput struct {
	Lot               models.Lot
	Samples           []models.WeightSample
	Events            []models.MortalityEvent
	CumulativeExpense float64
}

// New opens (creating if needed) the sqlite database at dbPath and applies the schema.
// Use ":memory:" for a private in-memory database.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "flockcast", "flockcast.db")
	}

	memory := dbPath == ":memory:"
	dsn := dbPath + "?_pragma=foreign_keys(1)"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn += "&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Storage{db: db, path: dbPath}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database location.
func (s *Storage) Path() string {
	return s.path
}

// AddLot inserts a lot, assigning an ID and creation time when missing.
func (s *Storage) AddLot(ctx context.Context, lot *models.Lot) error {
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}
	if lot.CreatedAt.IsZero() {
		lot.CreatedAt = time.Now()
	}
	if err := lot.Validate(); err != nil {
		return fmt.Errorf("invalid lot: %w", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lots (id, name, category, birth_date, initial_count, current_count, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		lot.ID, lot.Name, string(lot.Category), formatTime(lot.BirthDate),
		lot.InitialCount, lot.CurrentCount, boolToInt(lot.Active), formatTime(lot.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lot %s: %w", lot.ID, err)
	}
	return nil
}

// GetLot retrieves a lot by ID.
func (s *Storage) GetLot(ctx context.Context, id string) (*models.Lot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, category, birth_date, initial_count, current_count, active, created_at
		 FROM lots WHERE id = ?`, id)
	lot, err := scanLot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read lot %s: %w", id, err)
	}
	return lot, nil
}

// ListLots returns lots ordered by birth date. An empty category matches all.
func (s *Storage) ListLots(ctx context.Context, category models.Category, activeOnly bool) ([]models.Lot, error) {
	query := `SELECT id, name, category, birth_date, initial_count, current_count, active, created_at FROM lots`
	var (
		where []string
		args  []interface{}
	)
	if category != "" {
		where = append(where, "category = ?")
		args = append(args, string(category))
	}
	if activeOnly {
		where = append(where, "active = 1")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY julianday(birth_date), id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	defer rows.Close()

	lots := []models.Lot{}
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		lots = append(lots, *lot)
	}
	return lots, rows.Err()
}

// UpdateLot overwrites an existing lot.
func (s *Storage) UpdateLot(ctx context.Context, lot *models.Lot) error {
	if err := lot.Validate(); err != nil {
		return fmt.Errorf("invalid lot: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE lots SET name = ?, category = ?, birth_date = ?, initial_count = ?, current_count = ?, active = ?
		 WHERE id = ?`,
		lot.Name, string(lot.Category), formatTime(lot.BirthDate), lot.InitialCount, lot.CurrentCount,
		boolToInt(lot.Active), lot.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lot %s: %w", lot.ID, err)
	}
	return expectOneRow(res, lot.ID)
}

// CloseLot marks a lot inactive (sold or culled).
func (s *Storage) CloseLot(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE lots SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to close lot %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

// AddWeightSample records a weighing for an existing lot.
func (s *Storage) AddWeightSample(ctx context.Context, sample *models.WeightSample) error {
	if err := sample.Validate(); err != nil {
		return fmt.Errorf("invalid weight sample: %w", err)
	}
	if err := s.ensureLot(ctx, sample.LotID); err != nil {
		return err
	}
	if sample.ID == "" {
		sample.ID = uuid.New().String()
	}
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO weight_samples (id, lot_id, age_in_days, average_weight, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		sample.ID, sample.LotID, sample.AgeInDays, sample.AverageWeight, formatTime(sample.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert weight sample: %w", err)
	}
	return nil
}

// GetWeightSamples returns a lot's weighings ordered by age.
func (s *Storage) GetWeightSamples(ctx context.Context, lotID string) ([]models.WeightSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lot_id, age_in_days, average_weight, recorded_at
		 FROM weight_samples WHERE lot_id = ? ORDER BY age_in_days, julianday(recorded_at)`, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query weight samples: %w", err)
	}
	defer rows.Close()

	samples := []models.WeightSample{}
	for rows.Next() {
		var (
			w        models.WeightSample
			recorded string
		)
		if err := rows.Scan(&w.ID, &w.LotID, &w.AgeInDays, &w.AverageWeight, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan weight sample: %w", err)
		}
		if w.RecordedAt, err = parseTime(recorded); err != nil {
			return nil, err
		}
		samples = append(samples, w)
	}
	return samples, rows.Err()
}

// AddMortalityEvent records deaths and decrements the lot's current count in
// the same transaction. Counts above the remaining head count are rejected.
func (s *Storage) AddMortalityEvent(ctx context.Context, event *models.MortalityEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid mortality event: %w", err)
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int
	err = tx.QueryRowContext(ctx, `SELECT current_count FROM lots WHERE id = ?`, event.LotID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lot %s: %w", event.LotID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read lot %s: %w", event.LotID, err)
	}
	if event.Count > current {
		return fmt.Errorf("mortality count %d exceeds current head count %d of lot %s", event.Count, current, event.LotID)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO mortality_events (id, lot_id, count, date, cause) VALUES (?, ?, ?, ?, ?)`,
		event.ID, event.LotID, event.Count, formatTime(event.Date), event.Cause,
	); err != nil {
		return fmt.Errorf("failed to insert mortality event: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE lots SET current_count = current_count - ? WHERE id = ?`, event.Count, event.LotID,
	); err != nil {
		return fmt.Errorf("failed to update head count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mortality event: %w", err)
	}
	return nil
}

// GetMortalityEvents returns a lot's mortality events ordered by date.
func (s *Storage) GetMortalityEvents(ctx context.Context, lotID string) ([]models.MortalityEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lot_id, count, date, cause FROM mortality_events WHERE lot_id = ? ORDER BY julianday(date), id`, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mortality events: %w", err)
	}
	defer rows.Close()

	events := []models.MortalityEvent{}
	for rows.Next() {
		var (
			e    models.MortalityEvent
			date string
		)
		if err := rows.Scan(&e.ID, &e.LotID, &e.Count, &date, &e.Cause); err != nil {
			return nil, fmt.Errorf("failed to scan mortality event: %w", err)
		}
		if e.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// AddExpense books a cost against a lot.
func (s *Storage) AddExpense(ctx context.Context, expense *models.Expense) error {
	if err := expense.Validate(); err != nil {
		return fmt.Errorf("invalid expense: %w", err)
	}
	if err := s.ensureLot(ctx, expense.LotID); err != nil {
		return err
	}
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (id, lot_id, amount, concept, date) VALUES (?, ?, ?, ?, ?)`,
		expense.ID, expense.LotID, expense.Amount, expense.Concept, formatTime(expense.Date),
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

// TotalExpense sums the expenses booked against a lot.
func (s *Storage) TotalExpense(ctx context.Context, lotID string) (float64, error) {
	return s.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE lot_id = ?`, lotID)
}

// AddSale books revenue against a lot.
func (s *Storage) AddSale(ctx context.Context, sale *models.Sale) error {
	if err := sale.Validate(); err != nil {
		return fmt.Errorf("invalid sale: %w", err)
	}
	if err := s.ensureLot(ctx, sale.LotID); err != nil {
		return err
	}
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	if sale.Date.IsZero() {
		sale.Date = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sales (id, lot_id, amount, units, date) VALUES (?, ?, ?, ?, ?)`,
		sale.ID, sale.LotID, sale.Amount, sale.Units, formatTime(sale.Date),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

// TotalSales sums the sales booked against a lot.
func (s *Storage) TotalSales(ctx context.Context, lotID string) (float64, error) {
	return s.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM sales WHERE lot_id = ?`, lotID)
}

// LoadForecastInput gathers a lot with its weighings, deaths and expense total.
func (s *Storage) LoadForecastInput(ctx context.Context, lotID string) (*ForecastInput, error) {
	lot, err := s.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	samples, err := s.GetWeightSamples(ctx, lotID)
	if err != nil {
		return nil, err
	}
	events, err := s.GetMortalityEvents(ctx, lotID)
	if err != nil {
		return nil, err
	}
	expense, err := s.TotalExpense(ctx, lotID)
	if err != nil {
		return nil, err
	}
	return &ForecastInput{
		Lot:               *lot,
		Samples:           samples,
		Events:            events,
		CumulativeExpense: expense,
	}, nil
}

func (s *Storage) ensureLot(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM lots WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up lot %s: %w", id, err)
	}
	return nil
}

func (s *Storage) sum(ctx context.Context, query, lotID string) (float64, error) {
	var total float64
	if err := s.db.QueryRowContext(ctx, query, lotID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum for lot %s: %w", lotID, err)
	}
	return total, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLot(row scanner) (*models.Lot, error) {
	var (
		lot              models.Lot
		category         string
		birth, createdAt string
		active           int
	)
	if err := row.Scan(&lot.ID, &lot.Name, &category, &birth, &lot.InitialCount, &lot.CurrentCount, &active, &createdAt); err != nil {
		return nil, err
	}
	lot.Category = models.Category(category)
	lot.Active = active != 0

	var err error
	if lot.BirthDate, err = parseTime(birth); err != nil {
		return nil, err
	}
	if lot.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &lot, nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("lot %s: %w", id, ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
