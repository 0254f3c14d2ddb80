package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/flockcast/internal/forecast"
	"github.com/rewired-gh/flockcast/internal/models"
)

const dateLayout = "2006-01-02"

var (
	lotID       string
	lotName     string
	lotCategory string
	lotBirth    string
	lotCount    int
	activeOnly  bool

	weighAge    int
	weighWeight float64

	recordDate   string
	deathCount   int
	deathCause   string
	amount       float64
	expenseTopic string
	saleUnits    int
)

// lotCmd groups lot management subcommands
var lotCmd = &cobra.Command{
	Use:   "lot",
	Short: "Manage poultry lots",
	Long: `Create, list and close lots.

Available subcommands:
  add   - Register a new lot
  list  - List lots
  close - Mark a lot as no longer active`,
}

var lotAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new lot",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := models.ParseCategory(lotCategory)
		if err != nil {
			return err
		}
		birth, err := parseDate(lotBirth)
		if err != nil {
			return fmt.Errorf("invalid --birth: %w", err)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)

		lot := &models.Lot{
			ID:           lotID,
			Name:         lotName,
			Category:     category,
			BirthDate:    birth,
			InitialCount: lotCount,
			CurrentCount: lotCount,
			Active:       true,
		}
		if err := store.AddLot(cmd.Context(), lot); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), lot.ID)
		return nil
	},
}

var lotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List lots",
	RunE: func(cmd *cobra.Command, args []string) error {
		var category models.Category
		if lotCategory != "" {
			c, err := models.ParseCategory(lotCategory)
			if err != nil {
				return err
			}
			category = c
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)

		lots, err := store.ListLots(cmd.Context(), category, activeOnly)
		if err != nil {
			return err
		}

		now := time.Now()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tAGE\tHEAD\tACTIVE")
		for _, l := range lots {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d/%d\t%t\n",
				l.ID, l.Name, l.Category, forecast.DaysBetween(l.BirthDate, now), l.CurrentCount, l.InitialCount, l.Active)
		}
		return w.Flush()
	},
}

var lotCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Mark a lot as no longer active",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)
		return store.CloseLot(cmd.Context(), lotID)
	},
}

// weighCmd records an average weight sample
var weighCmd = &cobra.Command{
	Use:   "weigh",
	Short: "Record the average bird weight of a lot",
	Long: `Record the average bird weight (kg) of a lot.

--age defaults to the lot's age today.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)

		age := weighAge
		if !cmd.Flags().Changed("age") {
			lot, err := store.GetLot(cmd.Context(), lotID)
			if err != nil {
				return err
			}
			age = forecast.DaysBetween(lot.BirthDate, time.Now())
		}

		return store.AddWeightSample(cmd.Context(), &models.WeightSample{
			LotID:         lotID,
			AgeInDays:     age,
			AverageWeight: weighWeight,
		})
	},
}

// mortalityCmd records dead birds and decrements the lot's head count
var mortalityCmd = &cobra.Command{
	Use:   "mortality",
	Short: "Record dead birds in a lot",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDateOrToday(recordDate)
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)

		return store.AddMortalityEvent(cmd.Context(), &models.MortalityEvent{
			LotID: lotID,
			Count: deathCount,
			Date:  date,
			Cause: deathCause,
		})
	},
}

// expenseCmd books a cost against a lot
var expenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Book an expense against a lot",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDateOrToday(recordDate)
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)

		return store.AddExpense(cmd.Context(), &models.Expense{
			LotID:   lotID,
			Amount:  amount,
			Concept: expenseTopic,
			Date:    date,
		})
	},
}

// saleCmd books revenue against a lot
var saleCmd = &cobra.Command{
	Use:   "sale",
	Short: "Book a sale against a lot",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDateOrToday(recordDate)
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)

		return store.AddSale(cmd.Context(), &models.Sale{
			LotID:  lotID,
			Amount: amount,
			Units:  saleUnits,
			Date:   date,
		})
	},
}

func init() {
	lotAddCmd.Flags().StringVar(&lotID, "id", "", "Lot ID (generated when empty)")
	lotAddCmd.Flags().StringVar(&lotName, "name", "", "Human-readable lot name")
	lotAddCmd.Flags().StringVar(&lotCategory, "category", "", "GROWER, BROILER or LAYER")
	lotAddCmd.Flags().StringVar(&lotBirth, "birth", "", "Birth date (YYYY-MM-DD)")
	lotAddCmd.Flags().IntVar(&lotCount, "count", 0, "Initial head count")
	mustMark(lotAddCmd, "category", "birth", "count")

	lotListCmd.Flags().StringVar(&lotCategory, "category", "", "Only lots of this category")
	lotListCmd.Flags().BoolVar(&activeOnly, "active", false, "Only active lots")

	lotCloseCmd.Flags().StringVar(&lotID, "lot", "", "Lot ID")
	mustMark(lotCloseCmd, "lot")

	lotCmd.AddCommand(lotAddCmd, lotListCmd, lotCloseCmd)

	weighCmd.Flags().StringVar(&lotID, "lot", "", "Lot ID")
	weighCmd.Flags().IntVar(&weighAge, "age", 0, "Age in days at weighing")
	weighCmd.Flags().Float64Var(&weighWeight, "kg", 0, "Average bird weight in kg")
	mustMark(weighCmd, "lot", "kg")

	mortalityCmd.Flags().StringVar(&lotID, "lot", "", "Lot ID")
	mortalityCmd.Flags().IntVar(&deathCount, "count", 0, "Number of dead birds")
	mortalityCmd.Flags().StringVar(&deathCause, "cause", "", "Cause of death, if known")
	mortalityCmd.Flags().StringVar(&recordDate, "date", "", "Date (YYYY-MM-DD, default today)")
	mustMark(mortalityCmd, "lot", "count")

	expenseCmd.Flags().StringVar(&lotID, "lot", "", "Lot ID")
	expenseCmd.Flags().Float64Var(&amount, "amount", 0, "Amount")
	expenseCmd.Flags().StringVar(&expenseTopic, "concept", "", "What the money was spent on")
	expenseCmd.Flags().StringVar(&recordDate, "date", "", "Date (YYYY-MM-DD, default today)")
	mustMark(expenseCmd, "lot", "amount", "concept")

	saleCmd.Flags().StringVar(&lotID, "lot", "", "Lot ID")
	saleCmd.Flags().Float64Var(&amount, "amount", 0, "Amount")
	saleCmd.Flags().IntVar(&saleUnits, "units", 0, "Birds sold")
	saleCmd.Flags().StringVar(&recordDate, "date", "", "Date (YYYY-MM-DD, default today)")
	mustMark(saleCmd, "lot", "amount")
}

func mustMark(cmd *cobra.Command, flags ...string) {
	for _, f := range flags {
		if err := cmd.MarkFlagRequired(f); err != nil {
			panic(err)
		}
	}
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.Local)
}

func parseDateOrToday(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	d, err := parseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date: %w", err)
	}
	return d, nil
}
