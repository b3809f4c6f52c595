package commands

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/advisor/internal/config"
	"github.com/aristath/advisor/pkg/logger"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import securities, prices and financials from CSV files",
	Long: `Loads market data into the local database from CSV files.

Expected columns (with header row):
  securities: ticker,name,exchange,sector
  prices:     ticker,date,close          (date as YYYY-MM-DD)
  financials: ticker,year,revenue,operating_profit,net_profit

Example:
  advisor import --securities securities.csv --prices prices.csv`,
	RunE: runImport,
}

var (
	securitiesCSV string
	pricesCSV     string
	financialsCSV string
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&securitiesCSV, "securities", "", "securities CSV file")
	importCmd.Flags().StringVar(&pricesCSV, "prices", "", "prices CSV file")
	importCmd.Flags().StringVar(&financialsCSV, "financials", "", "financials CSV file")
}

func runImport(cmd *cobra.Command, args []string) error {
	if securitiesCSV == "" && pricesCSV == "" && financialsCSV == "" {
		return fmt.Errorf("nothing to import: pass --securities, --prices or --financials")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: true})

	deps, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	if securitiesCSV != "" {
		n, err := importCSV(securitiesCSV, 4, func(rec []string) error {
			return deps.store.UpsertSecurity(rec[0], rec[1], rec[2], rec[3])
		})
		if err != nil {
			return fmt.Errorf("import securities: %w", err)
		}
		log.Info().Int("rows", n).Str("file", securitiesCSV).Msg("Imported securities")
	}

	if pricesCSV != "" {
		n, err := importCSV(pricesCSV, 3, func(rec []string) error {
			date, err := time.Parse("2006-01-02", rec[1])
			if err != nil {
				return fmt.Errorf("bad date %q: %w", rec[1], err)
			}
			close, err := strconv.ParseFloat(rec[2], 64)
			if err != nil {
				return fmt.Errorf("bad close %q: %w", rec[2], err)
			}
			return deps.store.InsertClose(rec[0], date, close)
		})
		if err != nil {
			return fmt.Errorf("import prices: %w", err)
		}
		log.Info().Int("rows", n).Str("file", pricesCSV).Msg("Imported prices")
	}

	if financialsCSV != "" {
		n, err := importCSV(financialsCSV, 5, func(rec []string) error {
			year, err := strconv.Atoi(rec[1])
			if err != nil {
				return fmt.Errorf("bad year %q: %w", rec[1], err)
			}
			vals := make([]float64, 3)
			for i, raw := range rec[2:5] {
				if vals[i], err = strconv.ParseFloat(raw, 64); err != nil {
					return fmt.Errorf("bad value %q: %w", raw, err)
				}
			}
			return deps.store.InsertFinancials(rec[0], year, vals[0], vals[1], vals[2])
		})
		if err != nil {
			return fmt.Errorf("import financials: %w", err)
		}
		log.Info().Int("rows", n).Str("file", financialsCSV).Msg("Imported financials")
	}

	// Pick up newly imported listings immediately.
	return deps.snapshots.Refresh()
}

// importCSV streams a headered CSV file through fn, returning the number of
// data rows processed.
func importCSV(path string, wantFields int, fn func(rec []string) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = wantFields

	if _, err := r.Read(); err != nil { // header
		return 0, err
	}

	n := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, err
		}
		if err := fn(rec); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
