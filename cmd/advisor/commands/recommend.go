package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/advisor/internal/config"
	"github.com/aristath/advisor/internal/modules/allocation"
	"github.com/aristath/advisor/pkg/logger"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Build one allocation recommendation and print it as JSON",
	Long: `Runs the full recommendation pipeline once against the local data
directory and prints the result to stdout.

Examples:
  advisor recommend --risk neutral --capital 50000000
  advisor recommend --risk aggressive --mode mathematical
  advisor recommend --risk 35 --lookback 180 --tickers 005930,000660`,
	RunE: runRecommend,
}

var (
	recommendRisk     string
	recommendMode     string
	recommendLookback int
	recommendCapital  float64
	recommendTickers  []string
	recommendExchange string
)

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringVar(&recommendRisk, "risk", "", "risk descriptor: tier name, legacy label or score 0-100")
	recommendCmd.Flags().Float64Var(&recommendCapital, "capital", 0, "investable amount in KRW; positions carry amounts when set")
	recommendCmd.Flags().StringVar(&recommendMode, "mode", "", "constraint mode override (mathematical|practical|conservative)")
	recommendCmd.Flags().StringSliceVar(&recommendTickers, "tickers", nil, "explicit candidate tickers, bypassing screening")
	recommendCmd.Flags().StringVar(&recommendExchange, "exchange", "", "exchange filter override (KOSPI|KOSDAQ|any)")
	recommendCmd.Flags().IntVar(&recommendLookback, "lookback", 0, "price history window in days (default from config)")
	_ = recommendCmd.MarkFlagRequired("risk")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := "warn" // keep stdout clean for the JSON result
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: true})

	deps, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := deps.allocation.BuildAllocation(ctx, allocation.Request{
		RiskDescriptor: recommendRisk,
		Capital:        recommendCapital,
		Mode:           recommendMode,
		Tickers:        recommendTickers,
		Exchange:       recommendExchange,
		LookbackDays:   recommendLookback,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
