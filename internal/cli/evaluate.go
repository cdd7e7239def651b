package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"analog-exit/internal/app"
)

var (
	evaluateInput  string
	evaluateLimit  int
	evaluateMetric string
	evaluateDryRun bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run one evaluation batch and print the results as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if evaluateLimit < 0 {
			return fmt.Errorf("--limit must not be negative")
		}

		return getApp().Evaluate(cmd.Context(), app.EvaluateOptions{
			InputPath: evaluateInput,
			Limit:     evaluateLimit,
			Metric:    evaluateMetric,
			DryRun:    evaluateDryRun,
			Output:    cmd.OutOrStdout(),
		})
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateInput, "input", "", "JSON file with order series (defaults to the database)")
	evaluateCmd.Flags().IntVar(&evaluateLimit, "limit", 0, "Maximum orders to evaluate (defaults to config)")
	evaluateCmd.Flags().StringVar(&evaluateMetric, "metric", "", "Distance metric override")
	evaluateCmd.Flags().BoolVar(&evaluateDryRun, "dry-run", false, "Skip persistence and alerts")
}
