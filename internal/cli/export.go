package cli

import (
	"github.com/spf13/cobra"

	"analog-exit/internal/app"
)

var (
	exportOrderID   string
	exportInput     string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxSeries int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an order's trajectory and its neighbours as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			OrderID:   exportOrderID,
			InputPath: exportInput,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxSeries: exportMaxSeries,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOrderID, "order-id", "", "Order to export")
	exportCmd.Flags().StringVar(&exportInput, "input", "", "JSON file with order series (defaults to the database)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxSeries, "max-series", 0, "Maximum trajectories to export (defaults to config)")
}
