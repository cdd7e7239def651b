package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"analog-exit/internal/app"
)

var (
	showLimit   int
	showOrderID string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:   showLimit,
			OrderID: showOrderID,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of decisions to display")
	showCmd.Flags().StringVar(&showOrderID, "order-id", "", "Show the stored decision of one order")
}
