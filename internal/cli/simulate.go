package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulateInput   string
	simulateOrderID string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Evaluate one order and send its alert regardless of the decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateOrderID == "" {
			return errors.New("--order-id is required")
		}

		return getApp().SimulateAlert(cmd.Context(), simulateInput, simulateOrderID)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateInput, "input", "", "JSON file with order series (defaults to the database)")
	simulateCmd.Flags().StringVar(&simulateOrderID, "order-id", "", "Order to evaluate")
}
