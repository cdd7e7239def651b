package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"analog-exit/internal/app"
)

var (
	ingestInput  string
	ingestDryRun bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Validate order series from a JSON file and store them",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestInput == "" {
			return errors.New("--input is required")
		}

		return getApp().Ingest(cmd.Context(), app.IngestOptions{
			InputPath: ingestInput,
			DryRun:    ingestDryRun,
		})
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestInput, "input", "", "JSON file with order series")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "Validate only; do not write to the database")
}
