package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"golang-ofx-import-service/cmd/ofximport/config"
)

var previewAccount string

var previewCmd = &cobra.Command{
	Use:   "preview <statement.ofx>",
	Short: "Dry-run a statement import and show what would happen",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		handler := NewCLIErrorHandler()

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		store, err := config.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		service, err := config.CreateService(store)
		if err != nil {
			return err
		}

		preview := service.Preview(context.Background(), string(content), previewAccount)

		rep, err := config.CreateReporter()
		if err != nil {
			return err
		}
		if err := rep.WritePreview(os.Stdout, preview); err != nil {
			return err
		}

		if !preview.Success && len(preview.Errors) > 0 {
			os.Exit(handler.HandleError(preview.Errors[0]))
		}
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewAccount, "account", "", "destination bank account id (required)")
	previewCmd.MarkFlagRequired("account")
	rootCmd.AddCommand(previewCmd)
}
