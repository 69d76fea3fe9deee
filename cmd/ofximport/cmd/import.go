package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"golang-ofx-import-service/cmd/ofximport/config"
	"golang-ofx-import-service/internal/importer"
	"golang-ofx-import-service/internal/models"
)

var (
	importAccount     string
	importStrict      bool
	importDuplicates  bool
	importInvalid     bool
	importNoProcessed bool
	importTimeout     time.Duration
	importActions     []string
)

var importCmd = &cobra.Command{
	Use:   "import <statement.ofx>",
	Short: "Import a statement into the database",
	Long: `Import parses a statement, previews it against the destination
account, and persists the resulting batch. Duplicates and invalid
transactions are skipped unless explicitly allowed. With --strict, the
first write failure rolls back the whole batch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		handler := NewCLIErrorHandler()

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		actions, err := parseActionOverrides(importActions)
		if err != nil {
			return err
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

		options := importer.DefaultOptions(importAccount)
		options.FileName = filepath.Base(args[0])
		options.FileSize = int64(len(content))
		options.StrictMode = importStrict
		options.ImportDuplicates = importDuplicates
		options.ImportInvalidTransactions = importInvalid
		options.CreateProcessedTransactions = !importNoProcessed
		options.TransactionActions = actions
		if importTimeout > 0 {
			options.BatchTimeout = importTimeout
		}

		result := service.Import(context.Background(), string(content), importAccount, options)

		rep, err := config.CreateReporter()
		if err != nil {
			return err
		}
		if err := rep.WriteImportResult(os.Stdout, result); err != nil {
			return err
		}

		if !result.Success && len(result.Errors) > 0 {
			os.Exit(handler.HandleError(result.Errors[0]))
		}
		return nil
	},
}

// parseActionOverrides turns --action TXN001=skip pairs into the override map
func parseActionOverrides(pairs []string) (map[string]models.RecommendedAction, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	actions := make(map[string]models.RecommendedAction, len(pairs))
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --action %q, expected <transaction-id>=<import|skip|review>", pair)
		}
		action := models.RecommendedAction(parts[1])
		if !action.IsValid() {
			return nil, fmt.Errorf("invalid action %q for transaction %s", parts[1], parts[0])
		}
		actions[parts[0]] = action
	}
	return actions, nil
}

func init() {
	importCmd.Flags().StringVar(&importAccount, "account", "", "destination bank account id (required)")
	importCmd.Flags().BoolVar(&importStrict, "strict", false, "roll back the whole batch on the first failure")
	importCmd.Flags().BoolVar(&importDuplicates, "import-duplicates", false, "import transactions flagged as duplicates")
	importCmd.Flags().BoolVar(&importInvalid, "import-invalid", false, "import transactions that failed validation")
	importCmd.Flags().BoolVar(&importNoProcessed, "no-processed", false, "skip creating processed-transaction rows")
	importCmd.Flags().DurationVar(&importTimeout, "timeout", 0, "batch transaction timeout (default 30s)")
	importCmd.Flags().StringArrayVar(&importActions, "action", nil, "per-transaction action override, e.g. --action TXN001=skip")
	importCmd.MarkFlagRequired("account")
	rootCmd.AddCommand(importCmd)
}
