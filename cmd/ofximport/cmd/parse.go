package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"golang-ofx-import-service/cmd/ofximport/config"
	"golang-ofx-import-service/internal/parsers"
)

var parseCmd = &cobra.Command{
	Use:   "parse <statement.ofx>",
	Short: "Parse an OFX statement file without touching the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		handler := NewCLIErrorHandler()

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		result := parsers.NewParser().Parse(string(content))

		rep, err := config.CreateReporter()
		if err != nil {
			return err
		}
		if err := rep.WriteParseResult(os.Stdout, result); err != nil {
			return err
		}

		if !result.Success {
			os.Exit(handler.HandleError(result.FirstError()))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
