package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"golang-ofx-import-service/pkg/errors"
	"golang-ofx-import-service/pkg/logger"
)

// CLIErrorHandler maps pipeline errors to user-friendly messages and
// process exit codes.
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints a friendly message and returns the exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if importErr, ok := errors.AsImportError(err); ok {
		return h.handleImportError(importErr)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func (h *CLIErrorHandler) handleImportError(err *errors.ImportError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 && h.verbose {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if suggestion := suggestionFor(err); suggestion != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", suggestion)
	}

	return err.GetExitCode()
}

// suggestionFor returns a hint for the most common failure modes
func suggestionFor(err *errors.ImportError) string {
	switch err.Code {
	case errors.CodeEmptyFile:
		return "The statement file is empty. Check that the download completed."
	case errors.CodeUndetectableFormat, errors.CodeMissingStructure:
		return "The file does not look like an OFX statement. Supported formats are OFX 1.x (SGML) and OFX 2.x (XML)."
	case errors.CodeAccountNotFound:
		return "Register the account first: ofximport account add --id <id> --name <name>"
	case errors.CodeAccountInactive:
		return "The destination account is inactive and cannot receive imports."
	case errors.CodeTimeout:
		return "The import timed out. Retry, or raise the batch timeout for very large files."
	default:
		return ""
	}
}
