// Package reporter renders parse, preview, and import results for the CLI.
//
// Three formats are supported:
//   - Console: human-readable output with per-action coloring
//   - JSON: the result structures marshaled as-is for scripting
//   - CSV: one row per previewed transaction for spreadsheet triage
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"golang-ofx-import-service/internal/importer"
	"golang-ofx-import-service/internal/models"
	"golang-ofx-import-service/internal/parsers"
)

// OutputFormat selects how results are rendered
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// Config holds rendering options
type Config struct {
	Format    OutputFormat `json:"format"`
	UseColors bool         `json:"use_colors"`

	// MaxTransactions caps the per-transaction listing in console output.
	// Zero means no cap.
	MaxTransactions int `json:"max_transactions"`
}

// DefaultConfig returns console output with colors enabled
func DefaultConfig() *Config {
	return &Config{
		Format:    FormatConsole,
		UseColors: true,
	}
}

// Reporter renders pipeline results
type Reporter struct {
	config *Config

	green  *color.Color
	yellow *color.Color
	red    *color.Color
	bold   *color.Color
}

// New creates a reporter. A nil config uses DefaultConfig.
func New(config *Config) *Reporter {
	if config == nil {
		config = DefaultConfig()
	}
	r := &Reporter{
		config: config,
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		bold:   color.New(color.Bold),
	}
	if !config.UseColors {
		for _, c := range []*color.Color{r.green, r.yellow, r.red, r.bold} {
			c.DisableColor()
		}
	}
	return r
}

// WriteParseResult renders a parse result
func (r *Reporter) WriteParseResult(w io.Writer, result *parsers.ParseResult) error {
	if r.config.Format == FormatJSON {
		return writeJSON(w, result)
	}

	fmt.Fprintf(w, "%s\n", r.bold.Sprint("Parse Result"))
	fmt.Fprintf(w, "  Format:       %s (%s, confidence %.2f)\n", result.Format, result.Version, result.Confidence)
	fmt.Fprintf(w, "  Accounts:     %d\n", len(result.Accounts))
	fmt.Fprintf(w, "  Transactions: %d\n", len(result.Transactions))

	if result.Success {
		fmt.Fprintf(w, "  Status:       %s\n", r.green.Sprint("ok"))
	} else {
		fmt.Fprintf(w, "  Status:       %s\n", r.red.Sprint("failed"))
	}
	r.writeErrors(w, errorStrings(result))
	return nil
}

// WritePreview renders a dry-run preview
func (r *Reporter) WritePreview(w io.Writer, preview *importer.ImportPreview) error {
	switch r.config.Format {
	case FormatJSON:
		return writeJSON(w, preview)
	case FormatCSV:
		return r.writePreviewCSV(w, preview)
	}

	fmt.Fprintf(w, "%s\n", r.bold.Sprintf("Import Preview (account %s)", preview.BankAccountID))
	if !preview.Success {
		fmt.Fprintf(w, "  Status: %s\n", r.red.Sprint("failed"))
		r.writeErrors(w, previewErrorStrings(preview))
		return nil
	}

	summary := preview.Summary
	fmt.Fprintf(w, "  Transactions: %d total, %d valid, %d invalid\n",
		summary.TotalTransactions, summary.ValidTransactions, summary.InvalidTransactions)
	fmt.Fprintf(w, "  Duplicates:   %d (%d unique)\n", summary.DuplicateTransactions, summary.UniqueTransactions)
	fmt.Fprintf(w, "  Categorized:  %d (%d uncategorized)\n", summary.CategorizedTransactions, summary.UncategorizedTransactions)
	fmt.Fprintln(w)

	limit := len(preview.Transactions)
	if r.config.MaxTransactions > 0 && r.config.MaxTransactions < limit {
		limit = r.config.MaxTransactions
	}

	for _, entry := range preview.Transactions[:limit] {
		txn := entry.Transaction
		fmt.Fprintf(w, "  %s  %-12s %10s  %-30s %s\n",
			txn.Date.Format("2006-01-02"),
			truncate(txn.TransactionID, 12),
			txn.Amount.StringFixed(2),
			truncate(txn.Description, 30),
			r.actionLabel(entry.RecommendedAction))
	}
	if limit < len(preview.Transactions) {
		fmt.Fprintf(w, "  ... and %d more\n", len(preview.Transactions)-limit)
	}

	r.writeErrors(w, previewErrorStrings(preview))
	return nil
}

// WriteImportResult renders an executed import
func (r *Reporter) WriteImportResult(w io.Writer, result *importer.ImportResult) error {
	if r.config.Format == FormatJSON {
		return writeJSON(w, result)
	}

	fmt.Fprintf(w, "%s\n", r.bold.Sprint("Import Result"))
	if result.ImportBatchID != "" {
		fmt.Fprintf(w, "  Batch: %s\n", result.ImportBatchID)
	}

	switch outcome := result.Outcome.(type) {
	case importer.Committed:
		fmt.Fprintf(w, "  Imported: %s\n", r.green.Sprintf("%d", len(outcome.Imported)))
		fmt.Fprintf(w, "  Skipped:  %s\n", r.yellow.Sprintf("%d", len(outcome.Skipped)))
		fmt.Fprintf(w, "  Failed:   %s\n", r.red.Sprintf("%d", len(outcome.Failed)))
		for _, failed := range outcome.Failed {
			fmt.Fprintf(w, "    %s: %s\n", failed.Transaction.TransactionID, failed.Error.Message)
		}
	case importer.RolledBack:
		fmt.Fprintf(w, "  Outcome: %s\n", r.red.Sprint("rolled back"))
		if outcome.Reason != nil {
			fmt.Fprintf(w, "  Reason:  %s\n", outcome.Reason.Error())
		}
	}
	return nil
}

func (r *Reporter) writePreviewCSV(w io.Writer, preview *importer.ImportPreview) error {
	writer := csv.NewWriter(w)
	header := []string{"transaction_id", "date", "amount", "description", "valid", "duplicate", "category", "confidence", "action"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, entry := range preview.Transactions {
		txn := entry.Transaction
		category := ""
		if entry.Categorization.SuggestedCategory != nil {
			category = entry.Categorization.SuggestedCategory.Name
		}
		record := []string{
			txn.TransactionID,
			txn.Date.Format("2006-01-02"),
			txn.Amount.StringFixed(2),
			txn.Description,
			strconv.FormatBool(entry.IsValid),
			strconv.FormatBool(entry.IsDuplicate),
			category,
			fmt.Sprintf("%.2f", entry.Categorization.Confidence),
			string(entry.RecommendedAction),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func (r *Reporter) actionLabel(action models.RecommendedAction) string {
	switch action {
	case models.ActionImport:
		return r.green.Sprint("import")
	case models.ActionSkip:
		return r.yellow.Sprint("skip")
	default:
		return r.red.Sprint("review")
	}
}

func (r *Reporter) writeErrors(w io.Writer, messages []string) {
	if len(messages) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s\n", r.red.Sprintf("Errors (%d):", len(messages)))
	for _, message := range messages {
		fmt.Fprintf(w, "    %s\n", message)
	}
}

func errorStrings(result *parsers.ParseResult) []string {
	messages := make([]string, 0, len(result.Errors))
	for _, err := range result.Errors {
		messages = append(messages, err.Error())
	}
	return messages
}

func previewErrorStrings(preview *importer.ImportPreview) []string {
	messages := make([]string, 0, len(preview.Errors))
	for _, err := range preview.Errors {
		messages = append(messages, err.Error())
	}
	return messages
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
