// Package importer composes the pipeline stages into the two caller-facing
// operations: a dry-run preview and the import execution itself. Both are
// request-scoped; nothing here keeps state between calls.
package importer

import (
	"context"
	"fmt"

	"golang-ofx-import-service/internal/categorizer"
	"golang-ofx-import-service/internal/matcher"
	"golang-ofx-import-service/internal/models"
	"golang-ofx-import-service/internal/parsers"
	"golang-ofx-import-service/internal/storage"
	"golang-ofx-import-service/internal/validator"
	"golang-ofx-import-service/pkg/errors"
	"golang-ofx-import-service/pkg/logger"
)

// PreviewSummary aggregates the per-transaction previews. Counts are derived
// from the preview entries rather than recomputed by the individual stages,
// so they cannot drift from what the caller sees.
type PreviewSummary struct {
	TotalTransactions         int `json:"totalTransactions"`
	ValidTransactions         int `json:"validTransactions"`
	InvalidTransactions       int `json:"invalidTransactions"`
	DuplicateTransactions     int `json:"duplicateTransactions"`
	UniqueTransactions        int `json:"uniqueTransactions"`
	CategorizedTransactions   int `json:"categorizedTransactions"`
	UncategorizedTransactions int `json:"uncategorizedTransactions"`
}

// ImportPreview is the dry-run report for one statement file against one
// destination account.
type ImportPreview struct {
	Success       bool                        `json:"success"`
	BankAccountID string                      `json:"bankAccountId"`
	Format        models.OFXFormat            `json:"format,omitempty"`
	Version       models.OFXVersion           `json:"version,omitempty"`
	Transactions  []models.TransactionPreview `json:"transactions"`
	Summary       PreviewSummary              `json:"summary"`
	Errors        []*errors.ImportError       `json:"errors,omitempty"`
}

// PreviewBuilder orchestrates duplicate detection, validation, and
// categorization into an ImportPreview.
type PreviewBuilder struct {
	store       storage.TransactionReader
	detector    *matcher.Detector
	validator   *validator.Validator
	categorizer *categorizer.Categorizer
	log         logger.Logger
}

// NewPreviewBuilder wires the preview stage from its collaborators
func NewPreviewBuilder(store storage.TransactionReader, detector *matcher.Detector, v *validator.Validator, c *categorizer.Categorizer) *PreviewBuilder {
	return &PreviewBuilder{
		store:       store,
		detector:    detector,
		validator:   v,
		categorizer: c,
		log:         logger.GetGlobalLogger().WithComponent("preview"),
	}
}

// BuildPreview composes the read-only stages into a dry-run report. It never
// panics or returns a raw error: every failure mode, including an unexpected
// panic in a stage, is converted into a preview with Success=false.
func (b *PreviewBuilder) BuildPreview(ctx context.Context, parseResult *parsers.ParseResult, bankAccountID string) (preview *ImportPreview) {
	preview = &ImportPreview{BankAccountID: bankAccountID}

	defer func() {
		if r := recover(); r != nil {
			b.log.Errorf("Preview stage panicked: %v", r)
			preview = &ImportPreview{
				BankAccountID: bankAccountID,
				Errors: []*errors.ImportError{
					errors.SystemError(errors.CodeUnexpectedError, "preview",
						fmt.Errorf("panic: %v", r)),
				},
			}
		}
	}()

	if err := b.checkAccount(ctx, bankAccountID); err != nil {
		preview.Errors = append(preview.Errors, err)
		return preview
	}

	preview.Format = parseResult.Format
	preview.Version = parseResult.Version

	// A failed parse short-circuits to a zero-transaction preview that
	// carries the parse errors.
	if !parseResult.Success {
		preview.Errors = append(preview.Errors, parseResult.Errors...)
		return preview
	}
	preview.Errors = append(preview.Errors, parseResult.Errors...)

	report, err := b.detector.FindDuplicates(ctx, parseResult.Transactions, bankAccountID)
	if err != nil {
		preview.Errors = append(preview.Errors, errors.WrapIfNeeded(err, "duplicate detection"))
		return preview
	}

	validation := b.validator.Validate(parseResult.Transactions)
	preview.Errors = append(preview.Errors, validation.Errors...)
	invalid := invalidIndexes(validation.Errors)

	categories, err := b.store.ListCategories(ctx)
	if err != nil {
		preview.Errors = append(preview.Errors, errors.SystemError(errors.CodeStorageFailure, "category snapshot", err))
		return preview
	}
	properties, err := b.store.ListActiveProperties(ctx)
	if err != nil {
		preview.Errors = append(preview.Errors, errors.SystemError(errors.CodeStorageFailure, "property snapshot", err))
		return preview
	}

	for i, txn := range parseResult.Transactions {
		matches := report.PerTransaction[i]
		entry := models.TransactionPreview{
			Transaction:      txn,
			IsValid:          !invalid[i],
			IsDuplicate:      len(matches) > 0,
			DuplicateMatches: matches,
			Categorization:   b.categorizer.Categorize(txn, categories, properties),
		}
		entry.RecommendedAction = recommendAction(entry)
		preview.Transactions = append(preview.Transactions, entry)
	}

	preview.Summary = summarize(preview.Transactions)
	preview.Success = true

	b.log.WithFields(logger.Fields{
		"bank_account": bankAccountID,
		"total":        preview.Summary.TotalTransactions,
		"duplicates":   preview.Summary.DuplicateTransactions,
		"invalid":      preview.Summary.InvalidTransactions,
	}).Info("Preview built")

	return preview
}

// checkAccount verifies the destination account exists and is active
func (b *PreviewBuilder) checkAccount(ctx context.Context, bankAccountID string) *errors.ImportError {
	account, err := b.store.GetBankAccount(ctx, bankAccountID)
	if err != nil {
		if err == storage.ErrNotFound {
			return errors.ValidationError(errors.CodeAccountNotFound, "bankAccountId",
				fmt.Sprintf("bank account %s does not exist", bankAccountID), false)
		}
		return errors.SystemError(errors.CodeStorageFailure, "account lookup", err)
	}
	if !account.IsActive {
		return errors.ValidationError(errors.CodeAccountInactive, "bankAccountId",
			fmt.Sprintf("bank account %s is inactive", bankAccountID), false)
	}
	return nil
}

// recommendAction maps a preview entry to its recommended action. Invalid
// entries need review; exact duplicates are skipped; fuzzy duplicates need
// review; everything else imports. Categorization is advisory and does not
// influence the recommendation.
func recommendAction(entry models.TransactionPreview) models.RecommendedAction {
	if !entry.IsValid {
		return models.ActionReview
	}
	if entry.IsDuplicate {
		if len(entry.DuplicateMatches) > 0 && entry.DuplicateMatches[0].IsExactMatch {
			return models.ActionSkip
		}
		return models.ActionReview
	}
	return models.ActionImport
}

// invalidIndexes collects the transaction indexes excluded by
// non-recoverable validation errors.
func invalidIndexes(validationErrors []*errors.ImportError) map[int]bool {
	invalid := make(map[int]bool)
	for _, err := range validationErrors {
		if !err.Recoverable && err.TransactionIndex >= 0 {
			invalid[err.TransactionIndex] = true
		}
	}
	return invalid
}

func summarize(entries []models.TransactionPreview) PreviewSummary {
	summary := PreviewSummary{TotalTransactions: len(entries)}
	for _, entry := range entries {
		if entry.IsValid {
			summary.ValidTransactions++
		} else {
			summary.InvalidTransactions++
		}
		if entry.IsDuplicate {
			summary.DuplicateTransactions++
		} else {
			summary.UniqueTransactions++
		}
		if entry.Categorization.IsAutomaticallyCategorized {
			summary.CategorizedTransactions++
		} else {
			summary.UncategorizedTransactions++
		}
	}
	return summary
}
