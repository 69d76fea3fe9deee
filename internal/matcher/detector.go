package matcher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"golang-ofx-import-service/internal/models"
	"golang-ofx-import-service/internal/storage"
	importerrors "golang-ofx-import-service/pkg/errors"
	"golang-ofx-import-service/pkg/logger"
)

// Detector finds likely duplicates of parsed transactions among previously
// imported records. It only reads from storage and is safe for concurrent use.
type Detector struct {
	store  storage.TransactionReader
	config *Config
	log    logger.Logger
}

// NewDetector creates a detector over the given reader. A nil config uses
// DefaultConfig.
func NewDetector(store storage.TransactionReader, config *Config) (*Detector, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matcher configuration: %w", err)
	}
	return &Detector{
		store:  store,
		config: config,
		log:    logger.GetGlobalLogger().WithComponent("matcher"),
	}, nil
}

// Summary aggregates one detection run
type Summary struct {
	TotalChecked int `json:"totalChecked"`
	Duplicates   int `json:"duplicates"`
	Unique       int `json:"unique"`
	ExactMatches int `json:"exactMatches"`
	FuzzyMatches int `json:"fuzzyMatches"`
}

// Report is the outcome of checking a batch of parsed transactions.
// PerTransaction is aligned with the input slice; entry i holds the matches
// for transaction i, sorted by descending confidence, empty when unique.
type Report struct {
	Duplicates         []models.DuplicateMatch   `json:"duplicates"`
	UniqueTransactions []models.OFXTransaction   `json:"uniqueTransactions"`
	PerTransaction     [][]models.DuplicateMatch `json:"-"`
	Summary            Summary                   `json:"summary"`
}

// FindDuplicates checks every parsed transaction against stored records of
// the destination account.
func (d *Detector) FindDuplicates(ctx context.Context, transactions []models.OFXTransaction, bankAccountID string) (*Report, error) {
	report := &Report{
		PerTransaction: make([][]models.DuplicateMatch, len(transactions)),
		Summary:        Summary{TotalChecked: len(transactions)},
	}

	for i, txn := range transactions {
		matches, err := d.MatchTransaction(ctx, txn, bankAccountID)
		if err != nil {
			return nil, err
		}

		report.PerTransaction[i] = matches
		if len(matches) == 0 {
			report.UniqueTransactions = append(report.UniqueTransactions, txn)
			report.Summary.Unique++
			continue
		}

		report.Duplicates = append(report.Duplicates, matches...)
		report.Summary.Duplicates++
		if matches[0].IsExactMatch {
			report.Summary.ExactMatches++
		} else {
			report.Summary.FuzzyMatches++
		}
	}

	d.log.WithFields(logger.Fields{
		"bank_account": bankAccountID,
		"checked":      report.Summary.TotalChecked,
		"duplicates":   report.Summary.Duplicates,
		"exact":        report.Summary.ExactMatches,
	}).Debug("Duplicate detection completed")

	return report, nil
}

// MatchTransaction finds the stored duplicates of one parsed transaction.
// An exact source-id hit short-circuits: it returns exactly that match and
// skips the fuzzy search entirely.
func (d *Detector) MatchTransaction(ctx context.Context, txn models.OFXTransaction, bankAccountID string) ([]models.DuplicateMatch, error) {
	existing, err := d.store.GetRawTransactionBySourceID(ctx, bankAccountID, txn.TransactionID)
	if err == nil {
		return []models.DuplicateMatch{{
			Transaction:  txn,
			Existing:     existing,
			Confidence:   1.0,
			Criteria:     []models.MatchCriterion{models.CriterionSourceTransactionID},
			IsExactMatch: true,
		}}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, importerrors.SystemError(importerrors.CodeStorageFailure, "duplicate lookup", err)
	}

	return d.fuzzyMatches(ctx, txn, bankAccountID)
}

func (d *Detector) fuzzyMatches(ctx context.Context, txn models.OFXTransaction, bankAccountID string) ([]models.DuplicateMatch, error) {
	from := txn.Date.AddDate(0, 0, -d.config.DateWindowDays)
	to := txn.Date.AddDate(0, 0, d.config.DateWindowDays)

	candidates, err := d.store.ListRawTransactions(ctx, bankAccountID, from, to)
	if err != nil {
		return nil, importerrors.SystemError(importerrors.CodeStorageFailure, "candidate query", err)
	}

	var matches []models.DuplicateMatch
	for i := range candidates {
		candidate := &candidates[i]

		// Sources disagree on debit/credit sign conventions, so a flipped
		// amount still counts as the same movement.
		sameAmount := models.AmountsEqual(txn.Amount, candidate.Amount) ||
			models.AmountsEqual(txn.Amount.Neg(), candidate.Amount)
		if !sameAmount {
			continue
		}

		match := d.score(txn, candidate)
		if match.Confidence >= d.config.MatchThreshold {
			matches = append(matches, match)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches, nil
}

// score computes the weighted confidence of one candidate pair and records
// which criteria fired.
func (d *Detector) score(txn models.OFXTransaction, candidate *models.RawTransaction) models.DuplicateMatch {
	var criteria []models.MatchCriterion

	dayDiff := dateDayDiff(txn.Date, candidate.Date)
	dateScore := 0.0
	switch {
	case dayDiff == 0:
		dateScore = 1.0
		criteria = append(criteria, models.CriterionExactDate)
	case dayDiff <= 1:
		dateScore = 0.8
		criteria = append(criteria, models.CriterionSimilarDate)
	case dayDiff <= d.config.DateWindowDays:
		dateScore = 0.6
		criteria = append(criteria, models.CriterionSimilarDate)
	}

	amountScore := 0.0
	if models.AmountsEqual(txn.Amount, candidate.Amount) ||
		models.AmountsEqual(txn.Amount.Neg(), candidate.Amount) {
		amountScore = 1.0
		criteria = append(criteria, models.CriterionExactAmount)
	}

	descScore := descriptionSimilarity(txn.Description, candidate.Description)
	if descScore >= 1.0 {
		criteria = append(criteria, models.CriterionExactDescription)
	} else if descScore >= d.config.HighConfidenceThreshold {
		criteria = append(criteria, models.CriterionSimilarDescription)
	}

	confidence := dateScore*d.config.DateWeight +
		amountScore*d.config.AmountWeight +
		descScore*d.config.DescriptionWeight

	return models.DuplicateMatch{
		Transaction: txn,
		Existing:    candidate,
		Confidence:  confidence,
		Criteria:    criteria,
	}
}

// dateDayDiff returns the absolute whole-day distance between two dates,
// ignoring time of day.
func dateDayDiff(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	diff := int(ad.Sub(bd).Hours() / 24)
	if diff < 0 {
		diff = -diff
	}
	return diff
}
