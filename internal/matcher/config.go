// Package matcher implements duplicate detection for parsed statement
// transactions against previously imported records.
//
// Matching is a two-stage process:
//  1. Exact lookup on the (bank account, source transaction id) pair.
//     A hit is a certain duplicate and short-circuits the fuzzy stage.
//  2. Fuzzy search over stored transactions in a small date window around
//     the parsed transaction, scored on date proximity, amount equality,
//     and description similarity.
//
// Matching is advisory: results drive skip/review recommendations in the
// preview stage but never block a caller who chooses to import anyway.
//
// Example usage:
//
//	detector, err := matcher.NewDetector(store, matcher.DefaultConfig())
//	report, err := detector.FindDuplicates(ctx, parsed.Transactions, accountID)
package matcher

import "fmt"

// Config holds the scoring weights and thresholds of the fuzzy stage. The
// values are policy, not derived; they are exposed here so they can be tuned
// without touching the scoring structure.
type Config struct {
	// DateWeight, AmountWeight, and DescriptionWeight split the confidence
	// score between the three signals. They must sum to 1.
	DateWeight        float64 `json:"dateWeight"`
	AmountWeight      float64 `json:"amountWeight"`
	DescriptionWeight float64 `json:"descriptionWeight"`

	// DateWindowDays bounds the fuzzy candidate search. Stored transactions
	// further than this many days from the parsed date are never candidates.
	DateWindowDays int `json:"dateWindowDays"`

	// MatchThreshold is the minimum confidence at which a candidate is
	// reported as a match.
	MatchThreshold float64 `json:"matchThreshold"`

	// HighConfidenceThreshold marks matches strong enough that the preview
	// stage recommends review rather than import.
	HighConfidenceThreshold float64 `json:"highConfidenceThreshold"`
}

// DefaultConfig returns the standard matching configuration: a two-day date
// window, a 30/40/30 weight split, and a 0.6 reporting threshold.
func DefaultConfig() *Config {
	return &Config{
		DateWeight:              0.3,
		AmountWeight:            0.4,
		DescriptionWeight:       0.3,
		DateWindowDays:          2,
		MatchThreshold:          0.6,
		HighConfidenceThreshold: 0.8,
	}
}

// Validate checks the configuration for internal consistency
func (c *Config) Validate() error {
	if c.DateWeight < 0 || c.AmountWeight < 0 || c.DescriptionWeight < 0 {
		return fmt.Errorf("scoring weights cannot be negative")
	}
	sum := c.DateWeight + c.AmountWeight + c.DescriptionWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.3f", sum)
	}
	if c.DateWindowDays < 0 {
		return fmt.Errorf("date window cannot be negative")
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("match threshold must be in [0,1], got %.3f", c.MatchThreshold)
	}
	if c.HighConfidenceThreshold < c.MatchThreshold || c.HighConfidenceThreshold > 1 {
		return fmt.Errorf("high confidence threshold must be in [%.2f,1], got %.3f",
			c.MatchThreshold, c.HighConfidenceThreshold)
	}
	return nil
}
