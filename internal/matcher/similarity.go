package matcher

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// descriptionNormalizer folds accented characters to their base form so that
// "TRANSFERÊNCIA" and "TRANSFERENCIA" compare equal. Brazilian statements mix
// both spellings freely.
var descriptionNormalizer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// normalizeDescription lower-cases, strips accents, and collapses whitespace
// runs to a single space.
func normalizeDescription(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if folded, _, err := transform.String(descriptionNormalizer, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(s), " ")
}

// descriptionSimilarity returns a [0,1] similarity between two descriptions:
// 1 - distance/max(len). Identical strings after normalization score 1.0;
// two empty strings are treated as identical.
func descriptionSimilarity(a, b string) float64 {
	na := normalizeDescription(a)
	nb := normalizeDescription(b)

	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}

	distance := levenshtein.ComputeDistance(na, nb)
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}
	return 1.0 - float64(distance)/float64(maxLen)
}
