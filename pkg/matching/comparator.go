// Package matching scores pairs of tradelines and decides whether they
// describe the same underlying account.
package matching

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalize"
)

// Comparator produces per-field similarity scores on the 0-100 scale.
type Comparator struct {
	normalizer *normalize.Normalizer
	lev        *metrics.Levenshtein
}

// NewComparator creates a Comparator backed by the given normalizer.
func NewComparator(normalizer *normalize.Normalizer) *Comparator {
	return &Comparator{
		normalizer: normalizer,
		lev:        metrics.NewLevenshtein(),
	}
}

// CreditorSimilarity scores two creditor names after normalization. The
// score is the best of token overlap, containment, and edit-distance
// similarity, so "Chase Bank" and "JPMorgan Chase" land well above the
// match threshold while unrelated names stay below it.
func (c *Comparator) CreditorSimilarity(a, b string) float64 {
	normA := c.normalizer.Creditor(a)
	normB := c.normalizer.Creditor(b)
	if normA == "" || normB == "" {
		return 0
	}
	if normA == normB {
		return 100
	}

	tokensA := c.normalizer.CreditorTokens(a)
	tokensB := c.normalizer.CreditorTokens(b)

	score := tokenOverlap(tokensA, tokensB)

	// a full brand token contained in the other name ("chase" inside
	// "chase bank") clears the match threshold on its own
	if containsToken(tokensA, normB) || containsToken(tokensB, normA) {
		if score < 75 {
			score = 75
		}
	}

	if edit := strutil.Similarity(normA, normB, c.lev) * 100; edit > score {
		score = edit
	}
	return score
}

// AccountSimilarity scores two account numbers on their digits. Exact
// digit equality scores 100, a shared leading prefix 80, and a shared
// masked suffix 70. Both sides unknown score 100; exactly one side
// unknown scores 0 and the caller should treat the field as inconclusive
// via AccountComparable.
func (c *Comparator) AccountSimilarity(a, b string) float64 {
	unknownA := normalize.AccountUnknown(a)
	unknownB := normalize.AccountUnknown(b)
	if unknownA && unknownB {
		return 100
	}
	if unknownA || unknownB {
		return 0
	}

	digitsA := normalize.AccountDigits(a)
	digitsB := normalize.AccountDigits(b)
	if digitsA == digitsB {
		return 100
	}

	prefixN := normalize.DefaultPrefixLen
	if len(digitsA) >= prefixN && len(digitsB) >= prefixN &&
		normalize.AccountPrefix(a, prefixN) == normalize.AccountPrefix(b, prefixN) {
		return 80
	}

	// A shared last-4 only signals identity when at least one side was
	// masked or truncated; two complete numbers ending alike are just
	// different accounts.
	suffixApplies := normalize.AccountMasked(a) || normalize.AccountMasked(b) ||
		len(digitsA) != len(digitsB)
	if suffixApplies &&
		len(digitsA) >= 4 && len(digitsB) >= 4 &&
		normalize.AccountSuffix(a, 4) == normalize.AccountSuffix(b, 4) {
		return 70
	}

	return strutil.Similarity(digitsA, digitsB, c.lev) * 100
}

// AccountComparable reports whether the account field yields signal for
// this pair. Exactly one unknown side is inconclusive; both known or
// both unknown are comparable.
func (c *Comparator) AccountComparable(a, b string) bool {
	return normalize.AccountUnknown(a) == normalize.AccountUnknown(b)
}

// DateMatch compares two opened dates to day precision. The second return
// reports whether both sides carried a parseable date at all.
func (c *Comparator) DateMatch(a, b *models.Tradeline) (match, comparable bool) {
	if a.DateOpened == nil || b.DateOpened == nil {
		return false, false
	}
	return a.DateOpened.Equal(*b.DateOpened), true
}

// BureauMatch reports whether two bureau values are compatible: equal, or
// either side unknown.
func (c *Comparator) BureauMatch(a, b models.Bureau) bool {
	if !a.IsKnown() || !b.IsKnown() {
		return true
	}
	return a == b
}

// tokenOverlap scores shared tokens between two token sets as a percentage
// of the larger set.
func tokenOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, tok := range a {
		set[tok] = true
	}
	common := 0
	for _, tok := range b {
		if set[tok] {
			common++
			set[tok] = false
		}
	}
	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}
	return float64(common) / float64(larger) * 100
}

// containsToken reports whether any token appears as a substring of the
// other side's full normalized name. Tokens shorter than three runes
// carry no brand signal and are ignored.
func containsToken(tokens []string, normalized string) bool {
	for _, tok := range tokens {
		if len(tok) >= 3 && strings.Contains(normalized, tok) {
			return true
		}
	}
	return false
}
