// Package normalize converts raw OCR-extracted tradeline fields into
// canonical comparable forms. All functions are pure and deterministic.
package normalize

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/clover/pkg/models"
)

// DefaultPrefixLen is the number of leading account digits used for
// candidate lookups and prefix comparison.
const DefaultPrefixLen = 4

// Normalizer holds the canonicalization tables. Construct once and share;
// it has no mutable state.
type Normalizer struct {
	tables Tables
	// abbreviation keys sorted longest-first so overlapping phrases apply
	// deterministically
	abbrevKeys []string
}

// New creates a Normalizer with the built-in tables.
func New() *Normalizer {
	return NewWithTables(DefaultTables())
}

// NewWithTables creates a Normalizer with custom tables.
func NewWithTables(tables Tables) *Normalizer {
	keys := make([]string, 0, len(tables.Abbreviations))
	for k := range tables.Abbreviations {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return &Normalizer{tables: tables, abbrevKeys: keys}
}

// Creditor canonicalizes a creditor name: lowercase, collapse whitespace,
// strip punctuation except & ' -, map known long-form institution names to
// their short forms, and drop generic filler tokens when more than two
// tokens remain. The result is never longer than the input; empty input
// yields empty output.
func (n *Normalizer) Creditor(name string) string {
	cleaned := cleanCreditor(name)
	if cleaned == "" {
		return ""
	}

	for _, long := range n.abbrevKeys {
		cleaned = replacePhrase(cleaned, long, n.tables.Abbreviations[long])
	}

	tokens := strings.Fields(cleaned)
	if len(tokens) > 2 {
		kept := make([]string, 0, len(tokens))
		for _, tok := range tokens {
			if n.tables.FillerTokens[tok] && !n.tables.PreservedBrands[tok] {
				continue
			}
			kept = append(kept, tok)
		}
		if len(kept) > 0 {
			tokens = kept
		}
	}

	result := strings.Join(tokens, " ")
	if len(result) > len(name) {
		return cleaned
	}
	return result
}

// CreditorTokens returns the significant tokens of a normalized creditor
// name. Tokens of length <= 1 are dropped.
func (n *Normalizer) CreditorTokens(name string) []string {
	fields := strings.Fields(n.Creditor(name))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// AccountDigits strips everything but digits from an account number.
func AccountDigits(account string) string {
	var b strings.Builder
	for _, r := range account {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// AccountPrefix returns the first n digits of the account number, or fewer
// if the number is shorter. Non-numeric input yields the empty string.
func AccountPrefix(account string, n int) string {
	digits := AccountDigits(account)
	if len(digits) > n {
		return digits[:n]
	}
	return digits
}

// AccountSuffix returns the last n digits of the account number, or fewer
// if the number is shorter.
func AccountSuffix(account string, n int) string {
	digits := AccountDigits(account)
	if len(digits) > n {
		return digits[len(digits)-n:]
	}
	return digits
}

// AccountUnknown reports whether an account number carries no usable digits:
// empty, a literal unknown marker, or fully masked.
func AccountUnknown(account string) bool {
	switch strings.ToLower(strings.TrimSpace(account)) {
	case "", "unknown", "n/a", "na", "none":
		return true
	}
	return AccountDigits(account) == ""
}

// AccountMasked reports whether an account number looks masked or truncated
// by a bureau (mask characters present, or too few digits to be complete).
func AccountMasked(account string) bool {
	if strings.ContainsAny(account, "*xX#•") {
		return true
	}
	digits := AccountDigits(account)
	return digits != "" && len(digits) <= 4
}

// dateLayouts are tried in order; the first calendar-valid parse wins.
var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"01/2006",
	"Jan 2006",
	"January 2006",
}

// Date parses a reported date, accepting MM/DD/YYYY, MM-DD-YYYY, YYYY-MM-DD,
// and common free-form layouts. Input that fails calendar validation (for
// example day 30 in February) returns nil rather than a clamped date.
func Date(text string) *time.Time {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// Currency parses a reported monetary amount, stripping currency symbols and
// thousands separators. Negative or unparseable input yields the unset
// sentinel; a literal $0 parses as set-zero.
func Currency(text string) models.Money {
	s := strings.TrimSpace(text)
	if s == "" {
		return models.UnsetMoney()
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == '.', r == '-':
			b.WriteRune(r)
		case r == '$', r == ',', unicode.IsSpace(r):
			// currency symbol / separator noise
		default:
			return models.UnsetMoney()
		}
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil || d.IsNegative() {
		return models.UnsetMoney()
	}
	return models.NewMoney(d)
}

// replacePhrase substitutes a multi-word phrase only on whole-token
// boundaries, so "bank of america" never rewrites part of "american".
func replacePhrase(s, phrase, with string) string {
	padded := " " + s + " "
	padded = strings.ReplaceAll(padded, " "+phrase+" ", " "+with+" ")
	return strings.TrimSpace(strings.Join(strings.Fields(padded), " "))
}

// cleanCreditor lowercases, strips punctuation except & ' -, and collapses
// whitespace.
func cleanCreditor(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '&' || r == '\'' || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			// dropped punctuation still separates tokens
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(strings.Join(strings.Fields(b.String()), " "))
}
