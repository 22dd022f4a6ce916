// Package fingerprint derives the deterministic natural-key hash used to
// dedupe concurrent inserts of the same tradeline.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalize"
)

// Generate hashes the normalized identity of a tradeline: creditor key,
// account digits (or the unknown marker), bureau, and opened date. Two
// tradelines the matching engine would call identical on exact fields hash
// to the same fingerprint, which backs the unique index guarding against
// concurrent-batch races.
func Generate(normalizer *normalize.Normalizer, t *models.Tradeline) string {
	parts := []string{
		normalizer.Creditor(t.CreditorName),
		accountKey(t.AccountNumber),
		string(t.CreditBureau),
		dateKey(t),
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}

func accountKey(account string) string {
	if normalize.AccountUnknown(account) {
		return "unknown"
	}
	return normalize.AccountDigits(account)
}

func dateKey(t *models.Tradeline) string {
	if t.DateOpened == nil {
		return ""
	}
	return t.DateOpened.Format("2006-01-02")
}
