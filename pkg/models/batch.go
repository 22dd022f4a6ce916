package models

import "strings"

// MatchBreakdown carries the per-field agreement behind a match decision.
type MatchBreakdown struct {
	CreditorScore float64 `json:"creditor_score"`
	AccountScore  float64 `json:"account_score"`
	DateMatch     bool    `json:"date_match"`
	BureauMatch   bool    `json:"bureau_match"`
}

// MatchEvaluation is the decision for one incoming/candidate pair.
type MatchEvaluation struct {
	IsMatch    bool           `json:"is_match"`
	Confidence float64        `json:"confidence"`
	Breakdown  MatchBreakdown `json:"breakdown"`
}

// BatchResult summarizes one processed batch for the calling workflow.
// Per-record failures are recorded here; they never abort the batch.
type BatchResult struct {
	Total            int      `json:"total"`
	Inserted         int      `json:"inserted"`
	Updated          int      `json:"updated"`
	SkippedInvalid   int      `json:"skipped_invalid"`
	SkippedDuplicate int      `json:"skipped_duplicate"`
	Errors           []string `json:"errors,omitempty"`
}

// normalizeEnum lowercases, trims, and collapses whitespace for vocabulary lookups.
func normalizeEnum(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}
