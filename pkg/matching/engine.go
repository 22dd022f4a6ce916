package matching

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Thresholds contains the tunable knobs of the match decision.
type Thresholds struct {
	CreditorMin      float64 // minimum creditor score to count the criterion (default: 70)
	AccountMin       float64 // minimum account score to count the criterion (default: 70)
	OverallMin       float64 // minimum confidence to declare a match (default: 75)
	CreditorWeight   float64 // weight of the creditor criterion (default: 0.5)
	AccountWeight    float64 // weight of the account criterion (default: 0.3)
	DateWeight       float64 // weight of the opened-date criterion (default: 0.1)
	BureauWeight     float64 // weight of the bureau criterion (default: 0.1)
	RequireDateMatch bool    // whether differing dates veto a match outright
}

// DefaultThresholds returns the default decision thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CreditorMin:      70,
		AccountMin:       70,
		OverallMin:       75,
		CreditorWeight:   0.5,
		AccountWeight:    0.3,
		DateWeight:       0.1,
		BureauWeight:     0.1,
		RequireDateMatch: false,
	}
}

// Engine evaluates incoming tradelines against stored candidates.
type Engine struct {
	logger     ectologger.Logger
	comparator *Comparator
	thresholds Thresholds
}

// NewEngine creates a match engine.
func NewEngine(logger ectologger.Logger, comparator *Comparator, thresholds Thresholds) *Engine {
	return &Engine{
		logger:     logger,
		comparator: comparator,
		thresholds: thresholds,
	}
}

// Evaluate scores a single candidate against the incoming tradeline.
//
// Each criterion that yields signal for the pair contributes its weight to
// the denominator; criteria with no signal (unparseable dates, a single
// unknown account number) are excluded rather than penalized. Confidence is
// the satisfied share of the applicable weight, on a 0-100 scale.
func (e *Engine) Evaluate(incoming, candidate *models.Tradeline) models.MatchEvaluation {
	t := e.thresholds

	creditorScore := e.comparator.CreditorSimilarity(incoming.CreditorName, candidate.CreditorName)
	accountScore := e.comparator.AccountSimilarity(incoming.AccountNumber, candidate.AccountNumber)
	accountComparable := e.comparator.AccountComparable(incoming.AccountNumber, candidate.AccountNumber)
	dateMatch, dateComparable := e.comparator.DateMatch(incoming, candidate)
	bureauMatch := e.comparator.BureauMatch(incoming.CreditBureau, candidate.CreditBureau)

	applicable := t.CreditorWeight + t.BureauWeight
	satisfied := 0.0

	if creditorScore >= t.CreditorMin {
		satisfied += t.CreditorWeight
	}
	if bureauMatch {
		satisfied += t.BureauWeight
	}
	if accountComparable {
		applicable += t.AccountWeight
		if accountScore >= t.AccountMin {
			satisfied += t.AccountWeight
		}
	}
	if dateComparable {
		applicable += t.DateWeight
		if dateMatch {
			satisfied += t.DateWeight
		}
	}

	confidence := 0.0
	if applicable > 0 {
		confidence = satisfied / applicable * 100
	}

	isMatch := confidence >= t.OverallMin &&
		creditorScore >= t.CreditorMin &&
		bureauMatch

	if t.RequireDateMatch && dateComparable && !dateMatch {
		isMatch = false
	}

	return models.MatchEvaluation{
		IsMatch:    isMatch,
		Confidence: confidence,
		Breakdown: models.MatchBreakdown{
			CreditorScore: creditorScore,
			AccountScore:  accountScore,
			DateMatch:     dateMatch,
			BureauMatch:   bureauMatch,
		},
	}
}

// BestMatch evaluates every candidate and returns the strongest match, or
// nil when no candidate clears the thresholds. Ties on confidence break
// toward the lowest candidate ID so repeated runs pick the same winner.
func (e *Engine) BestMatch(ctx context.Context, incoming *models.Tradeline, candidates []models.Tradeline) (*models.Tradeline, *models.MatchEvaluation) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.BestMatch")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"owner_id":   incoming.OwnerID,
		"candidates": len(candidates),
	})

	var best *models.Tradeline
	var bestEval *models.MatchEvaluation

	for i := range candidates {
		candidate := &candidates[i]
		eval := e.Evaluate(incoming, candidate)
		if !eval.IsMatch {
			continue
		}
		if bestEval == nil ||
			eval.Confidence > bestEval.Confidence ||
			(eval.Confidence == bestEval.Confidence && candidate.ID < best.ID) {
			best = candidate
			evalCopy := eval
			bestEval = &evalCopy
		}
	}

	if best != nil {
		log.WithFields(map[string]any{
			"matched_id": best.ID,
			"confidence": bestEval.Confidence,
		}).Debug("Found matching tradeline")
	} else {
		log.Debug("No matching tradeline found")
	}

	return best, bestEval
}
