// Package processor orchestrates tradeline batch ingestion: normalize,
// dedupe against the store and within the batch, enrich matches, insert the
// rest, and emit lifecycle events.
package processor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/internal/repositories/tradeline"
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalize"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Store is the persistence surface the processor needs. Satisfied by
// *tradeline.Repository.
type Store interface {
	FindCandidates(ctx context.Context, ownerID string, q tradeline.CandidateQuery) ([]models.Tradeline, error)
	CreateBatch(ctx context.Context, tradelines []models.Tradeline) ([]string, error)
	Update(ctx context.Context, ownerID, id string, update *models.TradelineUpdate) error
}

// EventSink receives lifecycle notifications. Satisfied by *events.Emitter.
type EventSink interface {
	EmitTradelineCreated(ctx context.Context, t *models.Tradeline, documentID string)
	EmitTradelineEnriched(ctx context.Context, t *models.Tradeline, documentID string)
	EmitBatchCompleted(ctx context.Context, ownerID, documentID string, result *models.BatchResult)
}

// Processor handles tradeline batch processing
type Processor struct {
	logger     ectologger.Logger
	store      Store
	engine     *matching.Engine
	enricher   *merging.Enricher
	normalizer *normalize.Normalizer
	emitter    EventSink

	// one lock per owner so concurrent batches for the same owner
	// serialize instead of racing each other into duplicates
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewProcessor creates a new batch processor
func NewProcessor(
	logger ectologger.Logger,
	store Store,
	engine *matching.Engine,
	normalizer *normalize.Normalizer,
	emitter EventSink,
) *Processor {
	return &Processor{
		logger:     logger,
		store:      store,
		engine:     engine,
		enricher:   merging.NewEnricher(),
		normalizer: normalizer,
		emitter:    emitter,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (p *Processor) ownerLock(ownerID string) *sync.Mutex {
	p.locksMu.Lock()
	defer p.locksMu.Unlock()
	lock, ok := p.locks[ownerID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[ownerID] = lock
	}
	return lock
}

// ProcessBatch runs one extracted document's tradelines through the
// pipeline in input order. Per-record failures land in the result's Errors
// and do not abort the batch; only a failed insert of the new rows is
// fatal. Re-running the same batch is idempotent.
func (p *Processor) ProcessBatch(ctx context.Context, ownerID, documentID string, raws []models.RawTradeline) (*models.BatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ProcessBatch")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"owner_id":    ownerID,
		"document_id": documentID,
		"batch_size":  len(raws),
	})
	log.Info("Processing tradeline batch")

	lock := p.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	result := &models.BatchResult{Total: len(raws)}
	now := time.Now().UTC()

	// accepted tradelines queued for insert; later batch lines fold into
	// these before ever reaching the store
	var pending []models.Tradeline

	for i, raw := range raws {
		incoming, ok := p.buildTradeline(ownerID, raw, now)
		if !ok {
			result.SkippedInvalid++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: no usable creditor name", i))
			continue
		}

		// duplicates within the batch fold into the earlier line
		if idx := p.matchPending(incoming, pending); idx >= 0 {
			if update := p.enricher.ComputeUpdate(&pending[idx], incoming); update != nil {
				pending[idx] = update.Apply(pending[idx])
			}
			result.SkippedDuplicate++
			continue
		}

		candidates, err := p.store.FindCandidates(ctx, ownerID, p.candidateQuery(raw, incoming))
		if err != nil {
			log.WithError(err).Error("Failed to load candidate tradelines")
			return result, err
		}

		best, eval := p.engine.BestMatch(ctx, incoming, candidates)
		if best == nil {
			pending = append(pending, *incoming)
			continue
		}

		update := p.enricher.ComputeUpdate(best, incoming)
		if update == nil {
			// full duplicate of a stored row, nothing new to keep
			result.SkippedDuplicate++
			continue
		}

		if err := p.store.Update(ctx, ownerID, best.ID, update); err != nil {
			log.WithError(err).WithFields(map[string]any{"tradeline_id": best.ID}).Error("Failed to enrich tradeline")
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: enrich failed: %v", i, err))
			continue
		}

		enriched := update.Apply(*best)
		result.Updated++
		log.WithFields(map[string]any{
			"tradeline_id": best.ID,
			"confidence":   eval.Confidence,
		}).Debug("Enriched existing tradeline")
		p.emitter.EmitTradelineEnriched(ctx, &enriched, documentID)
	}

	if len(pending) > 0 {
		insertedIDs, err := p.store.CreateBatch(ctx, pending)
		if err != nil {
			log.WithError(err).Error("Failed to insert new tradelines")
			return result, err
		}

		inserted := make(map[string]bool, len(insertedIDs))
		for _, id := range insertedIDs {
			inserted[id] = true
		}

		for i := range pending {
			if inserted[pending[i].ID] {
				result.Inserted++
				p.emitter.EmitTradelineCreated(ctx, &pending[i], documentID)
			} else {
				// lost a fingerprint race to a concurrent batch
				result.SkippedDuplicate++
			}
		}
	}

	p.emitter.EmitBatchCompleted(ctx, ownerID, documentID, result)

	log.WithFields(map[string]any{
		"inserted":          result.Inserted,
		"updated":           result.Updated,
		"skipped_invalid":   result.SkippedInvalid,
		"skipped_duplicate": result.SkippedDuplicate,
		"errors":            len(result.Errors),
	}).Info("Tradeline batch completed")

	return result, nil
}

// buildTradeline normalizes one raw line into a storable tradeline. A line
// with no usable creditor name after normalization is invalid.
func (p *Processor) buildTradeline(ownerID string, raw models.RawTradeline, now time.Time) (*models.Tradeline, bool) {
	if p.normalizer.Creditor(raw.CreditorName) == "" {
		return nil, false
	}

	status := models.ParseAccountStatus(raw.AccountStatus)

	t := models.Tradeline{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		CreditorName:   strings.TrimSpace(raw.CreditorName),
		AccountNumber:  strings.TrimSpace(raw.AccountNumber),
		DateOpened:     normalize.Date(raw.DateOpened),
		CreditBureau:   models.ParseBureau(raw.CreditBureau),
		AccountStatus:  status,
		AccountType:    models.ParseAccountType(raw.AccountType),
		AccountBalance: normalize.Currency(raw.AccountBalance),
		CreditLimit:    normalize.Currency(raw.CreditLimit),
		MonthlyPayment: normalize.Currency(raw.MonthlyPayment),
		IsNegative:     raw.IsNegative || status.IsNegative(),
		DisputeCount:   raw.DisputeCount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	t.Fingerprint = fingerprint.Generate(p.normalizer, &t)

	return &t, true
}

// matchPending returns the index of the earliest pending tradeline the
// incoming one matches, or -1.
func (p *Processor) matchPending(incoming *models.Tradeline, pending []models.Tradeline) int {
	for i := range pending {
		if incoming.Fingerprint == pending[i].Fingerprint {
			return i
		}
		if eval := p.engine.Evaluate(incoming, &pending[i]); eval.IsMatch {
			return i
		}
	}
	return -1
}

// candidateQuery narrows the stored-candidate scan using both the raw and
// normalized creditor tokens plus the account prefix, so abbreviation
// rewrites never hide a stored row. Normalized tokens lead: the repository
// caps the token list, and a stored short-form creditor ("BOA") is only
// reachable through them.
func (p *Processor) candidateQuery(raw models.RawTradeline, incoming *models.Tradeline) tradeline.CandidateQuery {
	seen := make(map[string]bool)
	var tokens []string
	for _, tok := range p.normalizer.CreditorTokens(raw.CreditorName) {
		if !seen[tok] {
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}
	for _, tok := range strings.Fields(strings.ToLower(raw.CreditorName)) {
		if len(tok) > 1 && !seen[tok] {
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}

	return tradeline.CandidateQuery{
		CreditorTokens: tokens,
		AccountPrefix:  normalize.AccountPrefix(incoming.AccountNumber, normalize.DefaultPrefixLen),
	}
}
