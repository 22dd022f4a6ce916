// Package events handles event emission for tradeline lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	EventTypeTradelineCreated  = "tradeline.created"
	EventTypeTradelineEnriched = "tradeline.enriched"
	EventTypeBatchCompleted    = "batch.completed"
)

// Publisher is satisfied by kafka.Producer.
type Publisher interface {
	PublishTradelineEvent(ctx context.Context, event *kafka.TradelineEvent) error
	PublishBatchEvent(ctx context.Context, event *kafka.BatchEvent) error
}

// Emitter publishes tradeline lifecycle events. Event failures are logged
// and swallowed; persistence is the source of truth and events are
// best-effort notifications.
type Emitter struct {
	producer Publisher
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitTradelineCreated emits a tradeline.created event
func (e *Emitter) EmitTradelineCreated(ctx context.Context, t *models.Tradeline, documentID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitTradelineCreated")
	defer span.End()

	e.emitTradeline(ctx, EventTypeTradelineCreated, t, documentID)
}

// EmitTradelineEnriched emits a tradeline.enriched event
func (e *Emitter) EmitTradelineEnriched(ctx context.Context, t *models.Tradeline, documentID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitTradelineEnriched")
	defer span.End()

	e.emitTradeline(ctx, EventTypeTradelineEnriched, t, documentID)
}

func (e *Emitter) emitTradeline(ctx context.Context, eventType string, t *models.Tradeline, documentID string) {
	data, err := json.Marshal(t)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to marshal tradeline for event")
		return
	}

	event := &kafka.TradelineEvent{
		EventType:   eventType,
		OwnerID:     t.OwnerID,
		TradelineID: t.ID,
		DocumentID:  documentID,
		Data:        data,
	}

	if err := e.producer.PublishTradelineEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type":   eventType,
			"tradeline_id": t.ID,
		}).Error("Failed to emit tradeline event")
	}
}

// EmitBatchCompleted emits a batch.completed event with the batch counts.
func (e *Emitter) EmitBatchCompleted(ctx context.Context, ownerID, documentID string, result *models.BatchResult) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitBatchCompleted")
	defer span.End()

	event := &kafka.BatchEvent{
		EventType:        EventTypeBatchCompleted,
		OwnerID:          ownerID,
		DocumentID:       documentID,
		Total:            result.Total,
		Inserted:         result.Inserted,
		Updated:          result.Updated,
		SkippedInvalid:   result.SkippedInvalid,
		SkippedDuplicate: result.SkippedDuplicate,
		Errors:           result.Errors,
	}

	if err := e.producer.PublishBatchEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"owner_id": ownerID,
		}).Error("Failed to emit batch event")
	}
}
