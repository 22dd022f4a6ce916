package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// ExtractionMessage is the payload published by the document extraction
// pipeline after OCR of a credit report PDF. One message carries every
// line item pulled from one document.
type ExtractionMessage struct {
	OwnerID     string                `json:"owner_id"`
	DocumentID  string                `json:"document_id"`
	ExtractedAt time.Time             `json:"extracted_at"`
	Tradelines  []models.RawTradeline `json:"tradelines"`
}

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string

	// Parsed content
	Extraction *ExtractionMessage
}

// ParseExtraction parses the message value as an extraction message.
func (m *IncomingMessage) ParseExtraction() error {
	var msg ExtractionMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	m.Extraction = &msg
	return nil
}

// GetOwnerID returns the owner ID from the message body, falling back to
// the header set by older extraction pipeline versions.
func (m *IncomingMessage) GetOwnerID() string {
	if m.Extraction != nil && m.Extraction.OwnerID != "" {
		return m.Extraction.OwnerID
	}
	return m.Headers["owner_id"]
}

// GetDocumentID returns the source document ID.
func (m *IncomingMessage) GetDocumentID() string {
	if m.Extraction != nil && m.Extraction.DocumentID != "" {
		return m.Extraction.DocumentID
	}
	return m.Headers["document_id"]
}
