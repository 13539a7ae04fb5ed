package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tony-angelo/aletheia-codex/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed extraction output
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	Extraction *ExtractionMessage
}

// ExtractionMessage is the payload emitted by the extraction pipeline for a
// processed document. Each entity and relationship becomes a pending review
// item for the owning user.
type ExtractionMessage struct {
	UserID           string                       `json:"user_id" validate:"required"`
	SourceDocumentID string                       `json:"source_document_id" validate:"required"`
	ExtractedAt      time.Time                    `json:"extracted_at"`
	ExtractedText    *string                      `json:"extracted_text,omitempty"`
	Entities         []models.EntityPayload       `json:"entities"`
	Relationships    []models.RelationshipPayload `json:"relationships"`
	Metadata         json.RawMessage              `json:"metadata,omitempty"`
}

// ParseExtractionMessage parses the message value as extraction output
func (m *IncomingMessage) ParseExtractionMessage() error {
	var extraction ExtractionMessage
	if err := json.Unmarshal(m.Value, &extraction); err != nil {
		return fmt.Errorf("failed to parse extraction message: %w", err)
	}
	if extraction.UserID == "" {
		return fmt.Errorf("extraction message is missing user_id")
	}
	if extraction.SourceDocumentID == "" {
		return fmt.Errorf("extraction message is missing source_document_id")
	}
	m.Extraction = &extraction
	return nil
}
