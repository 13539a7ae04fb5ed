package review

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/tony-angelo/aletheia-codex/pkg/kafka"
	"github.com/tony-angelo/aletheia-codex/pkg/models"
	"github.com/tony-angelo/aletheia-codex/pkg/tracing"
)

var validate = validator.New()

// Ingestor turns extraction pipeline output into pending review items
type Ingestor struct {
	repo   ItemRepository
	logger ectologger.Logger
}

// NewIngestor creates a new ingestor
func NewIngestor(repo ItemRepository, logger ectologger.Logger) *Ingestor {
	return &Ingestor{
		repo:   repo,
		logger: logger,
	}
}

// HandleMessage stages every valid entity and relationship from an extraction
// message as a pending review item. Invalid payloads are skipped with a log
// so one bad extraction never blocks the rest of the batch. A redelivered
// message replaces the document's pending items instead of stacking
// duplicates.
func (i *Ingestor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "review.Ingestor.HandleMessage")
	defer span.End()

	extraction := msg.Extraction
	log := i.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id":            extraction.UserID,
		"source_document_id": extraction.SourceDocumentID,
	})

	items := make([]*models.ReviewItem, 0, len(extraction.Entities)+len(extraction.Relationships))

	for idx := range extraction.Entities {
		entity := extraction.Entities[idx]
		if err := validate.Struct(entity); err != nil {
			log.WithError(err).WithFields(map[string]any{"entity_name": entity.Name}).Warn("Skipping invalid extracted entity")
			continue
		}
		raw, err := json.Marshal(entity)
		if err != nil {
			log.WithError(err).Warn("Skipping unmarshalable extracted entity")
			continue
		}
		items = append(items, &models.ReviewItem{
			UserID:           extraction.UserID,
			ItemType:         models.ReviewItemTypeEntity,
			Confidence:       entity.Confidence,
			SourceDocumentID: extraction.SourceDocumentID,
			ExtractedText:    extraction.ExtractedText,
			Entity:           raw,
			ExtractedAt:      extraction.ExtractedAt,
			Metadata:         extraction.Metadata,
		})
	}

	for idx := range extraction.Relationships {
		rel := extraction.Relationships[idx]
		if err := validate.Struct(rel); err != nil {
			log.WithError(err).WithFields(map[string]any{"rel_type": rel.RelationshipType}).Warn("Skipping invalid extracted relationship")
			continue
		}
		raw, err := json.Marshal(rel)
		if err != nil {
			log.WithError(err).Warn("Skipping unmarshalable extracted relationship")
			continue
		}
		items = append(items, &models.ReviewItem{
			UserID:           extraction.UserID,
			ItemType:         models.ReviewItemTypeRelationship,
			Confidence:       rel.Confidence,
			SourceDocumentID: extraction.SourceDocumentID,
			ExtractedText:    extraction.ExtractedText,
			Relationship:     raw,
			ExtractedAt:      extraction.ExtractedAt,
			Metadata:         extraction.Metadata,
		})
	}

	if len(items) == 0 {
		log.Warn("Extraction message produced no valid review items")
		return nil
	}

	if err := i.repo.ReplaceBySourceDocument(ctx, extraction.UserID, extraction.SourceDocumentID, items); err != nil {
		return err
	}

	log.WithFields(map[string]any{"count": len(items)}).Info("Staged extracted items for review")
	return nil
}
