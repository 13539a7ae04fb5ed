package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tony-angelo/aletheia-codex/pkg/kafka"
	"github.com/tony-angelo/aletheia-codex/pkg/logging"
	"github.com/tony-angelo/aletheia-codex/pkg/models"
)

func extractionMessage(extraction *kafka.ExtractionMessage) *kafka.IncomingMessage {
	return &kafka.IncomingMessage{
		Topic:      "extracted-knowledge",
		Extraction: extraction,
	}
}

func TestIngestorHandleMessage(t *testing.T) {
	extractedAt := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	t.Run("should stage entities and relationships as pending items", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{}}
		ingestor := NewIngestor(repo, logging.NewNop())

		msg := extractionMessage(&kafka.ExtractionMessage{
			UserID:           "user-1",
			SourceDocumentID: "doc-1",
			ExtractedAt:      extractedAt,
			Entities: []models.EntityPayload{
				{Name: "Marie Curie", Type: "person", Confidence: 0.95},
				{Name: "Radium", Type: "concept", Confidence: 0.85},
			},
			Relationships: []models.RelationshipPayload{
				{SourceEntityID: "Marie Curie", TargetEntityID: "Radium", RelationshipType: "DISCOVERED", Confidence: 0.9},
			},
		})

		err := ingestor.HandleMessage(context.Background(), msg)
		require.NoError(t, err)

		require.Len(t, repo.staged, 3)
		for _, item := range repo.staged {
			assert.Equal(t, "user-1", item.UserID)
			assert.Equal(t, "doc-1", item.SourceDocumentID)
			assert.Equal(t, extractedAt, item.ExtractedAt)
		}

		assert.Equal(t, models.ReviewItemTypeEntity, repo.staged[0].ItemType)
		assert.InDelta(t, 0.95, repo.staged[0].Confidence, 0.001)
		assert.Equal(t, models.ReviewItemTypeRelationship, repo.staged[2].ItemType)

		payload, err := repo.staged[2].RelationshipPayload()
		require.NoError(t, err)
		assert.Equal(t, "DISCOVERED", payload.RelationshipType)
	})

	t.Run("should skip invalid payloads and keep the rest", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{}}
		ingestor := NewIngestor(repo, logging.NewNop())

		msg := extractionMessage(&kafka.ExtractionMessage{
			UserID:           "user-1",
			SourceDocumentID: "doc-1",
			ExtractedAt:      extractedAt,
			Entities: []models.EntityPayload{
				{Name: "", Type: "person", Confidence: 0.95},
				{Name: "Radium", Type: "concept", Confidence: 1.5},
				{Name: "Polonium", Type: "concept", Confidence: 0.7},
			},
			Relationships: []models.RelationshipPayload{
				{SourceEntityID: "a", TargetEntityID: "", RelationshipType: "RELATED_TO", Confidence: 0.5},
			},
		})

		err := ingestor.HandleMessage(context.Background(), msg)
		require.NoError(t, err)

		require.Len(t, repo.staged, 1)
		assert.Equal(t, models.ReviewItemTypeEntity, repo.staged[0].ItemType)

		payload, err := repo.staged[0].EntityPayload()
		require.NoError(t, err)
		assert.Equal(t, "Polonium", payload.Name)
	})

	t.Run("should replace staged items when a document is redelivered", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{}}
		ingestor := NewIngestor(repo, logging.NewNop())

		msg := extractionMessage(&kafka.ExtractionMessage{
			UserID:           "user-1",
			SourceDocumentID: "doc-1",
			ExtractedAt:      extractedAt,
			Entities: []models.EntityPayload{
				{Name: "Marie Curie", Type: "person", Confidence: 0.95},
				{Name: "Radium", Type: "concept", Confidence: 0.85},
			},
		})
		otherDoc := extractionMessage(&kafka.ExtractionMessage{
			UserID:           "user-1",
			SourceDocumentID: "doc-2",
			ExtractedAt:      extractedAt,
			Entities:         []models.EntityPayload{{Name: "Polonium", Type: "concept", Confidence: 0.7}},
		})

		require.NoError(t, ingestor.HandleMessage(context.Background(), msg))
		require.NoError(t, ingestor.HandleMessage(context.Background(), otherDoc))
		require.NoError(t, ingestor.HandleMessage(context.Background(), msg))

		docs := map[string]int{}
		for _, item := range repo.staged {
			docs[item.SourceDocumentID]++
		}
		assert.Equal(t, 2, docs["doc-1"])
		assert.Equal(t, 1, docs["doc-2"])
	})

	t.Run("should do nothing when every payload is invalid", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{}}
		ingestor := NewIngestor(repo, logging.NewNop())

		msg := extractionMessage(&kafka.ExtractionMessage{
			UserID:           "user-1",
			SourceDocumentID: "doc-1",
			Entities:         []models.EntityPayload{{Name: "", Type: "", Confidence: -1}},
		})

		err := ingestor.HandleMessage(context.Background(), msg)
		require.NoError(t, err)
		assert.Empty(t, repo.staged)
	})

	t.Run("should surface storage errors so the message is retried", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{}, stageErr: errors.New("connection refused")}
		ingestor := NewIngestor(repo, logging.NewNop())

		msg := extractionMessage(&kafka.ExtractionMessage{
			UserID:           "user-1",
			SourceDocumentID: "doc-1",
			Entities:         []models.EntityPayload{{Name: "Radium", Type: "concept", Confidence: 0.8}},
		})

		err := ingestor.HandleMessage(context.Background(), msg)
		require.Error(t, err)
	})
}
