// Package review implements the approval workflow for extracted knowledge.
// Approving an item commits it to the knowledge graph before the queue entry
// is marked approved; a failed graph write leaves the item pending.
package review

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/tony-angelo/aletheia-codex/pkg/kafka"
	"github.com/tony-angelo/aletheia-codex/pkg/models"
	"github.com/tony-angelo/aletheia-codex/pkg/tracing"
)

// ItemRepository is the review item persistence surface the workflow and
// ingestor share
type ItemRepository interface {
	Get(ctx context.Context, id string) (*models.ReviewItem, error)
	ListPending(ctx context.Context, userID string, filters models.PendingFilters) ([]models.ReviewItem, error)
	UpdateStatus(ctx context.Context, id string, status string, reviewedBy string, rejectionReason *string) error
	GetUserStats(ctx context.Context, userID string) (*models.UserStats, error)
	ReplaceBySourceDocument(ctx context.Context, userID string, sourceDocumentID string, items []*models.ReviewItem) error
}

// GraphWriter commits approved items into the knowledge graph
type GraphWriter interface {
	MergeEntity(ctx context.Context, userID string, entity *models.EntityPayload, approvedBy string) (string, error)
	MergeRelationship(ctx context.Context, userID string, rel *models.RelationshipPayload, approvedBy string) error
}

// EventPublisher announces review decisions to downstream consumers
type EventPublisher interface {
	PublishReviewEvent(ctx context.Context, event *kafka.ReviewEvent) error
}

// Workflow manages approval and rejection of review items
type Workflow struct {
	repo     ItemRepository
	graph    GraphWriter
	producer EventPublisher
	logger   ectologger.Logger
}

// NewWorkflow creates a new approval workflow. The producer may be nil when
// event emission is disabled.
func NewWorkflow(repo ItemRepository, graph GraphWriter, producer EventPublisher, logger ectologger.Logger) *Workflow {
	return &Workflow{
		repo:     repo,
		graph:    graph,
		producer: producer,
		logger:   logger,
	}
}

// Approve commits a pending item into the knowledge graph and marks it
// approved. The caller must own the item.
func (w *Workflow) Approve(ctx context.Context, userID string, itemID string) error {
	ctx, span := tracing.StartSpan(ctx, "review.Workflow.Approve")
	defer span.End()

	item, err := w.getOwnedItem(ctx, userID, itemID)
	if err != nil {
		return err
	}

	if !item.IsPending() {
		w.logger.WithContext(ctx).WithFields(map[string]any{"item_id": itemID, "status": item.Status}).Warn("Review item is not pending")
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("review item %s is not pending", itemID))
	}

	graphID, err := w.commitToGraph(ctx, item)
	if err != nil {
		w.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"item_id": itemID}).Error("Failed to commit item to knowledge graph")
		return httperror.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to commit item %s to the knowledge graph", itemID))
	}

	if err := w.repo.UpdateStatus(ctx, itemID, models.ReviewItemStatusApproved, userID, nil); err != nil {
		return err
	}

	w.publishEvent(ctx, kafka.EventReviewApproved, item, userID, graphID, nil)

	w.logger.WithContext(ctx).WithFields(map[string]any{
		"item_id":   itemID,
		"item_type": item.ItemType,
		"name":      item.DisplayName(),
	}).Info("Approved review item")
	return nil
}

// Reject marks a pending item rejected with an optional reason. Nothing is
// written to the knowledge graph.
func (w *Workflow) Reject(ctx context.Context, userID string, itemID string, reason *string) error {
	ctx, span := tracing.StartSpan(ctx, "review.Workflow.Reject")
	defer span.End()

	item, err := w.getOwnedItem(ctx, userID, itemID)
	if err != nil {
		return err
	}

	if !item.IsPending() {
		w.logger.WithContext(ctx).WithFields(map[string]any{"item_id": itemID, "status": item.Status}).Warn("Review item is not pending")
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("review item %s is not pending", itemID))
	}

	if err := w.repo.UpdateStatus(ctx, itemID, models.ReviewItemStatusRejected, userID, reason); err != nil {
		return err
	}

	w.publishEvent(ctx, kafka.EventReviewRejected, item, userID, "", reason)

	w.logger.WithContext(ctx).WithFields(map[string]any{
		"item_id":   itemID,
		"item_type": item.ItemType,
		"reason":    reason,
	}).Info("Rejected review item")
	return nil
}

// ListPending returns the user's pending items under the given filters
func (w *Workflow) ListPending(ctx context.Context, userID string, filters models.PendingFilters) ([]models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Workflow.ListPending")
	defer span.End()

	return w.repo.ListPending(ctx, userID, filters)
}

// GetUserStats returns the user's review counters
func (w *Workflow) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Workflow.GetUserStats")
	defer span.End()

	return w.repo.GetUserStats(ctx, userID)
}

func (w *Workflow) getOwnedItem(ctx context.Context, userID string, itemID string) (*models.ReviewItem, error) {
	item, err := w.repo.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if item.UserID != userID {
		w.logger.WithContext(ctx).WithFields(map[string]any{
			"item_id": itemID,
			"user_id": userID,
			"owner":   item.UserID,
		}).Warn("User attempted to act on an item they do not own")
		return nil, httperror.NewHTTPError(http.StatusForbidden, fmt.Sprintf("you do not own review item %s", itemID))
	}

	return item, nil
}

func (w *Workflow) commitToGraph(ctx context.Context, item *models.ReviewItem) (string, error) {
	switch item.ItemType {
	case models.ReviewItemTypeEntity:
		entity, err := item.EntityPayload()
		if err != nil {
			return "", err
		}
		return w.graph.MergeEntity(ctx, item.UserID, entity, item.UserID)
	case models.ReviewItemTypeRelationship:
		rel, err := item.RelationshipPayload()
		if err != nil {
			return "", err
		}
		return "", w.graph.MergeRelationship(ctx, item.UserID, rel, item.UserID)
	default:
		return "", fmt.Errorf("unknown review item type %q", item.ItemType)
	}
}

// publishEvent is best effort. The queue and graph are the source of truth;
// a failed publish is logged and the decision stands.
func (w *Workflow) publishEvent(ctx context.Context, eventType string, item *models.ReviewItem, reviewedBy string, graphID string, reason *string) {
	if w.producer == nil {
		return
	}

	event := &kafka.ReviewEvent{
		EventType:        eventType,
		UserID:           item.UserID,
		ItemID:           item.ID,
		ItemType:         item.ItemType,
		SourceDocumentID: item.SourceDocumentID,
		GraphID:          graphID,
		RejectionReason:  reason,
		ReviewedBy:       reviewedBy,
	}

	if err := w.producer.PublishReviewEvent(ctx, event); err != nil {
		w.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"item_id": item.ID}).Error("Failed to publish review event")
	}
}
