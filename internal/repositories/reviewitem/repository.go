package reviewitem

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/tony-angelo/aletheia-codex/pkg/database"
	"github.com/tony-angelo/aletheia-codex/pkg/models"
	"github.com/tony-angelo/aletheia-codex/pkg/tracing"
)

const columns = "id, user_id, item_type, status, confidence, source_document_id, extracted_text, entity, relationship, extracted_at, reviewed_at, reviewed_by, rejection_reason, metadata, created_at, updated_at"

// Repository handles review item persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new review item repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ReplaceBySourceDocument replaces the pending items staged from a source
// document with the given batch, in one transaction. Extraction messages are
// delivered at least once; replacing instead of appending keeps a redelivered
// document from stacking duplicate pending items. Items already reviewed are
// left untouched.
func (r *Repository) ReplaceBySourceDocument(ctx context.Context, userID string, sourceDocumentID string, items []*models.ReviewItem) error {
	ctx, span := tracing.StartSpan(ctx, "reviewitem.Repository.ReplaceBySourceDocument")
	defer span.End()

	if len(items) == 0 {
		return nil
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	del := database.NewDeleteBuilder()
	del.DeleteFrom("review_items")
	del.Where(
		del.Equal("user_id", userID),
		del.Equal("source_document_id", sourceDocumentID),
		del.Equal("status", models.ReviewItemStatusPending),
	)

	query, args := del.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id":            userID,
			"source_document_id": sourceDocumentID,
		}).Error("Failed to delete staged review items")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace staged review items")
	}

	now := time.Now().UTC()
	sb := database.NewInsertBuilder()
	sb.InsertInto("review_items")
	sb.Cols("id", "user_id", "item_type", "status", "confidence", "source_document_id", "extracted_text", "entity", "relationship", "extracted_at", "metadata", "created_at", "updated_at")

	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.CreatedAt = now
		item.UpdatedAt = now
		if item.Status == "" {
			item.Status = models.ReviewItemStatusPending
		}
		if item.ExtractedAt.IsZero() {
			item.ExtractedAt = now
		}
		sb.Values(item.ID, item.UserID, item.ItemType, item.Status, item.Confidence, item.SourceDocumentID, item.ExtractedText, nullableJSON(item.Entity), nullableJSON(item.Relationship), item.ExtractedAt, nullableJSON(item.Metadata), item.CreatedAt, item.UpdatedAt)
	}

	query, args = sb.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert staged review items")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace staged review items")
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit staged review items")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace staged review items")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(items)}).Debug("Replaced staged review items")
	return nil
}

// Get retrieves a review item by ID. Ownership is checked by the caller so
// it can tell a missing item apart from someone else's item.
func (r *Repository) Get(ctx context.Context, id string) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewitem.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns)
	sb.From("review_items")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var item models.ReviewItem
	if err := r.db.GetContext(ctx, &item, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("review item %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get review item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review item")
	}

	return &item, nil
}

// ListPending retrieves pending review items for a user, filtered and ordered
// per the request. Filters are normalized before querying.
func (r *Repository) ListPending(ctx context.Context, userID string, filters models.PendingFilters) ([]models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewitem.Repository.ListPending")
	defer span.End()

	filters.Normalize()

	sb := database.NewSelectBuilder()
	sb.Select(columns)
	sb.From("review_items")

	where := []string{
		sb.Equal("user_id", userID),
		sb.Equal("status", models.ReviewItemStatusPending),
	}
	if filters.MinConfidence > 0 {
		where = append(where, sb.GreaterEqualThan("confidence", filters.MinConfidence))
	}
	if filters.ItemType != nil && *filters.ItemType != "" {
		where = append(where, sb.Equal("item_type", *filters.ItemType))
	}
	sb.Where(where...)

	direction := "ASC"
	if filters.Descending {
		direction = "DESC"
	}
	sb.OrderBy(orderExpression(filters.OrderBy) + " " + direction)
	sb.Limit(filters.Limit)

	query, args := sb.Build()
	var items []models.ReviewItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending review items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pending review items")
	}

	return items, nil
}

// UpdateStatus flips a pending item to approved or rejected. Returns not
// found when the item does not exist or was already reviewed.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status string, reviewedBy string, rejectionReason *string) error {
	ctx, span := tracing.StartSpan(ctx, "reviewitem.Repository.UpdateStatus")
	defer span.End()

	now := time.Now().UTC()
	sb := database.NewUpdateBuilder()
	sb.Update("review_items")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("reviewed_at", now),
		sb.Assign("reviewed_by", reviewedBy),
		sb.Assign("rejection_reason", rejectionReason),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("status", models.ReviewItemStatusPending),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update review item status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update review item status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("pending review item %s not found", id))
	}

	return nil
}

// GetUserStats aggregates review counters for a user
func (r *Repository) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewitem.Repository.GetUserStats")
	defer span.End()

	query := `
		SELECT
			COUNT(*) AS total_items,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending_items,
			COUNT(*) FILTER (WHERE status = 'approved') AS approved_items,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected_items,
			COALESCE(MIN(created_at), NOW()) AS created_at,
			COALESCE(MAX(updated_at), NOW()) AS updated_at
		FROM review_items
		WHERE user_id = $1
	`

	var stats models.UserStats
	if err := r.db.GetContext(ctx, &stats, query, userID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get user review stats")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get user review stats")
	}

	stats.UserID = userID
	return &stats, nil
}

func orderExpression(orderBy string) string {
	switch orderBy {
	case models.OrderByExtractedAt:
		return "extracted_at"
	case models.OrderByName:
		return "entity->>'name'"
	default:
		return "confidence"
	}
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
