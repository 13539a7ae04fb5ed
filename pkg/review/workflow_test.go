package review

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tony-angelo/aletheia-codex/pkg/kafka"
	"github.com/tony-angelo/aletheia-codex/pkg/logging"
	"github.com/tony-angelo/aletheia-codex/pkg/models"
)

type statusUpdate struct {
	ItemID          string
	Status          string
	ReviewedBy      string
	RejectionReason *string
}

type fakeRepo struct {
	items     map[string]*models.ReviewItem
	updates   []statusUpdate
	updateErr error
	staged    []*models.ReviewItem
	stageErr  error
	stats     *models.UserStats
	pending   []models.ReviewItem
}

func (f *fakeRepo) Get(ctx context.Context, id string) (*models.ReviewItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "review item %s not found", id)
	}
	return item, nil
}

func (f *fakeRepo) ListPending(ctx context.Context, userID string, filters models.PendingFilters) ([]models.ReviewItem, error) {
	return f.pending, nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id string, status string, reviewedBy string, rejectionReason *string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, statusUpdate{ItemID: id, Status: status, ReviewedBy: reviewedBy, RejectionReason: rejectionReason})
	return nil
}

func (f *fakeRepo) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	return f.stats, nil
}

func (f *fakeRepo) ReplaceBySourceDocument(ctx context.Context, userID string, sourceDocumentID string, items []*models.ReviewItem) error {
	if f.stageErr != nil {
		return f.stageErr
	}
	kept := make([]*models.ReviewItem, 0, len(f.staged)+len(items))
	for _, existing := range f.staged {
		stillPending := existing.Status == "" || existing.Status == models.ReviewItemStatusPending
		if existing.UserID == userID && existing.SourceDocumentID == sourceDocumentID && stillPending {
			continue
		}
		kept = append(kept, existing)
	}
	f.staged = append(kept, items...)
	return nil
}

type fakeGraph struct {
	entities      []*models.EntityPayload
	relationships []*models.RelationshipPayload
	entityErr     error
	relErr        error
}

func (f *fakeGraph) MergeEntity(ctx context.Context, userID string, entity *models.EntityPayload, approvedBy string) (string, error) {
	if f.entityErr != nil {
		return "", f.entityErr
	}
	f.entities = append(f.entities, entity)
	return "graph-" + entity.Name, nil
}

func (f *fakeGraph) MergeRelationship(ctx context.Context, userID string, rel *models.RelationshipPayload, approvedBy string) error {
	if f.relErr != nil {
		return f.relErr
	}
	f.relationships = append(f.relationships, rel)
	return nil
}

type fakePublisher struct {
	events     []*kafka.ReviewEvent
	publishErr error
}

func (f *fakePublisher) PublishReviewEvent(ctx context.Context, event *kafka.ReviewEvent) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.events = append(f.events, event)
	return nil
}

func pendingEntityItem(id string, userID string) *models.ReviewItem {
	return &models.ReviewItem{
		ID:               id,
		UserID:           userID,
		ItemType:         models.ReviewItemTypeEntity,
		Status:           models.ReviewItemStatusPending,
		Confidence:       0.9,
		SourceDocumentID: "doc-1",
		Entity:           json.RawMessage(`{"name": "Marie Curie", "type": "person", "confidence": 0.9}`),
	}
}

func pendingRelationshipItem(id string, userID string) *models.ReviewItem {
	return &models.ReviewItem{
		ID:               id,
		UserID:           userID,
		ItemType:         models.ReviewItemTypeRelationship,
		Status:           models.ReviewItemStatusPending,
		Confidence:       0.8,
		SourceDocumentID: "doc-1",
		Relationship:     json.RawMessage(`{"source_entity_id": "a", "target_entity_id": "b", "relationship_type": "DISCOVERED", "confidence": 0.8}`),
	}
}

// assertHTTPStatus asserts that err carries the given HTTP status
func assertHTTPStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err), "expected HTTP error, got: %v", err)
	assert.Equal(t, status, httperror.GetStatusCode(err))
}

func TestWorkflowApprove(t *testing.T) {
	t.Run("should commit entity to graph then mark approved", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{"item-1": pendingEntityItem("item-1", "user-1")}}
		graph := &fakeGraph{}
		producer := &fakePublisher{}
		workflow := NewWorkflow(repo, graph, producer, logging.NewNop())

		err := workflow.Approve(context.Background(), "user-1", "item-1")
		require.NoError(t, err)

		require.Len(t, graph.entities, 1)
		assert.Equal(t, "Marie Curie", graph.entities[0].Name)

		require.Len(t, repo.updates, 1)
		assert.Equal(t, "item-1", repo.updates[0].ItemID)
		assert.Equal(t, models.ReviewItemStatusApproved, repo.updates[0].Status)
		assert.Equal(t, "user-1", repo.updates[0].ReviewedBy)
		assert.Nil(t, repo.updates[0].RejectionReason)

		require.Len(t, producer.events, 1)
		assert.Equal(t, kafka.EventReviewApproved, producer.events[0].EventType)
		assert.Equal(t, "graph-Marie Curie", producer.events[0].GraphID)
	})

	t.Run("should commit relationship to graph", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{"item-1": pendingRelationshipItem("item-1", "user-1")}}
		graph := &fakeGraph{}
		workflow := NewWorkflow(repo, graph, nil, logging.NewNop())

		err := workflow.Approve(context.Background(), "user-1", "item-1")
		require.NoError(t, err)

		require.Len(t, graph.relationships, 1)
		assert.Equal(t, "DISCOVERED", graph.relationships[0].RelationshipType)
		require.Len(t, repo.updates, 1)
	})

	t.Run("should return 403 when the caller does not own the item", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{"item-1": pendingEntityItem("item-1", "user-2")}}
		graph := &fakeGraph{}
		workflow := NewWorkflow(repo, graph, nil, logging.NewNop())

		err := workflow.Approve(context.Background(), "user-1", "item-1")
		assertHTTPStatus(t, err, http.StatusForbidden)
		assert.Empty(t, graph.entities)
		assert.Empty(t, repo.updates)
	})

	t.Run("should return 404 when the item does not exist", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{}}
		workflow := NewWorkflow(repo, &fakeGraph{}, nil, logging.NewNop())

		err := workflow.Approve(context.Background(), "user-1", "missing")
		assertHTTPStatus(t, err, http.StatusNotFound)
	})

	t.Run("should return 409 when the item was already reviewed", func(t *testing.T) {
		item := pendingEntityItem("item-1", "user-1")
		item.Status = models.ReviewItemStatusApproved
		repo := &fakeRepo{items: map[string]*models.ReviewItem{"item-1": item}}
		graph := &fakeGraph{}
		workflow := NewWorkflow(repo, graph, nil, logging.NewNop())

		err := workflow.Approve(context.Background(), "user-1", "item-1")
		assertHTTPStatus(t, err, http.StatusConflict)
		assert.Empty(t, graph.entities)
		assert.Empty(t, repo.updates)
	})

	t.Run("should leave item pending when the graph write fails", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{"item-1": pendingEntityItem("item-1", "user-1")}}
		graph := &fakeGraph{entityErr: errors.New("neo4j unavailable")}
		producer := &fakePublisher{}
		workflow := NewWorkflow(repo, graph, producer, logging.NewNop())

		err := workflow.Approve(context.Background(), "user-1", "item-1")
		assertHTTPStatus(t, err, http.StatusInternalServerError)
		assert.Empty(t, repo.updates)
		assert.Empty(t, producer.events)
	})

	t.Run("should succeed when the event publish fails", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{"item-1": pendingEntityItem("item-1", "user-1")}}
		producer := &fakePublisher{publishErr: errors.New("kafka down")}
		workflow := NewWorkflow(repo, &fakeGraph{}, producer, logging.NewNop())

		err := workflow.Approve(context.Background(), "user-1", "item-1")
		require.NoError(t, err)
		require.Len(t, repo.updates, 1)
	})

	t.Run("should work without a producer", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{"item-1": pendingEntityItem("item-1", "user-1")}}
		workflow := NewWorkflow(repo, &fakeGraph{}, nil, logging.NewNop())

		err := workflow.Approve(context.Background(), "user-1", "item-1")
		require.NoError(t, err)
	})
}

func TestWorkflowQueries(t *testing.T) {
	t.Run("should list pending items through the store", func(t *testing.T) {
		repo := &fakeRepo{pending: []models.ReviewItem{{ID: "item-1"}, {ID: "item-2"}}}
		workflow := NewWorkflow(repo, &fakeGraph{}, nil, logging.NewNop())

		items, err := workflow.ListPending(context.Background(), "user-1", models.DefaultPendingFilters())
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("should return user stats from the store", func(t *testing.T) {
		repo := &fakeRepo{stats: &models.UserStats{UserID: "user-1", PendingItems: 3}}
		workflow := NewWorkflow(repo, &fakeGraph{}, nil, logging.NewNop())

		stats, err := workflow.GetUserStats(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, 3, stats.PendingItems)
	})
}

func TestWorkflowReject(t *testing.T) {
	t.Run("should mark item rejected without touching the graph", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{"item-1": pendingEntityItem("item-1", "user-1")}}
		graph := &fakeGraph{}
		producer := &fakePublisher{}
		workflow := NewWorkflow(repo, graph, producer, logging.NewNop())

		reason := "wrong entity type"
		err := workflow.Reject(context.Background(), "user-1", "item-1", &reason)
		require.NoError(t, err)

		assert.Empty(t, graph.entities)
		assert.Empty(t, graph.relationships)

		require.Len(t, repo.updates, 1)
		assert.Equal(t, models.ReviewItemStatusRejected, repo.updates[0].Status)
		require.NotNil(t, repo.updates[0].RejectionReason)
		assert.Equal(t, "wrong entity type", *repo.updates[0].RejectionReason)

		require.Len(t, producer.events, 1)
		assert.Equal(t, kafka.EventReviewRejected, producer.events[0].EventType)
		require.NotNil(t, producer.events[0].RejectionReason)
	})

	t.Run("should allow rejection without a reason", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{"item-1": pendingEntityItem("item-1", "user-1")}}
		workflow := NewWorkflow(repo, &fakeGraph{}, nil, logging.NewNop())

		err := workflow.Reject(context.Background(), "user-1", "item-1", nil)
		require.NoError(t, err)
		require.Len(t, repo.updates, 1)
		assert.Nil(t, repo.updates[0].RejectionReason)
	})

	t.Run("should return 403 for items owned by someone else", func(t *testing.T) {
		repo := &fakeRepo{items: map[string]*models.ReviewItem{"item-1": pendingEntityItem("item-1", "user-2")}}
		workflow := NewWorkflow(repo, &fakeGraph{}, nil, logging.NewNop())

		err := workflow.Reject(context.Background(), "user-1", "item-1", nil)
		assertHTTPStatus(t, err, http.StatusForbidden)
	})

	t.Run("should return 409 for already reviewed items", func(t *testing.T) {
		item := pendingEntityItem("item-1", "user-1")
		item.Status = models.ReviewItemStatusRejected
		repo := &fakeRepo{items: map[string]*models.ReviewItem{"item-1": item}}
		workflow := NewWorkflow(repo, &fakeGraph{}, nil, logging.NewNop())

		err := workflow.Reject(context.Background(), "user-1", "item-1", nil)
		assertHTTPStatus(t, err, http.StatusConflict)
	})
}
