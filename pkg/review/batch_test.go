package review

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tony-angelo/aletheia-codex/pkg/logging"
	"github.com/tony-angelo/aletheia-codex/pkg/models"
)

func newBatchFixture(items ...*models.ReviewItem) (*fakeRepo, *fakeGraph, *BatchProcessor) {
	repo := &fakeRepo{items: make(map[string]*models.ReviewItem)}
	for _, item := range items {
		repo.items[item.ID] = item
	}
	graph := &fakeGraph{}
	workflow := NewWorkflow(repo, graph, nil, logging.NewNop())
	return repo, graph, NewBatchProcessor(workflow, logging.NewNop())
}

func TestBatchApprove(t *testing.T) {
	t.Run("should approve every item and report per item results", func(t *testing.T) {
		repo, _, processor := newBatchFixture(
			pendingEntityItem("item-1", "user-1"),
			pendingEntityItem("item-2", "user-1"),
			pendingRelationshipItem("item-3", "user-1"),
		)

		result, err := processor.BatchApprove(context.Background(), "user-1", []string{"item-1", "item-2", "item-3"})
		require.NoError(t, err)

		assert.NotEmpty(t, result.OperationID)
		assert.Equal(t, models.BatchOperationApprove, result.Operation)
		assert.Equal(t, 3, result.TotalItems)
		assert.Equal(t, 3, result.SuccessfulItems)
		assert.Equal(t, 0, result.FailedItems)
		assert.False(t, result.Truncated)
		assert.True(t, result.AllSucceeded())
		assert.Len(t, repo.updates, 3)
	})

	t.Run("should continue past failing items", func(t *testing.T) {
		otherUsers := pendingEntityItem("item-2", "user-2")
		_, _, processor := newBatchFixture(
			pendingEntityItem("item-1", "user-1"),
			otherUsers,
		)

		result, err := processor.BatchApprove(context.Background(), "user-1", []string{"item-1", "item-2", "item-missing"})
		require.NoError(t, err)

		assert.Equal(t, 3, result.TotalItems)
		assert.Equal(t, 1, result.SuccessfulItems)
		assert.Equal(t, 2, result.FailedItems)
		assert.False(t, result.AllSucceeded())

		require.Len(t, result.Results, 3)
		assert.True(t, result.Results[0].Success)
		assert.Nil(t, result.Results[0].Error)
		assert.False(t, result.Results[1].Success)
		require.NotNil(t, result.Results[1].Error)
		assert.Contains(t, *result.Results[1].Error, "you do not own review item item-2")
		assert.False(t, result.Results[2].Success)
		require.NotNil(t, result.Results[2].Error)
	})

	t.Run("should truncate batches above the maximum size", func(t *testing.T) {
		items := make([]*models.ReviewItem, 0, models.MaxBatchSize+10)
		ids := make([]string, 0, models.MaxBatchSize+10)
		for i := 0; i < models.MaxBatchSize+10; i++ {
			id := fmt.Sprintf("item-%d", i)
			items = append(items, pendingEntityItem(id, "user-1"))
			ids = append(ids, id)
		}
		repo, _, processor := newBatchFixture(items...)

		result, err := processor.BatchApprove(context.Background(), "user-1", ids)
		require.NoError(t, err)

		assert.True(t, result.Truncated)
		assert.Equal(t, models.MaxBatchSize, result.TotalItems)
		assert.Len(t, result.Results, models.MaxBatchSize)
		assert.Len(t, repo.updates, models.MaxBatchSize)
	})

	t.Run("should handle an empty id list", func(t *testing.T) {
		_, _, processor := newBatchFixture()

		result, err := processor.BatchApprove(context.Background(), "user-1", nil)
		require.NoError(t, err)

		assert.Equal(t, 0, result.TotalItems)
		assert.Empty(t, result.Results)
		assert.True(t, result.AllSucceeded())
	})
}

func TestBatchReject(t *testing.T) {
	t.Run("should reject every item with the shared reason", func(t *testing.T) {
		repo, graph, processor := newBatchFixture(
			pendingEntityItem("item-1", "user-1"),
			pendingEntityItem("item-2", "user-1"),
		)

		reason := "duplicate extraction"
		result, err := processor.BatchReject(context.Background(), "user-1", []string{"item-1", "item-2"}, &reason)
		require.NoError(t, err)

		assert.Equal(t, models.BatchOperationReject, result.Operation)
		assert.Equal(t, 2, result.SuccessfulItems)
		assert.Empty(t, graph.entities)

		require.Len(t, repo.updates, 2)
		for _, update := range repo.updates {
			assert.Equal(t, models.ReviewItemStatusRejected, update.Status)
			require.NotNil(t, update.RejectionReason)
			assert.Equal(t, "duplicate extraction", *update.RejectionReason)
		}
	})

	t.Run("should generate a fresh operation id per batch", func(t *testing.T) {
		_, _, processor := newBatchFixture(pendingEntityItem("item-1", "user-1"))

		first, err := processor.BatchReject(context.Background(), "user-1", []string{"item-1"}, nil)
		require.NoError(t, err)
		second, err := processor.BatchReject(context.Background(), "user-1", []string{"item-1"}, nil)
		require.NoError(t, err)

		assert.NotEqual(t, first.OperationID, second.OperationID)
	})
}
