package queue

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/Gobusters/ectologger"

	"github.com/tony-angelo/aletheia-codex/pkg/models"
)

// ErrBatchInProgress is returned when a batch action is started while a
// previous one is still running
var ErrBatchInProgress = errors.New("a batch operation is already in progress")

// BatchRunner is the controller surface the coordinator drives
type BatchRunner interface {
	BatchApprove(ctx context.Context, itemIDs []string) (*models.BatchResult, error)
	BatchReject(ctx context.Context, itemIDs []string, reason *string) (*models.BatchResult, error)
}

// Coordinator ties a selection to batch actions. Only one batch runs at a
// time; the selection is cleared and OnComplete fires after a successful run.
type Coordinator struct {
	selection  *Selection
	runner     BatchRunner
	logger     ectologger.Logger
	onComplete func(*models.BatchResult)
	processing atomic.Bool
}

// NewCoordinator creates a coordinator over the given selection
func NewCoordinator(selection *Selection, runner BatchRunner, logger ectologger.Logger) *Coordinator {
	return &Coordinator{
		selection: selection,
		runner:    runner,
		logger:    logger,
	}
}

// OnComplete registers a callback invoked after each successful batch run
func (c *Coordinator) OnComplete(fn func(*models.BatchResult)) {
	c.onComplete = fn
}

// Selection returns the coordinator's selection
func (c *Coordinator) Selection() *Selection {
	return c.selection
}

// Processing reports whether a batch run is in flight
func (c *Coordinator) Processing() bool {
	return c.processing.Load()
}

// ApproveSelected approves every selected item
func (c *Coordinator) ApproveSelected(ctx context.Context) (*models.BatchResult, error) {
	return c.run(ctx, func(ctx context.Context, ids []string) (*models.BatchResult, error) {
		return c.runner.BatchApprove(ctx, ids)
	})
}

// RejectSelected rejects every selected item with a shared optional reason
func (c *Coordinator) RejectSelected(ctx context.Context, reason *string) (*models.BatchResult, error) {
	return c.run(ctx, func(ctx context.Context, ids []string) (*models.BatchResult, error) {
		return c.runner.BatchReject(ctx, ids, reason)
	})
}

func (c *Coordinator) run(ctx context.Context, act func(ctx context.Context, ids []string) (*models.BatchResult, error)) (*models.BatchResult, error) {
	if !c.processing.CompareAndSwap(false, true) {
		return nil, ErrBatchInProgress
	}
	defer c.processing.Store(false)

	ids := c.selection.IDs()
	if len(ids) == 0 {
		return nil, nil
	}

	result, err := act(ctx, ids)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Error("Batch operation failed")
		return nil, err
	}

	c.selection.Clear()
	if c.onComplete != nil {
		c.onComplete(result)
	}
	return result, nil
}
