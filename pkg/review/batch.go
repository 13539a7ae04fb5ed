package review

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/tony-angelo/aletheia-codex/pkg/models"
	"github.com/tony-angelo/aletheia-codex/pkg/tracing"
)

// BatchProcessor runs batch approve and reject operations. A batch call
// succeeds as a whole even when individual items fail; each item's outcome
// is reported in the result.
type BatchProcessor struct {
	workflow *Workflow
	logger   ectologger.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(workflow *Workflow, logger ectologger.Logger) *BatchProcessor {
	return &BatchProcessor{
		workflow: workflow,
		logger:   logger,
	}
}

// BatchApprove approves up to models.MaxBatchSize items for the user
func (p *BatchProcessor) BatchApprove(ctx context.Context, userID string, itemIDs []string) (*models.BatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "review.BatchProcessor.BatchApprove")
	defer span.End()

	return p.run(ctx, models.BatchOperationApprove, userID, itemIDs, func(ctx context.Context, id string) error {
		return p.workflow.Approve(ctx, userID, id)
	})
}

// BatchReject rejects up to models.MaxBatchSize items for the user, all with
// the same optional reason
func (p *BatchProcessor) BatchReject(ctx context.Context, userID string, itemIDs []string, reason *string) (*models.BatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "review.BatchProcessor.BatchReject")
	defer span.End()

	return p.run(ctx, models.BatchOperationReject, userID, itemIDs, func(ctx context.Context, id string) error {
		return p.workflow.Reject(ctx, userID, id, reason)
	})
}

func (p *BatchProcessor) run(ctx context.Context, operation string, userID string, itemIDs []string, act func(ctx context.Context, id string) error) (*models.BatchResult, error) {
	result := &models.BatchResult{
		OperationID: uuid.New().String(),
		Operation:   operation,
		Results:     make([]models.BatchItemResult, 0, len(itemIDs)),
	}

	if len(itemIDs) > models.MaxBatchSize {
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"operation_id": result.OperationID,
			"requested":    len(itemIDs),
			"max":          models.MaxBatchSize,
		}).Warn("Batch truncated to maximum size")
		itemIDs = itemIDs[:models.MaxBatchSize]
		result.Truncated = true
	}

	result.TotalItems = len(itemIDs)

	for _, id := range itemIDs {
		itemResult := models.BatchItemResult{ItemID: id, Success: true}
		if err := act(ctx, id); err != nil {
			msg := err.Error()
			itemResult.Success = false
			itemResult.Error = &msg
			result.FailedItems++
		} else {
			result.SuccessfulItems++
		}
		result.Results = append(result.Results, itemResult)
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"operation_id": result.OperationID,
		"operation":    operation,
		"user_id":      userID,
		"total":        result.TotalItems,
		"successful":   result.SuccessfulItems,
		"failed":       result.FailedItems,
	}).Info("Completed batch review operation")

	return result, nil
}
