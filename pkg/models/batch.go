package models

// MaxBatchSize caps how many items a single batch request may act on.
// Ids past the cap are dropped and reported through Truncated.
const MaxBatchSize = 50

// Batch operations
const (
	BatchOperationApprove = "approve"
	BatchOperationReject  = "reject"
)

// ApproveItemRequest approves a single review item
type ApproveItemRequest struct {
	ItemID string `json:"item_id" validate:"required,uuid4"`
}

// RejectItemRequest rejects a single review item with an optional reason
type RejectItemRequest struct {
	ItemID string  `json:"item_id" validate:"required,uuid4"`
	Reason *string `json:"reason,omitempty"`
}

// BatchApproveRequest approves up to MaxBatchSize review items
type BatchApproveRequest struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,dive,uuid4"`
}

// BatchRejectRequest rejects up to MaxBatchSize review items
type BatchRejectRequest struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,dive,uuid4"`
	Reason  *string  `json:"reason,omitempty"`
}

// BatchItemResult reports the outcome for one item within a batch
type BatchItemResult struct {
	ItemID  string  `json:"item_id"`
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`
}

// BatchResult summarizes a batch approve or reject call. The call itself
// succeeds even when individual items fail; callers inspect the per-item
// results to find out which ones.
type BatchResult struct {
	OperationID     string            `json:"operation_id"`
	Operation       string            `json:"operation"`
	TotalItems      int               `json:"total_items"`
	SuccessfulItems int               `json:"successful_items"`
	FailedItems     int               `json:"failed_items"`
	Truncated       bool              `json:"truncated,omitempty"`
	Results         []BatchItemResult `json:"results"`
}

// AllSucceeded returns true when no item in the batch failed
func (b *BatchResult) AllSucceeded() bool {
	return b.FailedItems == 0
}
