package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Review item types
const (
	ReviewItemTypeEntity       = "entity"
	ReviewItemTypeRelationship = "relationship"
)

// Review item statuses. Transitions are one-way: pending -> approved or
// pending -> rejected. A reviewed item is never reopened.
const (
	ReviewItemStatusPending  = "pending"
	ReviewItemStatusApproved = "approved"
	ReviewItemStatusRejected = "rejected"
)

// ReviewItem is a candidate entity or relationship extracted from a note,
// waiting for the owning user to approve or reject it.
// Field order matches schema: id, user_id, item_type, status, confidence, ...
type ReviewItem struct {
	ID               string          `json:"id" db:"id"`
	UserID           string          `json:"user_id" db:"user_id"`
	ItemType         string          `json:"type" db:"item_type"`
	Status           string          `json:"status" db:"status"`
	Confidence       float64         `json:"confidence" db:"confidence"`
	SourceDocumentID string          `json:"source_document_id" db:"source_document_id"`
	ExtractedText    *string         `json:"extracted_text,omitempty" db:"extracted_text"`
	Entity           json.RawMessage `json:"entity,omitempty" db:"entity"`
	Relationship     json.RawMessage `json:"relationship,omitempty" db:"relationship"`
	ExtractedAt      time.Time       `json:"extracted_at" db:"extracted_at"`
	ReviewedAt       *time.Time      `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewedBy       *string         `json:"reviewed_by,omitempty" db:"reviewed_by"`
	RejectionReason  *string         `json:"rejection_reason,omitempty" db:"rejection_reason"`
	Metadata         json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// EntityPayload is the variant data carried by entity review items
type EntityPayload struct {
	Name            string  `json:"name" validate:"required"`
	Type            string  `json:"type" validate:"required"`
	Description     *string `json:"description,omitempty"`
	Confidence      float64 `json:"confidence" validate:"gte=0,lte=1"`
	SourceReference *string `json:"source_reference,omitempty"`
}

// RelationshipPayload is the variant data carried by relationship review items
type RelationshipPayload struct {
	SourceEntityID   string  `json:"source_entity_id" validate:"required"`
	TargetEntityID   string  `json:"target_entity_id" validate:"required"`
	RelationshipType string  `json:"relationship_type" validate:"required"`
	Confidence       float64 `json:"confidence" validate:"gte=0,lte=1"`
	SourceReference  *string `json:"source_reference,omitempty"`
}

// IsPending returns true while the item still awaits review
func (r *ReviewItem) IsPending() bool {
	return r.Status == ReviewItemStatusPending
}

// EntityPayload parses the entity variant data. Errors when the item is not an entity.
func (r *ReviewItem) EntityPayload() (*EntityPayload, error) {
	if r.ItemType != ReviewItemTypeEntity {
		return nil, fmt.Errorf("review item %s is not an entity", r.ID)
	}
	var payload EntityPayload
	if err := json.Unmarshal(r.Entity, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse entity payload: %w", err)
	}
	return &payload, nil
}

// RelationshipPayload parses the relationship variant data. Errors when the item is not a relationship.
func (r *ReviewItem) RelationshipPayload() (*RelationshipPayload, error) {
	if r.ItemType != ReviewItemTypeRelationship {
		return nil, fmt.Errorf("review item %s is not a relationship", r.ID)
	}
	var payload RelationshipPayload
	if err := json.Unmarshal(r.Relationship, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse relationship payload: %w", err)
	}
	return &payload, nil
}

// DisplayName returns a human readable label for logs and CLI output
func (r *ReviewItem) DisplayName() string {
	switch r.ItemType {
	case ReviewItemTypeEntity:
		if payload, err := r.EntityPayload(); err == nil {
			return payload.Name
		}
	case ReviewItemTypeRelationship:
		if payload, err := r.RelationshipPayload(); err == nil {
			return fmt.Sprintf("%s -[%s]-> %s", payload.SourceEntityID, payload.RelationshipType, payload.TargetEntityID)
		}
	}
	return "unknown item"
}

// UserStats holds per-user review counters, computed by the store
type UserStats struct {
	UserID        string    `json:"user_id" db:"user_id"`
	TotalItems    int       `json:"total_items" db:"total_items"`
	PendingItems  int       `json:"pending_items" db:"pending_items"`
	ApprovedItems int       `json:"approved_items" db:"approved_items"`
	RejectedItems int       `json:"rejected_items" db:"rejected_items"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Filter defaults and bounds for pending item queries
const (
	DefaultPendingLimit = 50
	MaxPendingLimit     = 100

	OrderByConfidence  = "confidence"
	OrderByExtractedAt = "extracted_at"
	OrderByName        = "name"
)

// PendingFilters constrains a pending item query
type PendingFilters struct {
	Limit         int     `json:"limit"`
	MinConfidence float64 `json:"min_confidence"`
	ItemType      *string `json:"type,omitempty"`
	OrderBy       string  `json:"order_by"`
	Descending    bool    `json:"descending"`
}

// DefaultPendingFilters returns the filter set used when the caller specifies nothing
func DefaultPendingFilters() PendingFilters {
	return PendingFilters{
		Limit:      DefaultPendingLimit,
		OrderBy:    OrderByConfidence,
		Descending: true,
	}
}

// Normalize clamps the limit and falls back to the default ordering for
// unknown order_by values
func (f *PendingFilters) Normalize() {
	if f.Limit < 1 {
		f.Limit = DefaultPendingLimit
	}
	if f.Limit > MaxPendingLimit {
		f.Limit = MaxPendingLimit
	}
	switch f.OrderBy {
	case OrderByConfidence, OrderByExtractedAt, OrderByName:
	default:
		f.OrderBy = OrderByConfidence
	}
}

// PendingItemsResponse is the data section of a pending item listing
type PendingItemsResponse struct {
	Items   []ReviewItem   `json:"items"`
	Count   int            `json:"count"`
	Filters PendingFilters `json:"filters"`
}
