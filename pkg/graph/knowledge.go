package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/tony-angelo/aletheia-codex/pkg/models"
	"github.com/tony-angelo/aletheia-codex/pkg/tracing"
)

// KnowledgeService commits approved review items into the knowledge graph.
// Entities are :Entity nodes keyed by (user_id, name); relationships are
// :RELATIONSHIP edges carrying their type as a property, so arbitrary
// extracted types never end up as raw Cypher.
type KnowledgeService struct {
	client *Client
	logger ectologger.Logger
}

// NewKnowledgeService creates a new knowledge graph service
func NewKnowledgeService(client *Client, logger ectologger.Logger) *KnowledgeService {
	return &KnowledgeService{
		client: client,
		logger: logger,
	}
}

// MergeEntity creates or updates an entity node for the user. Returns the
// graph id of the node.
func (s *KnowledgeService) MergeEntity(ctx context.Context, userID string, entity *models.EntityPayload, approvedBy string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.KnowledgeService.MergeEntity")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_name": entity.Name,
		"entity_type": entity.Type,
		"user_id":     userID,
	})

	now := time.Now().UTC().Format(time.RFC3339)
	props := map[string]any{
		"type":        entity.Type,
		"confidence":  entity.Confidence,
		"approved_by": approvedBy,
		"updated_at":  now,
	}
	if entity.Description != nil {
		props["description"] = *entity.Description
	}
	if entity.SourceReference != nil {
		props["source_reference"] = *entity.SourceReference
	}

	cypher := `
		MERGE (e:Entity {name: $name, user_id: $user_id})
		ON CREATE SET e.id = $id, e.created_at = $now
		SET e += $props
		RETURN e.id AS id
	`

	result, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"name":    entity.Name,
			"user_id": userID,
			"id":      uuid.New().String(),
			"now":     now,
			"props":   props,
		})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			id, _ := res.Record().Get("id")
			return id, nil
		}
		return nil, res.Err()
	})

	if err != nil {
		log.WithError(err).Error("Failed to merge entity into graph")
		return "", fmt.Errorf("failed to merge entity into graph: %w", err)
	}

	id, _ := result.(string)
	log.Debug("Merged entity into graph")
	return id, nil
}

// MergeRelationship creates or updates a relationship edge between two
// entities the user already has in the graph. Errors when either endpoint
// is missing.
func (s *KnowledgeService) MergeRelationship(ctx context.Context, userID string, rel *models.RelationshipPayload, approvedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.KnowledgeService.MergeRelationship")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"source":   rel.SourceEntityID,
		"target":   rel.TargetEntityID,
		"rel_type": rel.RelationshipType,
		"user_id":  userID,
	})

	now := time.Now().UTC().Format(time.RFC3339)
	props := map[string]any{
		"confidence":  rel.Confidence,
		"approved_by": approvedBy,
		"updated_at":  now,
	}
	if rel.SourceReference != nil {
		props["source_reference"] = *rel.SourceReference
	}

	cypher := `
		MATCH (s:Entity {user_id: $user_id})
		WHERE s.id = $source OR s.name = $source
		MATCH (t:Entity {user_id: $user_id})
		WHERE t.id = $target OR t.name = $target
		MERGE (s)-[r:RELATIONSHIP {type: $rel_type}]->(t)
		ON CREATE SET r.id = $id, r.created_at = $now
		SET r += $props
		RETURN r.id AS id
	`

	result, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"user_id":  userID,
			"source":   rel.SourceEntityID,
			"target":   rel.TargetEntityID,
			"rel_type": rel.RelationshipType,
			"id":       uuid.New().String(),
			"now":      now,
			"props":    props,
		})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			id, _ := res.Record().Get("id")
			return id, nil
		}
		return nil, res.Err()
	})

	if err != nil {
		log.WithError(err).Error("Failed to merge relationship into graph")
		return fmt.Errorf("failed to merge relationship into graph: %w", err)
	}

	if result == nil {
		log.Warn("Relationship endpoints not found in graph")
		return fmt.Errorf("source or target entity not found in graph")
	}

	log.Debug("Merged relationship into graph")
	return nil
}
