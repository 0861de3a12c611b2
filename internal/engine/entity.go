package engine

import (
	"fmt"
	"time"

	"github.com/upstarter/engram/internal/graph"
	"github.com/upstarter/engram/pkg/types"
)

// AddEntity adds or updates a standalone graph entity (a goal, blocker,
// tool, concept, etc.), idempotent on (entityType, name) via
// types.EntityID. A second call for the same pair updates status and
// priority on the existing node rather than creating a duplicate. The
// graph node does not store description, so it is not kept.
func (e *Engine) AddEntity(entityType types.EntityType, name string, status types.EntityStatus, priority types.Priority, description string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("engine: add_entity: name is required")
	}
	if status == "" {
		status = types.EntityStatusActive
	}
	id := types.EntityID(entityType, name)
	now := time.Now()

	e.graphMu.Lock()
	defer e.graphMu.Unlock()

	if _, ok := e.graph.Node(id); ok {
		if err := e.graph.UpdateNodeAttr(id, func(n *graph.Node) {
			n.Entity.Status = status
			n.Entity.Priority = priority
		}); err != nil {
			return "", fmt.Errorf("engine: add_entity: updating %s: %w", id, err)
		}
		return id, nil
	}

	ent := &types.Entity{
		ID:          id,
		EntityType:  entityType,
		Name:        name,
		Description: description,
		Status:      status,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
		FirstSeen:   now,
		LastSeen:    now,
	}
	if err := e.graph.AddEntityNode(ent); err != nil {
		return "", fmt.Errorf("engine: add_entity: %w", err)
	}
	return id, nil
}

// Link adds a relationship edge between two existing graph nodes
// (memories or entities). Unknown relation types are rejected by the
// graph itself.
func (e *Engine) Link(fromID, toID string, relType types.RelationType, strength, confidence float64, evidence string, bidirectional bool) error {
	rel := &types.Relationship{
		ID:            fmt.Sprintf("%s_%s_%s", fromID, relType, toID),
		FromID:        fromID,
		ToID:          toID,
		Type:          relType,
		Strength:      strength,
		Confidence:    confidence,
		CreatedAt:     time.Now(),
		CreatedBy:     types.CreatedByUser,
		Evidence:      evidence,
		Bidirectional: bidirectional,
	}

	e.graphMu.Lock()
	err := e.graph.AddEdge(rel)
	e.graphMu.Unlock()
	if err != nil {
		return fmt.Errorf("engine: link: %w", err)
	}
	e.snapshotGraph()
	return nil
}
