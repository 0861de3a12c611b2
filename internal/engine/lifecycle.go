package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/upstarter/engram/internal/graph"
	"github.com/upstarter/engram/internal/storage"
	"github.com/upstarter/engram/pkg/errs"
	"github.com/upstarter/engram/pkg/types"
)

// validateMemoryGraphConfidence computes confidence := min(0.95, 0.5 + 0.1
// * validations) (§4.5.7), applied after the increment so the first
// validation yields 0.6, not 0.5.
func validateMemoryGraphConfidence(validations int) float64 {
	return math.Min(0.95, 0.5+0.1*float64(validations))
}

// ValidateMemory records that a memory was validated as useful: a
// validation_count metadata field is incremented, last_validated is set,
// and confidence is raised to min(0.95, 0.5 + 0.1*validations) (§4.5.7).
// The memory's graph node carries no validation bookkeeping of its own
// (only content/type/importance/impact/status, per the projection
// node.go defines), so this bookkeeping lives on the Record Store's
// metadata the same way consolidated_into/superseded_by do.
func (e *Engine) ValidateMemory(ctx context.Context, id string) error {
	mem, err := e.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("engine: validate_memory: %w", err)
	}
	if mem.Metadata == nil {
		mem.Metadata = map[string]interface{}{}
	}
	validations := 1
	if v, ok := mem.Metadata["validation_count"].(int); ok {
		validations = v + 1
	} else if f, ok := mem.Metadata["validation_count"].(float64); ok {
		validations = int(f) + 1
	}
	mem.Metadata["validation_count"] = validations
	mem.Metadata["last_validated"] = time.Now().Format(time.RFC3339)
	mem.Metadata["confidence"] = validateMemoryGraphConfidence(validations)
	mem.Validated = true

	if err := e.store.Update(ctx, mem); err != nil {
		return errs.StorageErr(err)
	}
	return nil
}

// Supersede adds a supersedes edge from newID to oldID and marks oldID's
// Record status as superseded (§4.5.7). The vector for oldID is left
// alone: unlike Remember's inline supersede path, a standalone supersede
// call doesn't remove search visibility on its own.
func (e *Engine) Supersede(ctx context.Context, newID, oldID string) error {
	old, err := e.store.Get(ctx, oldID)
	if err != nil {
		return fmt.Errorf("engine: supersede: %w", err)
	}
	old.Status = types.StatusSuperseded
	if old.Metadata == nil {
		old.Metadata = map[string]interface{}{}
	}
	old.Metadata["superseded_by"] = newID
	if err := e.store.Store(ctx, old); err != nil {
		return errs.StorageErr(err)
	}

	rel := &types.Relationship{
		ID:         fmt.Sprintf("%s_supersedes_%s", newID, oldID),
		FromID:     newID,
		ToID:       oldID,
		Type:       types.RelSupersedes,
		Strength:   1.0,
		Confidence: 1.0,
		CreatedAt:  time.Now(),
		CreatedBy:  types.CreatedByUser,
	}
	e.graphMu.Lock()
	err = e.graph.AddEdge(rel)
	e.graphMu.Unlock()
	if err != nil {
		return fmt.Errorf("engine: supersede: adding edge: %w", err)
	}
	e.snapshotGraph()
	return nil
}

// Delete atomically removes a memory from the Record, Vector, and Graph
// stores (§4.5.7). The record row is purged first; errors from the
// vector and graph removal are then returned, except not-found, which is
// ignored.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.store.Purge(ctx, id); err != nil {
		return errs.StorageErr(err)
	}
	if err := e.embeddings.DeleteEmbedding(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return errs.StorageErr(err)
	}

	e.graphMu.Lock()
	err := e.graph.RemoveNode(id)
	e.graphMu.Unlock()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("engine: delete: removing graph node: %w", err)
	}
	e.snapshotGraph()
	return nil
}

// UpdateOptions names the fields update() may change; nil means "leave
// unchanged" (§4.5.7).
type UpdateOptions struct {
	Content    *string
	MemoryType *types.MemoryType
	Importance *float64
}

// Update modifies a memory's content/type/importance (§4.5.7). If content
// changes, the memory is re-embedded and the vector is upserted; the
// graph node's denormalized projection is refreshed to match.
func (e *Engine) Update(ctx context.Context, id string, opts UpdateOptions) error {
	mem, err := e.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("engine: update: %w", err)
	}

	contentChanged := opts.Content != nil && *opts.Content != mem.Content
	if opts.Content != nil {
		mem.Content = *opts.Content
	}
	if opts.MemoryType != nil {
		mem.MemoryType = *opts.MemoryType
	}
	if opts.Importance != nil {
		mem.Importance = types.ClampImportance(*opts.Importance)
	}

	if err := e.store.Update(ctx, mem); err != nil {
		return errs.StorageErr(err)
	}

	if contentChanged {
		vector, err := e.embedder.Embed(ctx, mem.Content)
		if err != nil {
			return errs.EmbedErr(err)
		}
		if err := e.embeddings.StoreEmbedding(ctx, id, vector, len(vector), e.embedder.Model()); err != nil {
			return errs.StorageErr(fmt.Errorf("re-embedding: %w", err))
		}
	}

	e.graphMu.Lock()
	err = e.graph.UpdateNodeAttr(id, func(n *graph.Node) {
		if n.Kind != graph.NodeKindMemory {
			return
		}
		n.Memory.Content = mem.Content
		n.Memory.MemoryType = mem.MemoryType
		n.Memory.Importance = mem.Importance
		n.Memory.Impact = types.ImpactLevel(mem.Importance)
	})
	e.graphMu.Unlock()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("engine: update: refreshing graph node: %w", err)
	}
	e.snapshotGraph()
	return nil
}
