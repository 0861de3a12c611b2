package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/upstarter/engram/internal/storage"
	"github.com/upstarter/engram/pkg/errs"
	"github.com/upstarter/engram/pkg/types"
)

// Remember stores a new memory (§4.5.1). Preconditions: content must be
// non-empty; importance is clamped to [0,1]. If opts.CheckConflicts is
// true, the opposition-pair contradiction scan (§4.5.3) runs first and, if
// it finds anything, Remember returns the conflict payload without
// writing anything.
//
// Ordering for a clean write (§5 transaction/ordering discipline): embed
// first (no locks held), then Record insert, then Vector upsert, then
// Graph add + edges + snapshot, as one logical commit. If any step after
// the Record insert fails, the record is rolled back (purged) before
// returning, so the tri-store stays consistent. Auto-extraction is
// best-effort and never rolls back the memory itself.
func (e *Engine) Remember(ctx context.Context, content string, memoryType types.MemoryType, importance float64, opts RememberOptions) (*RememberResult, error) {
	if content == "" {
		return nil, errs.Validation("engine: remember: content is required")
	}
	importance = types.ClampImportance(importance)

	if opts.CheckConflicts {
		conflicts, err := e.scanContradictions(ctx, content, opts.Project)
		if err != nil {
			return nil, fmt.Errorf("engine: remember: contradiction scan: %w", err)
		}
		if len(conflicts) > 0 {
			return &RememberResult{Conflicts: conflicts}, nil
		}
	}

	for _, oldID := range opts.Supersede {
		old, err := e.store.Get(ctx, oldID)
		if err != nil {
			return nil, fmt.Errorf("engine: remember: supersede target %s: %w", oldID, err)
		}
		if old.Metadata == nil {
			old.Metadata = map[string]interface{}{}
		}
		old.Metadata["superseded_by"] = "<pending>"
		old.Status = types.StatusSuperseded
		if err := e.store.Store(ctx, old); err != nil {
			return nil, fmt.Errorf("engine: remember: marking %s superseded: %w", oldID, err)
		}
		if err := e.embeddings.DeleteEmbedding(ctx, oldID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("engine: remember: deleting vector for %s: %w", oldID, err)
		}
	}

	id, err := types.GenerateMemoryID()
	if err != nil {
		return nil, errs.Wrap(errs.KindStorageError, err)
	}

	for _, oldID := range opts.Supersede {
		old, err := e.store.Get(ctx, oldID)
		if err != nil {
			return nil, fmt.Errorf("engine: remember: re-reading supersede target %s: %w", oldID, err)
		}
		old.Metadata["superseded_by"] = id
		if err := e.store.Store(ctx, old); err != nil {
			return nil, fmt.Errorf("engine: remember: patching superseded_by on %s: %w", oldID, err)
		}
	}

	vector, err := e.embedder.Embed(ctx, content)
	if err != nil {
		return nil, errs.EmbedErr(err)
	}

	now := time.Now()
	memory := &types.Memory{
		ID:                 id,
		Content:            content,
		MemoryType:         memoryType,
		Project:            opts.Project,
		SourceRole:         opts.SourceRole,
		Importance:         importance,
		CreatedAt:          now,
		AccessedAt:         now,
		Status:             types.StatusActive,
		Metadata:           opts.Metadata,
		Tags:               opts.Tags,
		EmbeddingModel:     e.embedder.Model(),
		EmbeddingDimension: e.embedder.Dimension(),
		CreatedBy:          opts.CreatedBy,
		SessionID:          opts.SessionID,
	}
	if len(opts.Supersede) > 0 {
		memory.SupersedesID = opts.Supersede[0]
	}

	if err := e.store.Store(ctx, memory); err != nil {
		return nil, errs.StorageErr(err)
	}

	if err := e.embeddings.StoreEmbedding(ctx, id, vector, len(vector), e.embedder.Model()); err != nil {
		if purgeErr := e.store.Purge(ctx, id); purgeErr != nil {
			return nil, fmt.Errorf("engine: remember: vector store failed (%v) and rollback of record failed: %w", err, purgeErr)
		}
		return nil, errs.StorageErr(fmt.Errorf("storing vector: %w", err))
	}

	e.graphMu.Lock()
	if err := e.graph.AddMemoryNode(memory); err != nil {
		e.graphMu.Unlock()
		if purgeErr := e.store.Purge(ctx, id); purgeErr != nil {
			return nil, fmt.Errorf("engine: remember: graph add failed (%v) and rollback of record failed: %w", err, purgeErr)
		}
		if delErr := e.embeddings.DeleteEmbedding(ctx, id); delErr != nil {
			log.Printf("engine: remember: rollback vector delete for %s failed: %v", id, delErr)
		}
		return nil, errs.StorageErr(fmt.Errorf("adding graph node: %w", err))
	}
	for _, oldID := range opts.Supersede {
		rel := &types.Relationship{
			ID:         fmt.Sprintf("%s_supersedes_%s", id, oldID),
			FromID:     id,
			ToID:       oldID,
			Type:       types.RelSupersedes,
			Strength:   1.0,
			Confidence: 1.0,
			CreatedAt:  now,
			CreatedBy:  types.CreatedByAuto,
		}
		if err := e.graph.AddEdge(rel); err != nil {
			log.Printf("engine: remember: supersede edge %s->%s failed: %v", id, oldID, err)
		}
	}
	e.graphMu.Unlock()
	e.snapshotGraph()

	// Auto-extraction (§4.5.4) is best-effort: failures are logged, never
	// roll back the memory itself.
	if err := e.autoExtract(ctx, memory); err != nil {
		log.Printf("engine: remember: auto-extraction for %s failed: %v", id, err)
	}

	return &RememberResult{ID: id}, nil
}
