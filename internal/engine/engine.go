package engine

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/upstarter/engram/internal/graph"
	"github.com/upstarter/engram/internal/storage"
	"github.com/upstarter/engram/pkg/embedding"
	"github.com/upstarter/engram/pkg/types"
)

// Engine is the core orchestrator for the memory system (§4.5). It ties
// together the Record Store, the Vector Index, and the in-memory
// Knowledge Graph into the remember/recall/consolidate/validate operation
// set. A single Engine instance guards its graph with a readers-writer
// lock (§5); the record and vector stores are their own transactional
// resources, committed per-operation rather than under the graph lock.
type Engine struct {
	config Config

	store      storage.MemoryStore
	embeddings storage.EmbeddingProvider
	search     storage.SearchProvider
	embedder   embedding.Embedder

	graphMu sync.RWMutex
	graph   *graph.Graph
}

// New constructs an Engine. search is required: both backends implement
// it directly off their own storage connection, so there is no case where
// a caller has a store but no search provider. Auto-extraction (§4.5.4)
// runs entirely on the curated regex/keyword rules in extraction.go, so
// New takes no LLM collaborator — an Engine must work identically with no
// LLM configured at all.
func New(store storage.MemoryStore, embeddings storage.EmbeddingProvider, search storage.SearchProvider, embedder embedding.Embedder, cfg Config) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("engine: memory store is required")
	}
	if embeddings == nil {
		return nil, fmt.Errorf("engine: embedding provider is required")
	}
	if search == nil {
		return nil, fmt.Errorf("engine: search provider is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("engine: embedder is required")
	}
	if cfg.EmbeddingDimension <= 0 {
		cfg.EmbeddingDimension = embedding.DefaultDimension
	}
	if cfg.ValidationSurfaceThreshold <= 0 {
		cfg.ValidationSurfaceThreshold = 5
	}
	if cfg.ConsolidateThreshold <= 0 {
		cfg.ConsolidateThreshold = 0.85
	}
	if cfg.ConsolidateMinCluster <= 0 {
		cfg.ConsolidateMinCluster = 3
	}
	if cfg.DecayHalfLifeDays <= 0 {
		cfg.DecayHalfLifeDays = 30
	}

	e := &Engine{
		config:     cfg,
		store:      store,
		embeddings: embeddings,
		search:     search,
		embedder:   embedder,
		graph:      graph.New(),
	}

	if cfg.GraphSnapshotPath != "" {
		if err := e.graph.Load(cfg.GraphSnapshotPath, true); err != nil {
			return nil, fmt.Errorf("engine: loading graph snapshot: %w", err)
		}
	}

	return e, nil
}

// snapshotGraph persists the graph after a mutating call, per §5's
// "snapshots to disk before releasing" rule. Failure is logged, not
// returned: the in-memory graph is the authoritative structure for the
// running process, and a missed snapshot only risks losing edges added
// since the last successful write, not correctness of the current state.
func (e *Engine) snapshotGraph() {
	if e.config.GraphSnapshotPath == "" {
		return
	}
	if err := e.graph.Save(e.config.GraphSnapshotPath); err != nil {
		log.Printf("engine: graph snapshot failed: %v", err)
	}
}

// decayRate converts the configured half-life into the per-day exponential
// rate the scoring formula expects (§4.5.2). The untouched default
// (30 days) maps to the formula's own 0.023/day constant exactly rather
// than its ln(2)/30 ≈ 0.0231 derivation, so leaving DecayHalfLifeDays at
// its default never perturbs existing recall ranking; only an explicit
// override computes the rate from first principles.
func (e *Engine) decayRate() float64 {
	if e.config.DecayHalfLifeDays <= 0 {
		return 0
	}
	if e.config.DecayHalfLifeDays == 30 {
		return 0.023
	}
	return math.Ln2 / e.config.DecayHalfLifeDays
}

// Close releases the underlying storage resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Get retrieves a memory by id, delegating to the record store (§4.1).
func (e *Engine) Get(ctx context.Context, id string) (*types.Memory, error) {
	return e.store.Get(ctx, id)
}

// List retrieves memories with pagination and filtering, delegating to
// the record store.
func (e *Engine) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.Memory], error) {
	return e.store.List(ctx, opts)
}
