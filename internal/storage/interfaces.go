// Package storage provides composable storage interfaces for the Engram
// memory system: the Record Store (durable memory CRUD and access
// logging), full-text/vector search, and embedding persistence. Graph
// structure — relationships, traversal, supersede chains — is owned
// entirely by internal/graph; this package has no graph-shaped
// interfaces of its own (§4.1, §4.3).
package storage

import (
	"context"
	"time"

	"github.com/upstarter/engram/pkg/types"
)

// MemoryStore provides CRUD operations and pagination for memories. This
// is the core storage interface for memory lifecycle management (§4.1
// Record Store).
type MemoryStore interface {
	// Store creates or updates a memory (upsert semantics).
	Store(ctx context.Context, memory *types.Memory) error

	// Get retrieves a memory by ID. Returns ErrNotFound if the memory
	// doesn't exist or was soft-deleted.
	Get(ctx context.Context, id string) (*types.Memory, error)

	// List retrieves memories with pagination and filtering.
	List(ctx context.Context, opts ListOptions) (*PaginatedResult[types.Memory], error)

	// Update modifies an existing memory. Returns ErrNotFound if the
	// memory doesn't exist.
	Update(ctx context.Context, memory *types.Memory) error

	// Delete soft-deletes a memory by ID (sets deleted_at).
	// Returns ErrNotFound if the memory doesn't exist.
	Delete(ctx context.Context, id string) error

	// Purge hard-deletes a memory by ID (permanent removal).
	// Returns ErrNotFound if the memory doesn't exist.
	Purge(ctx context.Context, id string) error

	// Restore un-deletes a soft-deleted memory by clearing deleted_at.
	// Returns ErrNotFound if the memory doesn't exist or wasn't deleted.
	Restore(ctx context.Context, id string) error

	// UpdateStatus transitions a memory's lifecycle status (§3 Lifecycle).
	// Returns ErrNotFound if the memory doesn't exist.
	UpdateStatus(ctx context.Context, id string, status types.MemoryStatus) error

	// RecordAccess atomically increments access_count, increments
	// surface_count when fromRecall is true, sets validated once
	// surface_count reaches the implicit-validation threshold (§4.5.7),
	// and updates accessed_at. Returns ErrNotFound if the memory doesn't
	// exist.
	RecordAccess(ctx context.Context, id string, fromRecall bool) error

	// Stats returns aggregate counts used by the stats() operation
	// (§4.5.8): total memories, counts by status, counts by memory_type,
	// and the oldest/newest created_at.
	Stats(ctx context.Context) (*Stats, error)

	// ValidationCandidates returns active memories with
	// surface_count >= minSurfaces and validated == false, ordered by
	// surface_count descending, for the validation_candidates() operation.
	ValidationCandidates(ctx context.Context, minSurfaces int, limit int) ([]*types.Memory, error)

	// PruneCandidates returns active memories last accessed before
	// cutoff with importance below maxImportance, for the
	// prune_candidates() operation.
	PruneCandidates(ctx context.Context, cutoff time.Time, maxImportance float64, limit int) ([]*types.Memory, error)

	// AppendAccessLog appends one row to the access_log table (§4.1c):
	// every recall/context surfacing of a memory, with the query it was
	// surfaced for and the relevance score it scored at. If row.ID is
	// empty the store generates one (google/uuid).
	AppendAccessLog(ctx context.Context, row AccessLogRow) error

	// AvgRelevanceSince returns, per memory id, the average relevance
	// logged in access_log at or after since — the avg(relevance) half of
	// validation_candidates()'s access_count * avg(relevance) ranking
	// (§4.5.8). Memories with no logged access in the window are absent
	// from the returned map.
	AvgRelevanceSince(ctx context.Context, since time.Time) (map[string]float64, error)

	// Close releases any resources held by the store.
	Close() error
}

// Stats is the aggregate summary returned by MemoryStore.Stats.
type Stats struct {
	Total           int
	ByStatus        map[types.MemoryStatus]int
	ByType          map[types.MemoryType]int
	OldestCreatedAt time.Time
	NewestCreatedAt time.Time
}

// SearchProvider provides full-text and vector search capabilities (§4.1,
// §4.2).
type SearchProvider interface {
	// FullTextSearch performs full-text search across memory content.
	FullTextSearch(ctx context.Context, opts SearchOptions) (*PaginatedResult[types.Memory], error)

	// VectorSearch performs semantic search using embeddings, returning
	// ids and cosine distances ascending (§4.2 top_k).
	VectorSearch(ctx context.Context, query []float32, opts SearchOptions) ([]VectorMatch, error)

	// HybridSearch combines full-text and vector search via reciprocal
	// rank fusion.
	HybridSearch(ctx context.Context, text string, vector []float32, opts SearchOptions) (*PaginatedResult[types.Memory], error)
}

// VectorMatch is one result from VectorSearch: a memory id and its cosine
// distance to the query vector (ascending = more similar).
type VectorMatch struct {
	ID       string
	Distance float64
}

// EmbeddingProvider manages vector embeddings with dimension tracking
// (§4.2 Vector Index).
type EmbeddingProvider interface {
	// StoreEmbedding stores a vector embedding for a memory. Returns
	// ErrInvalidInput if dimension disagrees with the store's configured
	// dimension (§9 open question: refuse on mismatch rather than
	// silently pad/truncate).
	StoreEmbedding(ctx context.Context, memoryID string, embedding []float32, dimension int, model string) error

	// GetEmbedding retrieves the embedding for a memory.
	GetEmbedding(ctx context.Context, memoryID string) ([]float32, error)

	// DeleteEmbedding removes an embedding.
	DeleteEmbedding(ctx context.Context, memoryID string) error

	// Dimension returns the fixed embedding dimension this store was
	// opened with.
	Dimension() int
}
