// Package engine implements the Memory Engine (§4.5): the orchestrator that
// ties the Record Store, Vector Index, and Knowledge Graph into the
// remember/recall/consolidate/validate operation set. A single Engine
// instance owns one in-memory graph guarded by a readers-writer lock and
// one transactional record/vector backend pair (§5 concurrency model).
package engine

import (
	"time"

	"github.com/upstarter/engram/pkg/types"
)

// Config holds the tunables the Memory Engine needs beyond the storage
// backend itself. Unlike the donor's worker-pool Config, there is no queue
// size or worker count here: auto-extraction runs synchronously inline
// with remember() (§4.5.4), not on a background job queue.
type Config struct {
	// EmbeddingDimension is the fixed width every Embedder and
	// EmbeddingProvider in this engine instance must agree on (§9 open
	// question).
	EmbeddingDimension int

	// ValidationSurfaceThreshold is the surface_count at which a memory is
	// implicitly validated by recall (§4.5.1 step 4; the testable property
	// in §8 fixes this at 5).
	ValidationSurfaceThreshold int

	// GraphSnapshotPath is where the knowledge graph is persisted. Empty
	// (the DefaultConfig value) disables loading and saving the snapshot;
	// cmd/engram-mcp sets it to <data dir>/knowledge_graph.json.
	GraphSnapshotPath string

	// ConsolidateThreshold and ConsolidateMinCluster are the defaults for
	// find_candidates (§4.5.6).
	ConsolidateThreshold  float64
	ConsolidateMinCluster int

	// DecayHalfLifeDays overrides the ~30-day half-life baked into the
	// freshness term of the composite scoring formula (§4.5.2). Zero means
	// "use the formula's own constant" — the default below reproduces the
	// authoritative 0.023/day decay rate exactly, so leaving this unset
	// never changes recall ranking.
	DecayHalfLifeDays float64
}

// DefaultConfig returns sensible defaults matching the spec's authoritative
// constants.
func DefaultConfig() Config {
	return Config{
		EmbeddingDimension:         768,
		ValidationSurfaceThreshold: 5,
		GraphSnapshotPath:          "",
		ConsolidateThreshold:       0.85,
		ConsolidateMinCluster:      3,
		DecayHalfLifeDays:          30,
	}
}

// RememberOptions carries the optional arguments to Remember beyond
// content/memory_type/importance (§4.5.1).
type RememberOptions struct {
	Project        string
	SourceRole     string
	Metadata       map[string]interface{}
	Tags           []string
	CheckConflicts bool
	Supersede      []string
	CreatedBy      types.CreatedBy
	SessionID      string
}

// RememberResult is what Remember returns: either a new memory id, or — if
// CheckConflicts found conflicts — the conflict payload with no write
// performed.
type RememberResult struct {
	ID        string
	Conflicts []Conflict
}

// HasConflicts reports whether remember() stopped short of writing because
// check_conflicts=true surfaced a conflict set.
func (r *RememberResult) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// Conflict is one entry in the contradiction-scan payload (§4.5.3).
type Conflict struct {
	Memory         types.Memory
	Similarity     float64
	ConflictReason string
}

// RecallOptions carries the optional arguments to Recall (§4.5.1).
type RecallOptions struct {
	Limit        int
	Project      string
	ProjectSet   bool
	MemoryTypes  []types.MemoryType
	CurrentRole  string
	HybridSearch bool
}

// RecallResult is one scored memory returned by Recall, carrying every
// field the contract in §4.5.1 names.
type RecallResult struct {
	ID             string
	Content        string
	MemoryType     types.MemoryType
	Project        string
	SourceRole     string
	Importance     float64
	Relevance      float64
	Similarity     float64
	Freshness      float64
	RoleAffinity   float64
	KeywordBoost   float64
	KeywordMatches int
	AccessCount    int
	CreatedAt      time.Time
}

// ContextOptions carries the optional arguments to Context (§4.5.5).
type ContextOptions struct {
	Cwd         string
	Limit       int
	CurrentRole string
}

// Cluster is one consolidation candidate group (§4.5.6).
type Cluster struct {
	IDs   []string
	Topic string
	Size  int
}

// ConsolidateOptions carries the optional arguments to Consolidate.
type ConsolidateOptions struct {
	MemoryType types.MemoryType
	Importance float64
}

// Stats aggregates record-store and graph counts for get_stats() (§4.5.8).
type Stats struct {
	Total           int
	ByType          map[types.MemoryType]int
	ByProject       map[string]int
	ActiveCount     int
	ArchivedCount   int
	GraphNodeCount  int
	GraphEdgeCount  int
	GraphTypeCounts map[types.RelationType]int
}
