package types

import (
	"strings"
	"time"
)

// Memory is the atomic unit of stored information (§3 Data model).
type Memory struct {
	// ID has the canonical form mem_<12 lowercase hex chars>, generated by
	// GenerateMemoryID.
	ID      string `json:"id"`
	Content string `json:"content"`

	// MemoryType is open-valued: see IsKnownMemoryType.
	MemoryType MemoryType `json:"memory_type"`

	// Project is an opaque project tag; empty string denotes "universal"
	// (the spec's None/null project).
	Project string `json:"project,omitempty"`

	// SourceRole is the opaque originating-agent tag used for role-affinity
	// scoring (§4.5.2).
	SourceRole string `json:"source_role,omitempty"`

	// Importance is clamped to [0,1] on every write path.
	Importance float64 `json:"importance"`

	CreatedAt  time.Time `json:"created_at"`
	AccessedAt time.Time `json:"accessed_at"`

	AccessCount  int  `json:"access_count"`
	SurfaceCount int  `json:"surface_count"`
	Validated    bool `json:"validated"`

	Status MemoryStatus `json:"status"`

	// Metadata holds free-form fields plus the engine-written bookkeeping
	// keys: superseded_by, consolidated_into, consolidated_from,
	// consolidated_at, validation_count, last_validated, confidence.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Tags     []string               `json:"tags,omitempty"`

	// Embedding fields. Dimension must match the configured embedder's
	// output dimension; StoreEmbedding refuses a vector of another
	// dimension. The dimension is not checked when a store is opened.
	Embedding          []float32 `json:"embedding,omitempty"`
	EmbeddingModel     string    `json:"embedding_model,omitempty"`
	EmbeddingDimension int       `json:"embedding_dimension,omitempty"`

	// Provenance.
	CreatedBy     CreatedBy              `json:"created_by,omitempty"`
	SessionID     string                 `json:"session_id,omitempty"`
	SourceContext map[string]interface{} `json:"source_context,omitempty"`

	// ContentHash is a SHA-256 hash of Content, used for deduplication
	// detection (not itself a uniqueness constraint).
	ContentHash string `json:"content_hash,omitempty"`

	// SupersedesID names the memory this one directly supersedes, when
	// created via remember(supersede=[...]). The graph also carries the
	// corresponding supersedes edge; this field is a convenience mirror.
	SupersedesID string `json:"supersedes_id,omitempty"`

	// DeletedAt marks a soft-delete (grace-period recovery window) distinct
	// from the hard delete(id) operation, which removes the row entirely.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// EffectiveProject returns "" to mean "universal" consistently, normalizing
// whitespace-only project tags written by older callers.
func (m *Memory) EffectiveProject() string {
	if strings.TrimSpace(m.Project) == "" {
		return ""
	}
	return m.Project
}

// IsUniversal reports whether the memory has no project scope.
func (m *Memory) IsUniversal() bool {
	return m.Project == ""
}

// ClampImportance clamps v to [0,1], per the importance invariant (§3).
func ClampImportance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ImpactLevel classifies importance into the high/medium/low bands used by
// the graph node's initial "impact" attribute (§4.5 step 6): >=0.7 high,
// >=0.4 medium, else low.
func ImpactLevel(importance float64) string {
	switch {
	case importance >= 0.7:
		return "high"
	case importance >= 0.4:
		return "medium"
	default:
		return "low"
	}
}
