package types

import "time"

// Entity represents a named graph node extracted from or explicitly added
// to memories. Entities are one of the two node kinds in the knowledge
// graph (the other being Memory); see package graph for the tagged-union
// representation used once a node enters the graph store.
type Entity struct {
	// ID has the canonical form entity:<entity_type>:<slug>, where slug is
	// the lowercased Name with whitespace normalized to underscores.
	// Construction is deterministic: the same (EntityType, Name) always
	// yields the same ID, which is what makes add_entity idempotent.
	ID          string       `json:"id"`
	EntityType  EntityType   `json:"entity_type"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Status      EntityStatus `json:"status"`
	Priority    Priority     `json:"priority,omitempty"`

	Aliases  []string               `json:"aliases,omitempty"`
	Tags     []string               `json:"tags,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Embedding lets the engine compute entity-to-entity similarity for
	// hub/clustering queries; optional, populated lazily.
	Embedding          []float32 `json:"embedding,omitempty"`
	EmbeddingModel     string    `json:"embedding_model,omitempty"`
	EmbeddingDimension int       `json:"embedding_dimension,omitempty"`

	// Statistics and provenance, maintained as memories reference this entity.
	MemoryCount int       `json:"memory_count,omitempty"`
	FirstSeen   time.Time `json:"first_seen,omitempty"`
	LastSeen    time.Time `json:"last_seen,omitempty"`

	// Reinforcement mirrors validate_memory's confidence formula (§4.5.7)
	// for the case where repeated references reinforce an entity itself,
	// e.g. a goal mentioned by many memories.
	ValidationCount int        `json:"validation_count,omitempty"`
	LastValidated   *time.Time `json:"last_validated,omitempty"`
	Confidence      float64    `json:"confidence,omitempty"`
}
