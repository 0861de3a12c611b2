package types

import "time"

// Relationship represents a directed, typed edge in the knowledge graph.
// Every edge carries the attributes mandated by the data model (§3 Edge
// attributes): a label from the 27-relation vocabulary, strength,
// confidence, provenance, optional supporting evidence, and a
// bidirectional flag that tells the graph whether to also write the
// reverse edge.
type Relationship struct {
	ID     string       `json:"id"`
	FromID string       `json:"from_id"`
	ToID   string       `json:"to_id"`
	Type   RelationType `json:"type"`

	Strength   float64 `json:"strength"`
	Confidence float64 `json:"confidence"`

	CreatedAt     time.Time `json:"created_at"`
	CreatedBy     CreatedBy `json:"created_by"`
	Bidirectional bool      `json:"bidirectional"`

	// Evidence is the id of a memory that supports this edge, when known.
	Evidence string `json:"evidence,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// IsBidirectional reports whether the graph should also write the reverse
// edge when this relationship is added.
func (r *Relationship) IsBidirectional() bool {
	return r.Bidirectional
}

// Reverse returns the reverse relation type for r.Type per the vocabulary's
// reverse-pair table (§4.4), and false if no reverse is defined.
func (r *Relationship) Reverse() (RelationType, bool) {
	return ReverseOf(r.Type)
}
