// Package graph implements the in-memory knowledge graph (§4.3): an
// explicit multigraph over two node kinds, Memory and Entity, connected by
// typed edges drawn from the relationship vocabulary in pkg/types. The
// graph is not a cache of the record store — it is authoritative for
// relationship structure and is snapshotted to disk as the system of
// record for edges (§9 open question: explicit multigraph, no ownership
// pointers between node kinds).
package graph

import (
	"time"

	"github.com/upstarter/engram/pkg/types"
)

// NodeKind discriminates the tagged union held by Node: exactly one of
// Memory or Entity is populated, selected by Kind (§9 open question:
// tagged union over node kinds rather than an interface with type
// switches at every call site).
type NodeKind string

const (
	NodeKindMemory NodeKind = "memory"
	NodeKindEntity NodeKind = "entity"
)

// Node is a graph vertex. Exactly one of Memory or Entity is non-nil,
// matching Kind.
type Node struct {
	Kind NodeKind

	Memory *MemoryAttrs
	Entity *EntityAttrs
}

// ID returns the node's graph id, which is the underlying memory or
// entity id.
func (n *Node) ID() string {
	switch n.Kind {
	case NodeKindMemory:
		return n.Memory.ID
	case NodeKindEntity:
		return n.Entity.ID
	default:
		return ""
	}
}

// MemoryAttrs is the subset of a Memory's fields the graph needs for its
// own queries (supersede chains, contradiction scans, impact level). The
// record store remains the source of truth for full memory content; the
// graph holds a denormalized projection updated on every write.
type MemoryAttrs struct {
	ID         string
	MemoryType types.MemoryType
	Project    string
	Content    string
	Importance float64
	Impact     string // high/medium/low, per types.ImpactLevel
	Status     types.MemoryStatus
	CreatedAt  time.Time
}

// EntityAttrs is the subset of an Entity's fields the graph needs.
type EntityAttrs struct {
	ID         string
	EntityType types.EntityType
	Name       string
	Status     types.EntityStatus
	Priority   types.Priority
	CreatedAt  time.Time
}

func nodeFromMemory(m *types.Memory) *Node {
	return &Node{
		Kind: NodeKindMemory,
		Memory: &MemoryAttrs{
			ID:         m.ID,
			MemoryType: m.MemoryType,
			Project:    m.Project,
			Content:    m.Content,
			Importance: m.Importance,
			Impact:     types.ImpactLevel(m.Importance),
			Status:     m.Status,
			CreatedAt:  m.CreatedAt,
		},
	}
}

func nodeFromEntity(e *types.Entity) *Node {
	return &Node{
		Kind: NodeKindEntity,
		Entity: &EntityAttrs{
			ID:         e.ID,
			EntityType: e.EntityType,
			Name:       e.Name,
			Status:     e.Status,
			Priority:   e.Priority,
			CreatedAt:  e.CreatedAt,
		},
	}
}

// Edge is a directed, typed connection between two nodes. Multiple edges
// of different types (or the same type with different evidence) may exist
// between the same pair of nodes — this is a multigraph, not a simple
// graph.
type Edge struct {
	ID     string
	FromID string
	ToID   string
	Type   types.RelationType

	Strength   float64
	Confidence float64
	CreatedAt  time.Time
	CreatedBy  types.CreatedBy
	Evidence   string
}
