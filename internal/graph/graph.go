package graph

import (
	"fmt"
	"sync"
	"time"

	"github.com/upstarter/engram/internal/storage"
	"github.com/upstarter/engram/pkg/types"
)

// Graph is the in-memory knowledge graph store. All mutating and
// traversal methods are safe for concurrent use; a single sync.RWMutex
// guards the whole structure (§5 concurrency model — the graph is not
// sharded, since the node/edge counts this system operates at don't
// warrant the complexity).
type Graph struct {
	mu sync.RWMutex

	nodes map[string]*Node

	// out and in index edges by (nodeID -> []edgeID) in each direction.
	out map[string][]string
	in  map[string][]string

	edges map[string]*Edge

	edgeSeq int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
		edges: make(map[string]*Edge),
	}
}

// AddMemoryNode inserts or replaces the graph's projection of a memory
// node. Malformed ids (anything not matching the mem_<12 hex> form) are
// rejected here, at insertion time, rather than swept for at load time
// (§9 open question).
func (g *Graph) AddMemoryNode(m *types.Memory) error {
	if err := validateMemoryID(m.ID); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[m.ID] = nodeFromMemory(m)
	return nil
}

// AddEntityNode inserts or replaces the graph's projection of an entity
// node.
func (g *Graph) AddEntityNode(e *types.Entity) error {
	if err := validateEntityID(e.ID); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[e.ID] = nodeFromEntity(e)
	return nil
}

// UpdateNodeAttr applies mutate to the node identified by id, under the
// write lock, and returns storage.ErrNotFound if no such node exists.
func (g *Graph) UpdateNodeAttr(id string, mutate func(n *Node)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("node %s: %w", id, storage.ErrNotFound)
	}
	mutate(n)
	return nil
}

// RemoveNode deletes the node and every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("node %s: %w", id, storage.ErrNotFound)
	}
	for _, eid := range append([]string{}, g.out[id]...) {
		g.removeEdgeLocked(eid)
	}
	for _, eid := range append([]string{}, g.in[id]...) {
		g.removeEdgeLocked(eid)
	}
	delete(g.nodes, id)
	delete(g.out, id)
	delete(g.in, id)
	return nil
}

func (g *Graph) removeEdgeLocked(eid string) {
	e, ok := g.edges[eid]
	if !ok {
		return
	}
	g.out[e.FromID] = removeString(g.out[e.FromID], eid)
	g.in[e.ToID] = removeString(g.in[e.ToID], eid)
	delete(g.edges, eid)
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// Node returns the node for id, if present.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// AddEdge inserts a directed edge from e.FromID to e.ToID. Both endpoints
// must already exist as nodes (endpoint-existence enforcement per §4.3);
// if rel.Bidirectional is true and the vocabulary defines a reverse label
// for rel.Type, a second edge in the opposite direction is written
// automatically with that reverse label.
func (g *Graph) AddEdge(rel *types.Relationship) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[rel.FromID]; !ok {
		return fmt.Errorf("add_edge: endpoint %s: %w", rel.FromID, storage.ErrNotFound)
	}
	if _, ok := g.nodes[rel.ToID]; !ok {
		return fmt.Errorf("add_edge: endpoint %s: %w", rel.ToID, storage.ErrNotFound)
	}
	if !types.IsValidRelationType(rel.Type) {
		return fmt.Errorf("add_edge: %w: unknown relation type %q", storage.ErrInvalidInput, rel.Type)
	}

	g.writeEdgeLocked(rel.ID, rel.FromID, rel.ToID, rel.Type, rel)

	if rel.Bidirectional {
		if rev, ok := types.ReverseOf(rel.Type); ok {
			g.edgeSeq++
			revID := fmt.Sprintf("%s_rev%d", rel.ID, g.edgeSeq)
			g.writeEdgeLocked(revID, rel.ToID, rel.FromID, rev, rel)
		}
	}
	return nil
}

func (g *Graph) writeEdgeLocked(id, from, to string, relType types.RelationType, rel *types.Relationship) {
	e := &Edge{
		ID:         id,
		FromID:     from,
		ToID:       to,
		Type:       relType,
		Strength:   rel.Strength,
		Confidence: rel.Confidence,
		CreatedAt:  rel.CreatedAt,
		CreatedBy:  rel.CreatedBy,
		Evidence:   rel.Evidence,
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	g.edges[id] = e
	g.out[from] = append(g.out[from], id)
	g.in[to] = append(g.in[to], id)
}

// Successors returns the edges leaving id.
func (g *Graph) Successors(id string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgesByIDs(g.out[id])
}

// Predecessors returns the edges arriving at id.
func (g *Graph) Predecessors(id string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgesByIDs(g.in[id])
}

// EdgesOfType returns every edge in the graph with the given relation type.
func (g *Graph) EdgesOfType(relType types.RelationType) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Edge
	for _, e := range g.edges {
		if e.Type == relType {
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) edgesByIDs(ids []string) []*Edge {
	out := make([]*Edge, 0, len(ids))
	for _, id := range ids {
		if e, ok := g.edges[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// NodeCount and EdgeCount report the current graph size, used by stats().
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}
