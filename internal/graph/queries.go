package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/upstarter/engram/internal/storage"
	"github.com/upstarter/engram/pkg/types"
)

// RelatedMemories returns memory ids reachable from id within depth hops
// (depth capped at 2 per §4.3), excluding id itself.
func (g *Graph) RelatedMemories(ctx context.Context, id string, depth int) ([]string, error) {
	if depth > 2 {
		depth = 2
	}
	bounds := storage.GraphBounds{MaxHops: depth, MaxNodes: 200, MaxEdges: 1000}
	bounds.Normalize()
	bounds.MaxHops = depth

	ids, err := g.RelatedBounded(ctx, id, bounds)
	if err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(ids))
	for _, rid := range ids {
		if n, ok := g.nodes[rid]; ok && n.Kind == NodeKindMemory {
			out = append(out, rid)
		}
	}
	return out, nil
}

// MemoriesByEntity returns the ids of memories with a mentions edge to
// entityID.
func (g *Graph) MemoriesByEntity(entityID string) []string {
	var out []string
	for _, e := range g.Predecessors(entityID) {
		if e.Type != types.RelMentions {
			continue
		}
		if n, ok := g.Node(e.FromID); ok && n.Kind == NodeKindMemory {
			out = append(out, e.FromID)
		}
	}
	return out
}

// BlockersFor returns the ids of nodes blocking goalID: nodes X with an
// edge X -blocks-> goalID, or equivalently goalID -blocked_by-> X.
func (g *Graph) BlockersFor(goalID string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range g.Predecessors(goalID) {
		if e.Type == types.RelBlocks && !seen[e.FromID] {
			seen[e.FromID] = true
			out = append(out, e.FromID)
		}
	}
	for _, e := range g.Successors(goalID) {
		if e.Type == types.RelBlockedBy && !seen[e.ToID] {
			seen[e.ToID] = true
			out = append(out, e.ToID)
		}
	}
	return out
}

// RequirementsFor returns the ids of nodes that taskID requires: nodes X
// with an edge taskID -requires-> X.
func (g *Graph) RequirementsFor(taskID string) []string {
	var out []string
	for _, e := range g.Successors(taskID) {
		if e.Type == types.RelRequires {
			out = append(out, e.ToID)
		}
	}
	return out
}

// Contradictions returns the ids of memories connected to memID by a
// contradicts edge, in either direction. This backs the knowledge graph's
// structural contradiction query; it is distinct from the scoring-time
// opposition-pair scan run by remember(check_conflicts=true) (§4.5.3),
// which never touches the graph.
func (g *Graph) Contradictions(memID string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range g.Successors(memID) {
		if e.Type == types.RelContradicts && !seen[e.ToID] {
			seen[e.ToID] = true
			out = append(out, e.ToID)
		}
	}
	for _, e := range g.Predecessors(memID) {
		if e.Type == types.RelContradicts && !seen[e.FromID] {
			seen[e.FromID] = true
			out = append(out, e.FromID)
		}
	}
	return out
}

// HubEntities returns the ids of the limit entities with the highest
// total degree (in-edges plus out-edges), descending, ties broken by id
// for determinism.
func (g *Graph) HubEntities(limit int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	type degree struct {
		id  string
		deg int
	}
	var degrees []degree
	for id, n := range g.nodes {
		if n.Kind != NodeKindEntity {
			continue
		}
		degrees = append(degrees, degree{id: id, deg: len(g.out[id]) + len(g.in[id])})
	}
	sort.Slice(degrees, func(i, j int) bool {
		if degrees[i].deg != degrees[j].deg {
			return degrees[i].deg > degrees[j].deg
		}
		return degrees[i].id < degrees[j].id
	})
	if limit > len(degrees) {
		limit = len(degrees)
	}
	if limit < 0 {
		limit = 0
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = degrees[i].id
	}
	return out
}

// CurrentVersion walks reverse supersedes edges from memID — edges of the
// form X -supersedes-> memID — following each superseder in turn, with
// cycle detection, until no further superseder exists. Returns memID
// itself if it was never superseded (§3 Supersedes chains are acyclic;
// terminates per the invariant in §8).
func (g *Graph) CurrentVersion(memID string) string {
	current := memID
	visited := map[string]bool{current: true}
	for {
		next := ""
		for _, e := range g.Predecessors(current) {
			if e.Type == types.RelSupersedes {
				next = e.FromID
				break
			}
		}
		if next == "" || visited[next] {
			return current
		}
		visited[next] = true
		current = next
	}
}

// VisualizeNeighborhood renders an ASCII tree of id's immediate
// successors and predecessors.
func (g *Graph) VisualizeNeighborhood(id string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", id)

	succ := g.Successors(id)
	for i, e := range succ {
		branch := "├─"
		if i == len(succ)-1 {
			branch = "└─"
		}
		fmt.Fprintf(&b, "%s %s → %s\n", branch, e.Type, e.ToID)
	}

	pred := g.Predecessors(id)
	if len(pred) > 0 {
		fmt.Fprintf(&b, "(predecessors)\n")
		for i, e := range pred {
			branch := "├─"
			if i == len(pred)-1 {
				branch = "└─"
			}
			fmt.Fprintf(&b, "%s %s ← %s\n", branch, e.Type, e.FromID)
		}
	}
	return b.String()
}
