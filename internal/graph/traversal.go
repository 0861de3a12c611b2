package graph

import (
	"context"

	"github.com/upstarter/engram/internal/storage"
)

// PathResult represents a path between two nodes in the graph.
type PathResult struct {
	Path       []string
	Distance   int
	Confidence float64
	Truncated  bool
}

// breadthFirstSearch performs bounded BFS starting from startID, walking
// outgoing edges only. visitor is called for each node visited with its
// depth from startID; returning false stops traversal early. Adapted from
// the donor's GraphTraversal.BreadthFirstSearch, retargeted to walk this
// package's own adjacency instead of a relational neighbor query.
func (g *Graph) breadthFirstSearch(ctx context.Context, startID string, bounds storage.GraphBounds, visitor func(id string, depth int) bool) error {
	bounds.Normalize()
	checker := newBoundsChecker(bounds)

	type queueItem struct {
		id    string
		depth int
	}

	queue := []queueItem{{startID, 0}}
	visited := make(map[string]bool)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current.id] {
			continue
		}

		visited[current.id] = true
		checker.recordNode()

		if !visitor(current.id, current.depth) {
			break
		}
		if current.depth >= bounds.MaxHops {
			continue
		}
		if err := checker.canContinue(ctx, current.depth); err != nil {
			return err
		}

		for _, e := range g.Successors(current.id) {
			if !visited[e.ToID] {
				checker.recordEdge()
				queue = append(queue, queueItem{e.ToID, current.depth + 1})
			}
		}
	}
	return nil
}

// RelatedBounded returns node ids reachable from sourceID within bounds,
// excluding sourceID itself.
func (g *Graph) RelatedBounded(ctx context.Context, sourceID string, bounds storage.GraphBounds) ([]string, error) {
	related := make([]string, 0)
	err := g.breadthFirstSearch(ctx, sourceID, bounds, func(id string, depth int) bool {
		if id != sourceID {
			related = append(related, id)
		}
		return true
	})
	if err != nil {
		return related, err
	}
	return related, nil
}

// ShortestPath finds the shortest path from sourceID to targetID using
// BFS (guaranteed shortest in an unweighted graph), bounded by bounds.
// Returns (nil, false) if no path exists within bounds.
func (g *Graph) ShortestPath(ctx context.Context, sourceID, targetID string, bounds storage.GraphBounds) (*PathResult, bool) {
	if sourceID == targetID {
		return &PathResult{Path: []string{sourceID}, Distance: 0, Confidence: 1.0}, true
	}

	bounds.Normalize()
	checker := newBoundsChecker(bounds)

	type queueItem struct {
		id   string
		path []string
	}
	queue := []queueItem{{sourceID, []string{sourceID}}}
	visited := map[string]bool{sourceID: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		depth := len(current.path) - 1

		if err := checker.canContinue(ctx, depth); err != nil {
			return nil, false
		}
		checker.recordNode()

		for _, e := range g.Successors(current.id) {
			if visited[e.ToID] {
				continue
			}
			checker.recordEdge()
			nextPath := append(append([]string{}, current.path...), e.ToID)
			if e.ToID == targetID {
				return &PathResult{
					Path:       nextPath,
					Distance:   len(nextPath) - 1,
					Confidence: 1.0 / float64(len(nextPath)),
				}, true
			}
			visited[e.ToID] = true
			queue = append(queue, queueItem{e.ToID, nextPath})
		}
	}
	return nil, false
}
