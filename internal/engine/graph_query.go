package engine

import (
	"context"
	"fmt"

	"github.com/upstarter/engram/internal/graph"
)

// Related returns ids reachable from id within depth hops (capped at 2 by
// the graph package itself), for the `related` tool surface (§6).
func (e *Engine) Related(ctx context.Context, id string, depth int) ([]string, error) {
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()
	return e.graph.RelatedMemories(ctx, id, depth)
}

// GraphQuery dispatches the handful of named graph queries the `graph`
// tool surface exposes (§6): blockers/requirements/contradictions for a
// single node, hub entities, current-version resolution, and an
// ASCII-tree neighborhood view for human inspection.
func (e *Engine) GraphQuery(kind string, id string, limit int) (interface{}, error) {
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()

	switch kind {
	case "blockers":
		return e.graph.BlockersFor(id), nil
	case "requirements":
		return e.graph.RequirementsFor(id), nil
	case "contradictions":
		return e.graph.Contradictions(id), nil
	case "memories_by_entity":
		return e.graph.MemoriesByEntity(id), nil
	case "hub_entities":
		return e.graph.HubEntities(limit), nil
	case "current_version":
		return e.graph.CurrentVersion(id), nil
	case "visualize":
		return e.graph.VisualizeNeighborhood(id), nil
	default:
		return nil, fmt.Errorf("engine: graph query: unknown kind %q", kind)
	}
}

// Node exposes a single graph node for read-only inspection.
func (e *Engine) Node(id string) (*graph.Node, bool) {
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()
	return e.graph.Node(id)
}
