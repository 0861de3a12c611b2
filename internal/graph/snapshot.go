package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/upstarter/engram/pkg/types"
)

// snapshotNode and snapshotEdge are the on-disk shapes written to
// knowledge_graph.json. They mirror Node/Edge but are plain, fully
// JSON-tagged structs so the file format doesn't silently change if the
// in-memory layout does.
type snapshotNode struct {
	Kind   NodeKind     `json:"kind"`
	Memory *MemoryAttrs `json:"memory,omitempty"`
	Entity *EntityAttrs `json:"entity,omitempty"`
}

type snapshotEdge struct {
	ID         string             `json:"id"`
	FromID     string             `json:"from_id"`
	ToID       string             `json:"to_id"`
	Type       types.RelationType `json:"type"`
	Strength   float64            `json:"strength"`
	Confidence float64            `json:"confidence"`
	CreatedAt  string             `json:"created_at"`
	CreatedBy  types.CreatedBy    `json:"created_by"`
	Evidence   string             `json:"evidence,omitempty"`
}

type snapshotDoc struct {
	Nodes map[string]snapshotNode `json:"nodes"`
	Edges []snapshotEdge          `json:"edges"`
}

// Save serializes the graph to path, writing to a temp file in the same
// directory first and renaming over the destination so a crash mid-write
// never leaves a truncated snapshot (snapshot-persisted after every
// mutating call, per §4.3).
func (g *Graph) Save(path string) error {
	g.mu.RLock()
	doc := snapshotDoc{
		Nodes: make(map[string]snapshotNode, len(g.nodes)),
		Edges: make([]snapshotEdge, 0, len(g.edges)),
	}
	for id, n := range g.nodes {
		doc.Nodes[id] = snapshotNode{Kind: n.Kind, Memory: n.Memory, Entity: n.Entity}
	}
	for _, e := range g.edges {
		doc.Edges = append(doc.Edges, snapshotEdge{
			ID: e.ID, FromID: e.FromID, ToID: e.ToID, Type: e.Type,
			Strength: e.Strength, Confidence: e.Confidence,
			CreatedAt: e.CreatedAt.Format(timeLayout),
			CreatedBy: e.CreatedBy, Evidence: e.Evidence,
		})
	}
	g.mu.RUnlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("graph snapshot: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("graph snapshot: mkdir %s: %w", dir, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("graph snapshot: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("graph snapshot: rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

const timeLayout = "2006-01-02T15:04:05.999999999Z07:00"

// Load reads a snapshot from path and replaces g's contents. A missing
// file is not an error: the graph starts empty, matching a fresh install.
//
// legacySweep, when true, drops nodes with malformed ids (matching the
// historical defensive behavior the source used at every load) instead of
// failing to load the snapshot outright. Fresh writes from this system
// never produce malformed ids — AddMemoryNode/AddEntityNode reject them at
// insertion — so legacySweep only matters when importing a pre-existing
// snapshot from an older or foreign installation (§9 open question).
func (g *Graph) Load(path string, legacySweep bool) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("graph snapshot: read %s: %w", path, err)
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("graph snapshot: unmarshal %s: %w", path, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]*Node, len(doc.Nodes))
	g.out = make(map[string][]string)
	g.in = make(map[string][]string)
	g.edges = make(map[string]*Edge, len(doc.Edges))

	for id, sn := range doc.Nodes {
		if legacySweep && !legacyIDIsSane(id, sn) {
			continue
		}
		g.nodes[id] = &Node{Kind: sn.Kind, Memory: sn.Memory, Entity: sn.Entity}
	}

	for _, se := range doc.Edges {
		if _, ok := g.nodes[se.FromID]; !ok {
			continue
		}
		if _, ok := g.nodes[se.ToID]; !ok {
			continue
		}
		createdAt, _ := parseSnapshotTime(se.CreatedAt)
		e := &Edge{
			ID: se.ID, FromID: se.FromID, ToID: se.ToID, Type: se.Type,
			Strength: se.Strength, Confidence: se.Confidence,
			CreatedAt: createdAt, CreatedBy: se.CreatedBy, Evidence: se.Evidence,
		}
		g.edges[e.ID] = e
		g.out[e.FromID] = append(g.out[e.FromID], e.ID)
		g.in[e.ToID] = append(g.in[e.ToID], e.ID)
	}

	return nil
}

func parseSnapshotTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

func legacyIDIsSane(id string, sn snapshotNode) bool {
	if id == "" {
		return false
	}
	switch sn.Kind {
	case NodeKindMemory:
		return sn.Memory != nil && types.IsValidMemoryID(id)
	case NodeKindEntity:
		return sn.Entity != nil && types.IsValidEntityID(id) && sn.Entity.Name != ""
	default:
		return false
	}
}
