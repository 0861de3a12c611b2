package engine

import (
	"context"
	"sort"
	"time"

	"github.com/upstarter/engram/internal/storage"
	"github.com/upstarter/engram/pkg/errs"
	"github.com/upstarter/engram/pkg/types"
)

// GetStats aggregates Record Store totals with graph node/edge/type
// histograms (§4.5.8).
func (e *Engine) GetStats(ctx context.Context) (*Stats, error) {
	storeStats, err := e.store.Stats(ctx)
	if err != nil {
		return nil, errs.StorageErr(err)
	}

	byProject := make(map[string]int)
	for pageNum := 1; ; pageNum++ {
		page, err := e.store.List(ctx, storage.ListOptions{Page: pageNum, Limit: 100})
		if err != nil {
			return nil, errs.StorageErr(err)
		}
		for _, m := range page.Items {
			byProject[m.Project]++
		}
		if !page.HasMore {
			break
		}
	}

	e.graphMu.RLock()
	nodeCount := e.graph.NodeCount()
	edgeCount := e.graph.EdgeCount()
	typeCounts := make(map[types.RelationType]int)
	for _, rt := range types.ValidRelationTypes {
		if n := len(e.graph.EdgesOfType(rt)); n > 0 {
			typeCounts[rt] = n
		}
	}
	e.graphMu.RUnlock()

	return &Stats{
		Total:           storeStats.Total,
		ByType:          storeStats.ByType,
		ByProject:       byProject,
		ActiveCount:     storeStats.ByStatus[types.StatusActive],
		ArchivedCount:   storeStats.ByStatus[types.StatusArchived],
		GraphNodeCount:  nodeCount,
		GraphEdgeCount:  edgeCount,
		GraphTypeCounts: typeCounts,
	}, nil
}

// ValidationCandidates returns active, not-yet-validated memories with
// surface_count >= 3 (the store's filter; access_count is not checked)
// accessed within the last 30 days, ranked by access_count * avg(relevance)
// descending (§4.5.8). avg(relevance) comes from access_log rows logged
// over the same 30-day window; memories with no logged access (e.g.
// surfaced only before access logging existed) score 0 and sort last.
func (e *Engine) ValidationCandidates(ctx context.Context, limit int) ([]*types.Memory, error) {
	candidates, err := e.store.ValidationCandidates(ctx, 3, limit)
	if err != nil {
		return nil, errs.StorageErr(err)
	}
	cutoff := time.Now().AddDate(0, 0, -30)
	avgRelevance, err := e.store.AvgRelevanceSince(ctx, cutoff)
	if err != nil {
		return nil, errs.StorageErr(err)
	}
	filtered := candidates[:0]
	for _, m := range candidates {
		if m.AccessedAt.After(cutoff) {
			filtered = append(filtered, m)
		}
	}
	rank := func(m *types.Memory) float64 {
		return float64(m.AccessCount) * avgRelevance[m.ID]
	}
	sort.SliceStable(filtered, func(i, j int) bool { return rank(filtered[i]) > rank(filtered[j]) })
	return filtered, nil
}

// PruneCandidates returns active memories older than 30 days with
// access_count < 3, importance < 0.7, and not already marked archived in
// metadata, ranked by importance ascending then access_count ascending
// (§4.5.8).
func (e *Engine) PruneCandidates(ctx context.Context, limit int) ([]*types.Memory, error) {
	cutoff := time.Now().AddDate(0, 0, -30)
	candidates, err := e.store.PruneCandidates(ctx, cutoff, 0.7, limit)
	if err != nil {
		return nil, errs.StorageErr(err)
	}
	filtered := candidates[:0]
	for _, m := range candidates {
		if archived, _ := m.Metadata["archived"].(bool); archived {
			continue
		}
		filtered = append(filtered, m)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Importance != filtered[j].Importance {
			return filtered[i].Importance < filtered[j].Importance
		}
		return filtered[i].AccessCount < filtered[j].AccessCount
	})
	return filtered, nil
}
