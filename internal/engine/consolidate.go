package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/upstarter/engram/internal/storage"
	"github.com/upstarter/engram/pkg/errs"
	"github.com/upstarter/engram/pkg/types"
)

// topicWordPattern tokenizes content for topic-word extraction the same
// way extractKeywords tokenizes queries, but without the stopword filter
// applied at call sites here — topic labels are computed from a dedicated
// word-length filter (§4.5.6: "top-5 content words of length >4").
var topicWordPattern = keywordTokenPattern

// FindCandidates implements the greedy consolidation-candidate pass
// (§4.5.6): for each unassigned active memory, gather every other
// unassigned active memory whose cosine similarity is >= threshold; a
// group of >= minCluster members becomes a cluster, labeled with its
// top-5 content words of length > 4 by frequency. Clusters are returned
// sorted by size descending.
func (e *Engine) FindCandidates(ctx context.Context, threshold float64, minCluster int) ([]Cluster, error) {
	if threshold <= 0 {
		threshold = e.config.ConsolidateThreshold
	}
	if minCluster <= 0 {
		minCluster = e.config.ConsolidateMinCluster
	}

	type candidate struct {
		id      string
		vector  []float32
		content string
	}
	var candidates []candidate
	for pageNum := 1; ; pageNum++ {
		page, err := e.store.List(ctx, storage.ListOptions{Status: types.StatusActive, Limit: 100, Page: pageNum})
		if err != nil {
			return nil, errs.StorageErr(err)
		}
		for _, m := range page.Items {
			vec, err := e.embeddings.GetEmbedding(ctx, m.ID)
			if err != nil {
				continue
			}
			candidates = append(candidates, candidate{id: m.ID, vector: vec, content: m.Content})
		}
		if !page.HasMore {
			break
		}
	}

	assigned := make(map[string]bool, len(candidates))
	var clusters []Cluster

	for i := range candidates {
		if assigned[candidates[i].id] {
			continue
		}
		group := []candidate{candidates[i]}
		for j := i + 1; j < len(candidates); j++ {
			if assigned[candidates[j].id] {
				continue
			}
			if cosineSimilarity(candidates[i].vector, candidates[j].vector) >= threshold {
				group = append(group, candidates[j])
			}
		}
		if len(group) < minCluster {
			continue
		}
		ids := make([]string, len(group))
		var allContent strings.Builder
		for k, c := range group {
			ids[k] = c.id
			assigned[c.id] = true
			allContent.WriteString(c.content)
			allContent.WriteByte(' ')
		}
		clusters = append(clusters, Cluster{
			IDs:   ids,
			Topic: topicLabel(allContent.String()),
			Size:  len(ids),
		})
	}

	sort.SliceStable(clusters, func(i, j int) bool { return clusters[i].Size > clusters[j].Size })
	return clusters, nil
}

// topicLabel picks the 5 most frequent words of length > 4 across the
// cluster's combined content, joined by spaces (§4.5.6).
func topicLabel(content string) string {
	words := topicWordPattern.FindAllString(strings.ToLower(content), -1)
	freq := make(map[string]int)
	var order []string
	for _, w := range words {
		if len(w) <= 4 {
			continue
		}
		if freq[w] == 0 {
			order = append(order, w)
		}
		freq[w]++
	}
	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	if len(order) > 5 {
		order = order[:5]
	}
	return strings.Join(order, " ")
}

// cosineSimilarity assumes both vectors are non-empty and the same
// length, as guaranteed by a single embedder configuration.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Consolidate creates a new memory from the given ids (§4.5.6), inheriting
// project from the first id, then marks each original's
// metadata.consolidated_into and removes it from the Vector Index. The
// originals' record rows and graph edges are preserved; only vector
// searchability is removed.
func (e *Engine) Consolidate(ctx context.Context, ids []string, content string, memoryType types.MemoryType, importance float64, opts RememberOptions) (string, error) {
	if len(ids) == 0 {
		return "", errs.Validation("engine: consolidate: ids is required")
	}
	if memoryType == "" {
		memoryType = types.MemoryTypePattern
	}
	if importance <= 0 {
		importance = 0.8
	}

	first, err := e.store.Get(ctx, ids[0])
	if err != nil {
		return "", fmt.Errorf("engine: consolidate: %w", err)
	}

	if opts.Metadata == nil {
		opts.Metadata = map[string]interface{}{}
	}
	opts.Metadata["consolidated_from"] = ids
	opts.Metadata["consolidated_at"] = time.Now().Format(time.RFC3339)
	opts.Project = first.Project

	result, err := e.Remember(ctx, content, memoryType, importance, opts)
	if err != nil {
		return "", fmt.Errorf("engine: consolidate: creating consolidated memory: %w", err)
	}
	if result.HasConflicts() {
		return "", fmt.Errorf("engine: consolidate: conflicting content, refused by the contradiction scan")
	}

	for _, id := range ids {
		old, err := e.store.Get(ctx, id)
		if err != nil {
			continue
		}
		if old.Metadata == nil {
			old.Metadata = map[string]interface{}{}
		}
		old.Metadata["consolidated_into"] = result.ID
		if err := e.store.Store(ctx, old); err != nil {
			return result.ID, fmt.Errorf("engine: consolidate: marking %s consolidated: %w", id, err)
		}
		if err := e.embeddings.DeleteEmbedding(ctx, id); err != nil {
			// Already gone or never embedded: not an error for this step.
			continue
		}
	}

	return result.ID, nil
}
