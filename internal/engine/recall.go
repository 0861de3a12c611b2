package engine

import (
	"context"
	"errors"
	"log"
	"regexp"
	"sort"
	"time"

	"github.com/upstarter/engram/internal/storage"
	"github.com/upstarter/engram/pkg/errs"
	"github.com/upstarter/engram/pkg/types"
)

// Recall searches for memories by meaning with hybrid semantic + keyword
// search (§4.5.1). Scoring uses the fetched memory's pre-access-update
// state (access_count, accessed_at) — RecordAccess, called after the
// score is computed, both persists the increment and handles implicit
// validation once surface_count crosses the configured threshold
// (§4.5.7, §8 property 5).
func (e *Engine) Recall(ctx context.Context, query string, opts RecallOptions) ([]RecallResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errs.EmbedErr(err)
	}

	var keywords []string
	if opts.HybridSearch {
		keywords = extractKeywords(query)
	}

	searchOpts := storage.SearchOptions{Limit: opts.Limit * 2}
	if opts.ProjectSet {
		searchOpts.Project, searchOpts.ProjectSet = opts.Project, true
	}

	matches, err := e.search.VectorSearch(ctx, vector, searchOpts)
	if err != nil {
		return nil, errs.StorageErr(err)
	}

	results := make([]RecallResult, 0, len(matches))
	for _, match := range matches {
		mem, err := e.store.Get(ctx, match.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, errs.StorageErr(err)
		}
		if mem.Status != types.StatusActive {
			continue
		}

		lastTouch := mem.AccessedAt
		if mem.CreatedAt.After(lastTouch) {
			lastTouch = mem.CreatedAt
		}
		daysSince := time.Since(lastTouch).Hours() / 24.0

		score := computeCompositeScore(compositeScoreInput{
			similarity:  1 - match.Distance,
			importance:  mem.Importance,
			accessCount: mem.AccessCount,
			daysSince:   daysSince,
			keywords:    keywords,
			content:     mem.Content,
			currentRole: opts.CurrentRole,
			sourceRole:  mem.SourceRole,
			decayRate:   e.decayRate(),
		})

		// RecordAccess persists the increment and also flips validated once
		// surface_count crosses the threshold (§4.5.7); the score above was
		// already computed from the pre-update row, matching the original
		// recall()'s literal fetch-before-update ordering.
		if err := e.store.RecordAccess(ctx, mem.ID, true); err != nil {
			log.Printf("engine: recall: recording access for %s failed: %v", mem.ID, err)
		}
		if err := e.store.AppendAccessLog(ctx, storage.AccessLogRow{
			MemoryID:  mem.ID,
			Query:     query,
			Role:      opts.CurrentRole,
			Project:   mem.Project,
			Relevance: score.Relevance,
		}); err != nil {
			log.Printf("engine: recall: appending access log for %s failed: %v", mem.ID, err)
		}

		results = append(results, RecallResult{
			ID:             mem.ID,
			Content:        mem.Content,
			MemoryType:     mem.MemoryType,
			Project:        mem.Project,
			SourceRole:     mem.SourceRole,
			Importance:     mem.Importance,
			Relevance:      score.Relevance,
			Similarity:     score.Similarity,
			Freshness:      score.Freshness,
			RoleAffinity:   score.RoleAffinity,
			KeywordBoost:   score.KeywordBoost,
			KeywordMatches: score.KeywordMatches,
			AccessCount:    mem.AccessCount,
			CreatedAt:      mem.CreatedAt,
		})
	}

	if len(opts.MemoryTypes) > 0 {
		wanted := make(map[types.MemoryType]bool, len(opts.MemoryTypes))
		for _, t := range opts.MemoryTypes {
			wanted[t] = true
		}
		filtered := results[:0]
		for _, r := range results {
			if wanted[r.MemoryType] {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	sortRecallResults(results)

	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// sortRecallResults orders by relevance descending, ties broken by
// access_count descending then created_at descending (§4.5.2).
func sortRecallResults(results []RecallResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		if results[i].AccessCount != results[j].AccessCount {
			return results[i].AccessCount > results[j].AccessCount
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
}

var (
	projectAIPattern   = regexp.MustCompile(`^/mnt/dev/ai/([^/]+)`)
	projectHomePattern = regexp.MustCompile(`^/home/[^/]+/projects/([^/]+)`)
	projectWSPattern    = regexp.MustCompile(`^/workspace/([^/]+)`)
)

// detectProject extracts a project tag from a working-directory path
// (§4.5.5), trying each of the three recognized layouts in turn.
func detectProject(cwd string) (string, bool) {
	for _, re := range []*regexp.Regexp{projectAIPattern, projectHomePattern, projectWSPattern} {
		if m := re.FindStringSubmatch(cwd); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// Context behaves like Recall, but when a project can be detected from
// cwd it merges project-scoped and universal (project=None) results,
// project-scoped first, de-duplicated by id and truncated to limit
// (§4.5.5).
func (e *Engine) Context(ctx context.Context, query string, opts ContextOptions) ([]RecallResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	project, detected := "", false
	if opts.Cwd != "" {
		project, detected = detectProject(opts.Cwd)
	}
	if !detected {
		return e.Recall(ctx, query, RecallOptions{Limit: limit, CurrentRole: opts.CurrentRole, HybridSearch: true})
	}

	scoped, err := e.Recall(ctx, query, RecallOptions{Limit: limit, Project: project, ProjectSet: true, CurrentRole: opts.CurrentRole, HybridSearch: true})
	if err != nil {
		return nil, err
	}
	universal, err := e.Recall(ctx, query, RecallOptions{Limit: limit, Project: "", ProjectSet: true, CurrentRole: opts.CurrentRole, HybridSearch: true})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(scoped)+len(universal))
	merged := make([]RecallResult, 0, len(scoped)+len(universal))
	for _, r := range scoped {
		if !seen[r.ID] {
			seen[r.ID] = true
			merged = append(merged, r)
		}
	}
	for _, r := range universal {
		if !seen[r.ID] {
			seen[r.ID] = true
			merged = append(merged, r)
		}
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// memoryFromRecall reconstructs the fields of a Memory that the
// contradiction scan needs from a RecallResult, avoiding a second Get
// round-trip for the fields it already has.
func memoryFromRecall(r RecallResult) types.Memory {
	return types.Memory{
		ID:         r.ID,
		Content:    r.Content,
		MemoryType: r.MemoryType,
		Project:    r.Project,
		SourceRole: r.SourceRole,
		Importance: r.Importance,
		CreatedAt:  r.CreatedAt,
	}
}
