package sqlite

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/upstarter/engram/internal/storage"
	"github.com/upstarter/engram/pkg/types"
)

// Ensure *MemoryStore implements storage.SearchProvider at compile time.
var _ storage.SearchProvider = (*MemoryStore)(nil)

// FullTextSearch performs FTS5-backed full-text search across memory content.
//
// The FTS5 virtual table (memories_fts) is kept in sync with the memories
// table via INSERT/UPDATE/DELETE triggers defined in schema.go.
//
// When opts.Query is empty the method falls back to a full table scan ordered
// by created_at DESC so the caller still receives a useful result set.
//
// FTS5 rank values are negative (more negative == better match), so ordering
// by rank ASC gives the best results first.
func (s *MemoryStore) FullTextSearch(ctx context.Context, opts storage.SearchOptions) (*storage.PaginatedResult[types.Memory], error) {
	opts.Normalize()

	if strings.TrimSpace(opts.Query) == "" {
		listOpts := storage.ListOptions{Page: 1, Limit: opts.Limit, SortBy: "created_at", SortOrder: "desc"}
		if opts.ProjectSet {
			listOpts.Project = opts.Project
			listOpts.ProjectSet = true
		}
		return s.List(ctx, listOpts)
	}

	ftsQuery := sanitiseFTSQuery(opts.Query)

	var conditions []string
	args := []interface{}{ftsQuery}
	if opts.ProjectSet {
		conditions = append(conditions, "COALESCE(m.project, '') = ?")
		args = append(args, opts.Project)
	}
	projectClause := ""
	if len(conditions) > 0 {
		projectClause = " AND " + strings.Join(conditions, " AND ")
	}

	querySQL := `
		SELECT
			m.id, m.content, m.memory_type, m.project, m.source_role, m.importance,
			m.created_at, m.accessed_at,
			m.access_count, m.surface_count, m.validated,
			m.status,
			m.metadata, m.tags,
			m.embedding_model, m.embedding_dimension,
			m.created_by, m.session_id, m.source_context,
			m.content_hash, m.supersedes_id, m.deleted_at
		FROM memories_fts fts
		JOIN memories m ON m.rowid = fts.rowid
		WHERE memories_fts MATCH ? AND m.deleted_at IS NULL` + projectClause + `
		ORDER BY rank
		LIMIT ? OFFSET ?
	`
	queryArgs := append(append([]interface{}{}, args...), opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, querySQL, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: FullTextSearch MATCH %q: %w", opts.Query, err)
	}
	defer rows.Close()

	var memories []types.Memory
	for rows.Next() {
		memory, err := scanMemoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: FullTextSearch scan: %w", err)
		}
		memories = append(memories, *memory)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: FullTextSearch rows: %w", err)
	}

	countSQL := `
		SELECT COUNT(*)
		FROM memories_fts fts
		JOIN memories m ON m.rowid = fts.rowid
		WHERE memories_fts MATCH ? AND m.deleted_at IS NULL` + projectClause

	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: FullTextSearch count: %w", err)
	}

	page := 1
	if opts.Limit > 0 {
		page = (opts.Offset / opts.Limit) + 1
	}

	result := &storage.PaginatedResult[types.Memory]{
		Items:    memories,
		Total:    total,
		Page:     page,
		PageSize: opts.Limit,
		HasMore:  opts.Offset+len(memories) < total,
	}

	if opts.FuzzyFallback && len(result.Items) == 0 {
		terms := strings.Fields(opts.Query)
		if len(terms) > 1 {
			relaxed := opts
			relaxed.Query = strings.Join(terms, " OR ")
			relaxed.FuzzyFallback = false
			return s.FullTextSearch(ctx, relaxed)
		}
	}

	return result, nil
}

// vectorSearchMaxCandidates caps the number of embeddings loaded into memory
// during a vector search. Embeddings are selected in recency order (newest
// first). For typical personal-memory datasets (< 10k memories) this limit
// is never hit; larger deployments should use the Postgres/pgvector store.
const vectorSearchMaxCandidates = 10_000

// VectorSearch performs semantic search using stored embeddings, returning
// ids and cosine distances ascending (most similar first), per the top_k
// contract (§4.2).
func (s *MemoryStore) VectorSearch(ctx context.Context, query []float32, opts storage.SearchOptions) ([]storage.VectorMatch, error) {
	opts.Normalize()

	if len(query) == 0 {
		return nil, nil
	}

	where := "m.deleted_at IS NULL"
	var args []interface{}
	if opts.ProjectSet {
		where += " AND COALESCE(m.project, '') = ?"
		args = append(args, opts.Project)
	}
	args = append(args, vectorSearchMaxCandidates)

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.memory_id, e.embedding, e.dimension
		FROM embeddings e
		JOIN memories m ON m.id = e.memory_id
		WHERE `+where+`
		ORDER BY m.created_at DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	defer rows.Close()

	var candidates []storage.VectorMatch
	for rows.Next() {
		var memID string
		var blob []byte
		var dim int
		if err := rows.Scan(&memID, &blob, &dim); err != nil {
			continue
		}
		embedding, err := deserializeEmbedding(blob, dim)
		if err != nil {
			continue
		}
		candidates = append(candidates, storage.VectorMatch{ID: memID, Distance: cosineDistance(query, embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating embeddings: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Distance < candidates[j].Distance })

	end := opts.Offset + opts.Limit
	if opts.Offset >= len(candidates) {
		return nil, nil
	}
	if end > len(candidates) {
		end = len(candidates)
	}
	return candidates[opts.Offset:end], nil
}

// HybridSearch combines full-text search and vector similarity search using
// Reciprocal Rank Fusion (RRF) to merge and re-rank results. When no vector
// is provided, it falls back to FullTextSearch.
func (s *MemoryStore) HybridSearch(ctx context.Context, text string, vector []float32, opts storage.SearchOptions) (*storage.PaginatedResult[types.Memory], error) {
	if len(vector) == 0 {
		opts.Query = text
		return s.FullTextSearch(ctx, opts)
	}

	candidateLimit := opts.Limit * 3
	if candidateLimit < 30 {
		candidateLimit = 30
	}

	ftsOpts := opts
	ftsOpts.Query, ftsOpts.Limit, ftsOpts.Offset = text, candidateLimit, 0
	ftsResult, err := s.FullTextSearch(ctx, ftsOpts)
	if err != nil {
		return nil, fmt.Errorf("hybrid search FTS failed: %w", err)
	}

	vecOpts := opts
	vecOpts.Limit, vecOpts.Offset = candidateLimit, 0
	vecResult, err := s.VectorSearch(ctx, vector, vecOpts)
	if err != nil {
		opts.Query = text
		return s.FullTextSearch(ctx, opts)
	}

	const rrfK = 60.0
	scores := make(map[string]float64)
	for rank, mem := range ftsResult.Items {
		scores[mem.ID] += 1.0 / (rrfK + float64(rank+1))
	}
	for rank, match := range vecResult {
		scores[match.ID] += 1.0 / (rrfK + float64(rank+1))
	}

	type scoredID struct {
		id    string
		score float64
	}
	var ranked []scoredID
	for id, score := range scores {
		ranked = append(ranked, scoredID{id, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})

	total := len(ranked)
	offset := opts.Offset
	if offset >= total {
		return &storage.PaginatedResult[types.Memory]{Total: total, PageSize: opts.Limit}, nil
	}
	end := offset + opts.Limit
	if end > total {
		end = total
	}

	var memories []types.Memory
	for _, r := range ranked[offset:end] {
		mem, err := s.Get(ctx, r.id)
		if err != nil {
			continue
		}
		memories = append(memories, *mem)
	}

	return &storage.PaginatedResult[types.Memory]{
		Items:    memories,
		Total:    total,
		PageSize: opts.Limit,
		HasMore:  end < total,
	}, nil
}

// cosineDistance returns 1 - cosine_similarity(a, b), so 0 means identical
// direction and larger values mean less similar (ascending = more similar,
// matching the top_k contract). Returns 1 if either vector has zero
// magnitude or lengths differ.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// sanitiseFTSQuery converts a free-form user query into a safe FTS5 MATCH
// expression. It strips FTS5-special characters, removes common stop words,
// and uses prefix matching (term*) for better recall.
//
// Example: "What is the deploy process?" → "deploy* OR process*"
func sanitiseFTSQuery(query string) string {
	replacer := strings.NewReplacer(
		`"`, ` `, `'`, ` `, `(`, ` `, `)`, ` `,
		`*`, ` `, `-`, ` `, `^`, ` `, `?`, ` `, `:`, ` `,
	)
	cleaned := replacer.Replace(query)
	words := strings.Fields(strings.ToLower(cleaned))

	stopWords := map[string]bool{
		"a": true, "an": true, "the": true,
		"is": true, "are": true, "was": true, "were": true, "be": true, "been": true, "being": true,
		"have": true, "has": true, "had": true,
		"do": true, "does": true, "did": true,
		"will": true, "would": true, "could": true, "should": true,
		"may": true, "might": true, "shall": true, "can": true,
		"to": true, "of": true, "in": true, "on": true, "at": true,
		"by": true, "for": true, "with": true, "from": true, "as": true,
		"about": true, "into": true, "through": true, "during": true,
		"before": true, "after": true, "above": true, "below": true,
		"between": true, "out": true, "off": true, "over": true, "under": true,
		"what": true, "how": true, "when": true, "where": true, "why": true,
		"who": true, "which": true,
		"this": true, "that": true, "these": true, "those": true,
		"i": true, "you": true, "he": true, "she": true, "it": true, "we": true, "they": true,
		"and": true, "or": true, "but": true, "if": true, "not": true,
		"s": true, "t": true,
	}

	var terms []string
	for _, w := range words {
		if !stopWords[w] && len(w) >= 2 {
			terms = append(terms, w+"*")
		}
	}

	if len(terms) == 0 {
		return strings.ToLower(strings.TrimSpace(cleaned))
	}
	return strings.Join(terms, " OR ")
}
