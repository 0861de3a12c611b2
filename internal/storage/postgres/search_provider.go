package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/upstarter/engram/internal/storage"
	"github.com/upstarter/engram/pkg/types"
)

// Ensure *MemoryStore implements storage.SearchProvider at compile time.
var _ storage.SearchProvider = (*MemoryStore)(nil)

// FullTextSearch performs PostgreSQL tsvector full-text search across memory
// content (§4.2). When opts.Query is empty it falls back to a recency-ordered
// listing.
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

	where := "WHERE content_tsv @@ plainto_tsquery('english', $1) AND deleted_at IS NULL"
	args := []interface{}{opts.Query}
	if opts.ProjectSet {
		where += " AND COALESCE(project, '') = $2"
		args = append(args, opts.Project)
	}

	querySQL := fmt.Sprintf(`
		SELECT %s
		FROM memories
		%s
		ORDER BY ts_rank(content_tsv, plainto_tsquery('english', $1)) DESC
		LIMIT %d OFFSET %d
	`, selectMemoryColumns, where, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: FullTextSearch query %q: %w", opts.Query, err)
	}
	defer rows.Close()

	var memories []types.Memory
	for rows.Next() {
		memory, err := scanMemoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: FullTextSearch scan: %w", err)
		}
		memories = append(memories, *memory)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: FullTextSearch rows: %w", err)
	}

	countSQL := "SELECT COUNT(*) FROM memories " + where
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("postgres: FullTextSearch count: %w", err)
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

// VectorSearch performs cosine-distance similarity search over the pgvector
// embedding_vec column, accelerated by an ivfflat index when present.
// Returns ids and distances ascending (most similar first), per the top_k
// contract (§4.2). Falls back to an empty result if pgvector is unavailable.
func (s *MemoryStore) VectorSearch(ctx context.Context, query []float32, opts storage.SearchOptions) ([]storage.VectorMatch, error) {
	opts.Normalize()

	if len(query) == 0 || !s.pgvectorAvailable {
		return nil, nil
	}

	vec := pgvector.NewVector(query)

	where := "e.embedding_vec IS NOT NULL AND m.deleted_at IS NULL"
	args := []interface{}{vec, opts.Limit, opts.Offset}
	if opts.ProjectSet {
		where += " AND COALESCE(m.project, '') = $4"
		args = append(args, opts.Project)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.memory_id, e.embedding_vec <=> $1 AS distance
		FROM embeddings e
		JOIN memories m ON m.id = e.memory_id
		WHERE `+where+`
		ORDER BY distance ASC
		LIMIT $2 OFFSET $3
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: VectorSearch query: %w", err)
	}
	defer rows.Close()

	var matches []storage.VectorMatch
	for rows.Next() {
		var match storage.VectorMatch
		if err := rows.Scan(&match.ID, &match.Distance); err != nil {
			return nil, fmt.Errorf("postgres: VectorSearch scan: %w", err)
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// HybridSearch combines full-text search and vector similarity search using
// Reciprocal Rank Fusion (RRF, k=60). Falls back to FullTextSearch when no
// vector is provided or pgvector is unavailable.
func (s *MemoryStore) HybridSearch(ctx context.Context, text string, vector []float32, opts storage.SearchOptions) (*storage.PaginatedResult[types.Memory], error) {
	if len(vector) == 0 || !s.pgvectorAvailable {
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
		return nil, fmt.Errorf("postgres: hybrid search FTS failed: %w", err)
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
