package postgres

import (
	"context"
	"database/sql"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/upstarter/engram/internal/storage"
)

// EmbeddingProvider implements storage.EmbeddingProvider using PostgreSQL's
// pgvector extension (§4.2 Vector Index, pgvector-backed alternate).
type EmbeddingProvider struct {
	db        *sql.DB
	dimension int
}

// NewEmbeddingProvider creates a new PostgreSQL embedding provider fixed to
// the given dimension (the configured embedder's output size). The
// embeddings.embedding_vec column must have been created with a matching
// vector(dimension) type (see Schema).
func NewEmbeddingProvider(db *sql.DB, dimension int) *EmbeddingProvider {
	return &EmbeddingProvider{db: db, dimension: dimension}
}

// Dimension returns the fixed embedding dimension this store was opened with.
func (p *EmbeddingProvider) Dimension() int {
	return p.dimension
}

// StoreEmbedding stores a vector embedding for a memory as a native pgvector
// column, enabling index-accelerated cosine-distance queries (§4.2).
func (p *EmbeddingProvider) StoreEmbedding(ctx context.Context, memoryID string, embedding []float32, dimension int, model string) error {
	if memoryID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding vector cannot be empty", storage.ErrInvalidInput)
	}
	if model == "" {
		return fmt.Errorf("%w: model is required", storage.ErrInvalidInput)
	}
	if dimension != p.dimension {
		return fmt.Errorf("%w: embedding dimension %d does not match store dimension %d",
			storage.ErrInvalidInput, dimension, p.dimension)
	}
	if len(embedding) != dimension {
		return fmt.Errorf("%w: embedding length (%d) does not match dimension (%d)",
			storage.ErrInvalidInput, len(embedding), dimension)
	}

	vec := pgvector.NewVector(embedding)

	query := `
		INSERT INTO embeddings (memory_id, embedding_vec, dimension, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (memory_id) DO UPDATE SET
			embedding_vec = excluded.embedding_vec,
			dimension = excluded.dimension,
			model = excluded.model,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := p.db.ExecContext(ctx, query, memoryID, vec, dimension, model); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

// GetEmbedding retrieves the embedding for a memory, or storage.ErrNotFound
// if none exists.
func (p *EmbeddingProvider) GetEmbedding(ctx context.Context, memoryID string) ([]float32, error) {
	if memoryID == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	var vec pgvector.Vector
	err := p.db.QueryRowContext(ctx, `SELECT embedding_vec FROM embeddings WHERE memory_id = $1`, memoryID).Scan(&vec)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}
	return vec.Slice(), nil
}

// DeleteEmbedding removes an embedding. Returns storage.ErrNotFound if it
// doesn't exist.
func (p *EmbeddingProvider) DeleteEmbedding(ctx context.Context, memoryID string) error {
	if memoryID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := p.db.ExecContext(ctx, `DELETE FROM embeddings WHERE memory_id = $1`, memoryID)
	if err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
