package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/upstarter/engram/internal/storage"
)

// EmbeddingProvider implements storage.EmbeddingProvider using SQLite.
// Vectors are stored as little-endian float32 BLOBs (§4.2 Vector Index).
type EmbeddingProvider struct {
	db        *sql.DB
	dimension int
}

// NewEmbeddingProvider creates a new SQLite embedding provider fixed to the
// given dimension (the configured embedder's output size).
func NewEmbeddingProvider(db *sql.DB, dimension int) *EmbeddingProvider {
	return &EmbeddingProvider{db: db, dimension: dimension}
}

// Dimension returns the fixed embedding dimension this store was opened with.
func (p *EmbeddingProvider) Dimension() int {
	return p.dimension
}

// StoreEmbedding stores a vector embedding for a memory. Returns
// storage.ErrInvalidInput if dimension disagrees with the provider's
// configured dimension (§9: refuse on mismatch rather than pad/truncate).
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

	embeddingBytes := serializeEmbedding(embedding)

	query := `
		INSERT INTO embeddings (memory_id, embedding, dimension, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(memory_id) DO UPDATE SET
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			model = excluded.model,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := p.db.ExecContext(ctx, query, memoryID, embeddingBytes, dimension, model); err != nil {
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

	var embeddingBytes []byte
	var dimension int
	err := p.db.QueryRowContext(ctx, "SELECT embedding, dimension FROM embeddings WHERE memory_id = ?", memoryID).
		Scan(&embeddingBytes, &dimension)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}

	embedding, err := deserializeEmbedding(embeddingBytes, dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize embedding: %w", err)
	}
	return embedding, nil
}

// DeleteEmbedding removes an embedding. Returns storage.ErrNotFound if it
// doesn't exist.
func (p *EmbeddingProvider) DeleteEmbedding(ctx context.Context, memoryID string) error {
	if memoryID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := p.db.ExecContext(ctx, "DELETE FROM embeddings WHERE memory_id = ?", memoryID)
	if err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}
	return requireRowsAffected(result)
}

// serializeEmbedding packs a float32 slice into a little-endian binary blob.
func serializeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeEmbedding unpacks a little-endian binary blob back into a
// float32 slice. dimension validates the expected buffer size.
func deserializeEmbedding(buf []byte, dimension int) ([]float32, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dimension)
	}
	expectedSize := dimension * 4
	if len(buf) != expectedSize {
		return nil, fmt.Errorf("buffer size mismatch: expected %d bytes, got %d", expectedSize, len(buf))
	}

	embedding := make([]float32, dimension)
	for i := 0; i < dimension; i++ {
		bits := binary.LittleEndian.Uint32(buf[i*4:])
		embedding[i] = math.Float32frombits(bits)
	}
	return embedding, nil
}
