// Package embedding wraps vector-embedding generation behind a single
// interface so the record store, vector index, and engine never depend on
// a specific provider. Provider-backed implementations delegate to
// internal/llm; LocalEmbedder is a deterministic, dependency-free
// implementation for offline development and tests.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/upstarter/engram/internal/llm"
)

// Embedder generates a fixed-dimension vector embedding for a piece of
// text. Dimension is fixed for the lifetime of an Embedder instance. The
// storage embedding providers' StoreEmbedding refuses vectors of any other
// dimension; a store's persisted dimension is not checked when it is opened.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Model() string
}

// DefaultDimension is the embedding width used when no provider overrides
// it (matches nomic-embed-text, the donor's Ollama default model).
const DefaultDimension = 768

// providerEmbedder adapts an internal/llm.EmbeddingGenerator — which
// returns provider-native dimension vectors — to the fixed-dimension
// Embedder contract, refusing any response whose length disagrees with
// dim.
type providerEmbedder struct {
	gen llm.EmbeddingGenerator
	dim int
}

// NewProviderEmbedder wraps an LLM-backed embedding generator. dim must
// match the provider's actual output width (e.g. 768 for
// nomic-embed-text, 1536 for text-embedding-3-small); callers get this
// from internal/config, not from probing the provider.
func NewProviderEmbedder(gen llm.EmbeddingGenerator, dim int) Embedder {
	return &providerEmbedder{gen: gen, dim: dim}
}

func (p *providerEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.gen.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != p.dim {
		return nil, fmt.Errorf("embedding: provider %q returned dimension %d, want %d", p.gen.GetModel(), len(vec), p.dim)
	}
	return vec, nil
}

func (p *providerEmbedder) Dimension() int { return p.dim }
func (p *providerEmbedder) Model() string  { return p.gen.GetModel() }

// LocalEmbedder produces deterministic pseudo-embeddings from a SHA-256
// hash of the input text, expanded to a fixed dimension via an xorshift64*
// walk seeded from the first 8 hash bytes. Vectors are L2-normalized
// so cosine similarity behaves the way it would for a real model: a
// repeated phrase always scores closer to itself than to unrelated text,
// which is sufficient for engine tests and offline bootstrapping but
// carries no actual semantic content.
type LocalEmbedder struct {
	dim int
}

// NewLocalEmbedder returns a deterministic Embedder of the given
// dimension. Pass 0 to use DefaultDimension.
func NewLocalEmbedder(dim int) *LocalEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &LocalEmbedder{dim: dim}
}

func (l *LocalEmbedder) Dimension() int { return l.dim }
func (l *LocalEmbedder) Model() string  { return "local-deterministic-v1" }

func (l *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	seed := binary.BigEndian.Uint64(sum[:8])

	vec := make([]float32, l.dim)
	state := seed
	for i := range vec {
		// xorshift64*, cheap and deterministic.
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		state *= 2685821657736338717
		// Map to [-1, 1].
		vec[i] = float32(state>>11)/float32(1<<53)*2 - 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}
