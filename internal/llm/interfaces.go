package llm

import "context"

// EmbeddingGenerator turns memory content into a vector embedding for
// similarity search (§4.3). Implementations return float32 slices;
// pkg/embedding widens them to float64 before storage.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
