package llm

// ProviderConfig is the provider-agnostic shape internal/config's LLMConfig
// converts into at wiring time (cmd/engram-mcp). Keeping it here rather than
// depending on internal/config avoids a config->llm->config import cycle.
type ProviderConfig struct {
	Provider       string // ollama, openai
	EmbeddingModel string
	APIKey         string
	BaseURL        string

	// RequestsPerSecond/Burst throttle NewEmbeddingGenerator's returned
	// client (§10/§11). Zero in either field uses RateLimitedEmbedder's own
	// defaults.
	RequestsPerSecond float64
	Burst             int
}

// NewEmbeddingGenerator builds the EmbeddingGenerator for cfg.Provider,
// wrapped in a RateLimitedEmbedder so every provider is throttled the same
// way regardless of that provider's own client-side limits. Returns
// (nil, nil) for providers that don't support embeddings.
func NewEmbeddingGenerator(cfg ProviderConfig) (EmbeddingGenerator, error) {
	gen, err := newProviderEmbeddingGenerator(cfg)
	if err != nil || gen == nil {
		return gen, err
	}
	return NewRateLimitedEmbedder(gen, cfg.RequestsPerSecond, cfg.Burst), nil
}

func newProviderEmbeddingGenerator(cfg ProviderConfig) (EmbeddingGenerator, error) {
	switch cfg.Provider {
	case "openai":
		model := cfg.EmbeddingModel
		if model == "" {
			model = "text-embedding-3-small"
		}
		return NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{APIKey: cfg.APIKey, Model: model, BaseURL: cfg.BaseURL}), nil
	case "ollama", "":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := cfg.EmbeddingModel
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOllamaClient(OllamaConfig{BaseURL: baseURL, Model: model}), nil
	default:
		// Anthropic and other text-only providers don't support embeddings.
		return nil, nil
	}
}
