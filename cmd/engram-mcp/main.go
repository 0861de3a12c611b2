// cmd/engram-mcp is the entry point for the engram MCP (Model Context
// Protocol) server. It wires the configured Record Store backend through
// the Memory Engine and serves JSON-RPC 2.0 tool calls over stdio.
//
// Startup sequence:
//  1. Load configuration from engram.yaml / ENGRAM_* environment variables.
//  2. Open the configured storage backend (sqlite or postgres) — each
//     backend creates its own schema on open.
//  3. Build the embedder (local deterministic fallback, or an LLM-backed
//     provider when one is configured).
//  4. Construct the Memory Engine over the backend and collaborators.
//  5. Start a filesystem watcher over ~/.spc/... so role/project/session
//     state is picked up live rather than only at the next restart.
//  6. Wrap it in an MCP Server and serve stdin/stdout as line-delimited
//     JSON-RPC 2.0.
//
// CRITICAL: ALL logging MUST go to stderr. Any bytes written to stdout that
// are not valid JSON-RPC 2.0 response frames will corrupt the protocol.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/upstarter/engram/internal/api/mcp"
	"github.com/upstarter/engram/internal/config"
	"github.com/upstarter/engram/internal/engine"
	"github.com/upstarter/engram/internal/llm"
	"github.com/upstarter/engram/internal/notify"
	"github.com/upstarter/engram/internal/storage"
	"github.com/upstarter/engram/internal/storage/postgres"
	"github.com/upstarter/engram/internal/storage/sqlite"
	"github.com/upstarter/engram/pkg/embedding"
)

// backend is the interface a single opened storage connection satisfies:
// the Record Store plus the hybrid search provider (§4.1, §4.2). Both
// concrete backends (sqlite.MemoryStore, postgres.MemoryStore) implement
// both roles off one connection.
type backend interface {
	storage.MemoryStore
	storage.SearchProvider
}

func main() {
	// Redirect the default logger to stderr so that any incidental log calls
	// (e.g. from imported packages) never pollute the stdout JSON-RPC stream.
	log.SetOutput(os.Stderr)
	log.SetPrefix("engram-mcp: ")
	log.SetFlags(log.LstdFlags)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.Storage.Engine == "sqlite" || cfg.Storage.Engine == "" {
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
			log.Fatalf("failed to create data directory %q: %v", cfg.Storage.DataPath, err)
		}
	}

	store, embeddings, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("failed to open storage backend: %v", err)
	}
	defer store.Close()

	embedder := buildEmbedder(cfg)

	engineCfg := engine.DefaultConfig()
	engineCfg.DecayHalfLifeDays = cfg.Tuning.DecayHalfLifeDays
	engineCfg.GraphSnapshotPath = fmt.Sprintf("%s/knowledge_graph.json", cfg.Tuning.DataDir)

	eng, err := engine.New(store, embeddings, store, embedder, engineCfg)
	if err != nil {
		log.Fatalf("failed to create memory engine: %v", err)
	}
	defer eng.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	stateCache := notify.NewStateCache()
	stateWatcher := notify.NewStateWatcher(stateCache)
	if err := stateWatcher.Start(); err != nil {
		log.Printf("state watcher disabled (%v); ~/.spc/... reads fall back to a direct read each call", err)
	} else {
		defer stateWatcher.Stop()
	}

	srv := mcp.NewServer(eng, mcp.WithStateCache(stateCache))
	transport := mcp.NewStdioTransport(srv, os.Stdin, os.Stdout)

	log.Println("ready — serving JSON-RPC 2.0 on stdin/stdout")

	if err := transport.Serve(ctx); err != nil {
		// A non-nil error here is normal (context cancellation) or indicates a
		// fatal stdin/stdout problem. Either way it is informational only.
		log.Printf("transport stopped: %v", err)
	}
}

// openBackend opens the configured storage engine and, alongside it, the
// matching EmbeddingProvider bound to the same connection.
func openBackend(cfg *config.Config) (backend, storage.EmbeddingProvider, error) {
	dim := embedding.DefaultDimension
	threshold := engine.DefaultConfig().ValidationSurfaceThreshold

	switch cfg.Storage.Engine {
	case "postgres":
		store, err := postgres.NewMemoryStore(cfg.Storage.PostgresDSN, threshold)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres backend: %w", err)
		}
		return store, postgres.NewEmbeddingProvider(store.GetDB(), dim), nil
	case "sqlite", "":
		dbPath := fmt.Sprintf("%s/engram.db", cfg.Storage.DataPath)
		store, err := sqlite.NewMemoryStore(dbPath, threshold)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite backend at %q: %w", dbPath, err)
		}
		return store, sqlite.NewEmbeddingProvider(store.GetDB(), dim), nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage engine: %q", cfg.Storage.Engine)
	}
}

// buildEmbedder prefers the configured LLM-backed embedding provider and
// falls back to the deterministic local embedder when none is configured
// or reachable, per the "must work with no LLM configured at all"
// requirement (§4.5.4).
func buildEmbedder(cfg *config.Config) embedding.Embedder {
	dim := embedding.DefaultDimension
	providerCfg := llm.ProviderConfig{
		Provider:          cfg.Tuning.EmbedderProvider,
		EmbeddingModel:    cfg.Tuning.EmbedderModel,
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
	}
	gen, err := llm.NewEmbeddingGenerator(providerCfg)
	if err != nil || gen == nil {
		if err != nil {
			log.Printf("no LLM embedding provider available (%v); falling back to the local deterministic embedder", err)
		}
		return embedding.NewLocalEmbedder(dim)
	}
	return embedding.NewProviderEmbedder(gen, dim)
}
