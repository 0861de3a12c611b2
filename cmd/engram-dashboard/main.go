// cmd/engram-dashboard is a read-only stats/activity viewer (§11,
// supplemented feature): it opens the same configured Record Store
// read-only, polls Engine.GetStats on an interval, and pushes each
// snapshot to every connected websocket client. It has no write path, no
// settings/maintenance surface, and no relation to the MCP tool server —
// run it alongside cmd/engram-mcp against the same data directory to watch
// memory/entity/relationship counts change live.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/upstarter/engram/internal/config"
	"github.com/upstarter/engram/internal/dashboard"
	"github.com/upstarter/engram/internal/engine"
	"github.com/upstarter/engram/internal/storage/postgres"
	"github.com/upstarter/engram/internal/storage/sqlite"
	"github.com/upstarter/engram/pkg/embedding"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("engram-dashboard: ")

	addr := flagAddr()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	eng, closeStore, err := openEngine(cfg)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer closeStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	hub := dashboard.NewHub()
	go hub.Run()
	defer hub.Stop()

	go pollStats(ctx, eng, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeHTTP)
	mux.HandleFunc("/", serveIndex)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("dashboard listening on http://%s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func flagAddr() string {
	if v := os.Getenv("ENGRAM_DASHBOARD_ADDR"); v != "" {
		return v
	}
	return "127.0.0.1:6464"
}

// openEngine builds a Memory Engine over the configured sqlite/postgres
// backend using the deterministic local embedder — the dashboard never
// writes memories, so no LLM collaborator is needed.
func openEngine(cfg *config.Config) (*engine.Engine, func(), error) {
	dim := embedding.DefaultDimension
	threshold := engine.DefaultConfig().ValidationSurfaceThreshold
	embedder := embedding.NewLocalEmbedder(dim)

	switch cfg.Storage.Engine {
	case "postgres":
		store, err := postgres.NewMemoryStore(cfg.Storage.PostgresDSN, threshold)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres backend: %w", err)
		}
		embeddings := postgres.NewEmbeddingProvider(store.GetDB(), dim)
		eng, err := engine.New(store, embeddings, store, embedder, engine.DefaultConfig())
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return eng, func() { _ = store.Close(); _ = eng.Close() }, nil
	case "sqlite", "":
		dbPath := fmt.Sprintf("%s/engram.db", cfg.Storage.DataPath)
		store, err := sqlite.NewMemoryStore(dbPath, threshold)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite backend at %q: %w", dbPath, err)
		}
		embeddings := sqlite.NewEmbeddingProvider(store.GetDB(), dim)
		eng, err := engine.New(store, embeddings, store, embedder, engine.DefaultConfig())
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return eng, func() { _ = store.Close(); _ = eng.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage engine: %q", cfg.Storage.Engine)
	}
}

// pollStats pushes an Engine.GetStats snapshot to the hub every five
// seconds until ctx is cancelled.
func pollStats(ctx context.Context, eng *engine.Engine, hub *dashboard.Hub) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	broadcastOnce := func() {
		stats, err := eng.GetStats(ctx)
		if err != nil {
			log.Printf("stats poll failed: %v", err)
			return
		}
		hub.Broadcast(map[string]interface{}{
			"type":            "stats",
			"total":           stats.Total,
			"active":          stats.ActiveCount,
			"archived":        stats.ArchivedCount,
			"graph_nodes":     stats.GraphNodeCount,
			"graph_edges":     stats.GraphEdgeCount,
			"by_type":         stats.ByType,
			"by_project":      stats.ByProject,
			"graph_type_dist": stats.GraphTypeCounts,
		})
	}

	broadcastOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			broadcastOnce()
		}
	}
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>engram dashboard</title></head>
<body>
<h1>engram stats</h1>
<pre id="stats">connecting…</pre>
<script>
  const ws = new WebSocket("ws://" + location.host + "/ws");
  ws.onmessage = (evt) => {
    document.getElementById("stats").textContent = JSON.stringify(JSON.parse(evt.data), null, 2);
  };
</script>
</body>
</html>`

func serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}
