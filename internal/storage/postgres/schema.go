// Package postgres provides a PostgreSQL implementation of the storage
// interfaces: the Record Store, full-text/vector search, and embedding
// persistence (§4.1, §4.2). Graph structure lives in internal/graph's
// in-memory structure, not here.
package postgres

import "fmt"

// Schema contains the SQL statements that create the base PostgreSQL schema.
// All statements are idempotent (IF NOT EXISTS) so NewMemoryStore can apply
// it unconditionally on every startup.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
    id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    memory_type TEXT NOT NULL DEFAULT 'fact',
    project TEXT,
    source_role TEXT,
    importance REAL NOT NULL DEFAULT 0.5,

    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    accessed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,

    access_count INTEGER NOT NULL DEFAULT 0,
    surface_count INTEGER NOT NULL DEFAULT 0,
    validated BOOLEAN NOT NULL DEFAULT FALSE,

    status TEXT NOT NULL DEFAULT 'active',

    metadata JSONB,
    tags JSONB,

    embedding_model TEXT,
    embedding_dimension INTEGER,

    created_by TEXT,
    session_id TEXT,
    source_context JSONB,

    content_hash TEXT,
    supersedes_id TEXT,

    deleted_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_memories_status ON memories(status);
CREATE INDEX IF NOT EXISTS idx_memories_memory_type ON memories(memory_type);
CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
CREATE INDEX IF NOT EXISTS idx_memories_accessed_at ON memories(accessed_at);
CREATE INDEX IF NOT EXISTS idx_memories_surface_count ON memories(surface_count);
CREATE INDEX IF NOT EXISTS idx_memories_deleted_at ON memories(deleted_at);
CREATE INDEX IF NOT EXISTS idx_memories_supersedes_id ON memories(supersedes_id);
CREATE INDEX IF NOT EXISTS idx_memories_session_id ON memories(session_id);
CREATE INDEX IF NOT EXISTS idx_memories_created_by ON memories(created_by);

CREATE TABLE IF NOT EXISTS embeddings (
    memory_id TEXT PRIMARY KEY,
    dimension INTEGER NOT NULL,
    model TEXT NOT NULL,

    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,

    FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model);

-- Settings table: the database-backed layer of internal/config's tunable
-- overrides (§10) — data_dir, embedder_provider/model, decay_half_life_days,
-- default_search_limit.
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Access log: append-only record of every recall/context surfacing, used by
-- validation_candidates() to rank access_count * avg(relevance) (§4.5.8).
CREATE TABLE IF NOT EXISTS access_log (
    id TEXT PRIMARY KEY,
    memory_id TEXT NOT NULL,
    query TEXT,
    role TEXT,
    project TEXT,
    relevance REAL NOT NULL DEFAULT 0,
    timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,

    FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_access_log_memory_id ON access_log(memory_id, timestamp);
`

// MigrationFTS adds a tsvector column and GIN index for full-text search,
// plus a trigger keeping it in sync with content. Idempotent.
const MigrationFTS = `
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns
        WHERE table_name = 'memories' AND column_name = 'content_tsv'
    ) THEN
        ALTER TABLE memories ADD COLUMN content_tsv tsvector;
    END IF;
END
$$;

UPDATE memories SET content_tsv = to_tsvector('english', content) WHERE content_tsv IS NULL;

CREATE INDEX IF NOT EXISTS idx_memories_content_tsv ON memories USING GIN(content_tsv);

CREATE OR REPLACE FUNCTION memories_tsv_update()
RETURNS TRIGGER AS $$
BEGIN
    NEW.content_tsv := to_tsvector('english', COALESCE(NEW.content, ''));
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS memories_tsv_trigger ON memories;
CREATE TRIGGER memories_tsv_trigger
    BEFORE INSERT OR UPDATE OF content
    ON memories
    FOR EACH ROW
    EXECUTE FUNCTION memories_tsv_update();
`

// VectorColumnMigration returns the SQL that adds a fixed-dimension pgvector
// column to embeddings and an ivfflat cosine-distance index, sized for the
// configured embedder's output (§4.2). dimension must match the
// EmbeddingProvider it will serve. Safe to run multiple times.
func VectorColumnMigration(dimension int) string {
	return fmt.Sprintf(`
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns
        WHERE table_name = 'embeddings' AND column_name = 'embedding_vec'
    ) THEN
        ALTER TABLE embeddings ADD COLUMN embedding_vec vector(%d);
    END IF;
END
$$;

DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_indexes WHERE indexname = 'idx_embeddings_vec_cosine'
  ) THEN
    IF EXISTS (SELECT 1 FROM embeddings LIMIT 1) THEN
      EXECUTE 'CREATE INDEX idx_embeddings_vec_cosine ON embeddings USING ivfflat (embedding_vec vector_cosine_ops) WITH (lists = 100)';
    END IF;
  END IF;
END$$;
`, dimension)
}
