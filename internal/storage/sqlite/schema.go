// Package sqlite provides a SQLite implementation of the storage interfaces:
// the Record Store, full-text/vector search, and embedding persistence
// (§4.1, §4.2).
package sqlite

// Schema contains the SQL statements that create the SQLite schema. Graph
// structure (relationships, traversal) is not persisted here — it lives in
// internal/graph's in-memory structure, snapshotted to its own JSON file
// (§4.3) — so this schema only needs memories and embeddings.
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
    validated INTEGER NOT NULL DEFAULT 0,

    status TEXT NOT NULL DEFAULT 'active',

    metadata TEXT,
    tags TEXT,

    embedding_model TEXT,
    embedding_dimension INTEGER,

    created_by TEXT,
    session_id TEXT,
    source_context TEXT,

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

-- FTS5 virtual table, kept in sync with memories via triggers below.
CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
    content,
    content='memories',
    content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
    INSERT INTO memories_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
    INSERT INTO memories_fts(memories_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
END;

CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE ON memories BEGIN
    INSERT INTO memories_fts(memories_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
    INSERT INTO memories_fts(rowid, content) VALUES (new.rowid, new.content);
END;

-- Embeddings table: vector embeddings with dimension tracking (§4.2).
CREATE TABLE IF NOT EXISTS embeddings (
    memory_id TEXT PRIMARY KEY,
    embedding BLOB NOT NULL,
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
