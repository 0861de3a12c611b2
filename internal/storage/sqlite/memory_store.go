package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/upstarter/engram/internal/storage"
	"github.com/upstarter/engram/pkg/types"
)

// MemoryStore implements storage.MemoryStore using SQLite.
type MemoryStore struct {
	db                  *sql.DB
	validationThreshold int
}

// NewMemoryStore creates a new SQLite memory store with WAL self-healing.
// If the initial open fails due to stale WAL files (left behind by a crashed
// process), it verifies no other process holds them and retries once after
// removing the stale -shm/-wal files.
//
// validationThreshold is the surface_count at which a memory is marked
// validated (§4.5.7 implicit validation); callers pass the configured value
// from internal/config.
func NewMemoryStore(dsn string, validationThreshold int) (*MemoryStore, error) {
	store, err := openMemoryStore(dsn, validationThreshold)
	if err == nil {
		return store, nil
	}

	if !isRecoverableWALError(err) {
		return nil, err
	}

	dbPath := dbPathFromDSN(dsn)
	if dbPath == "" || dbPath == ":memory:" {
		return nil, err
	}

	if !isWALStale(dbPath) {
		return nil, err
	}

	removeStaleWAL(dbPath)

	store, retryErr := openMemoryStore(dsn, validationThreshold)
	if retryErr != nil {
		return nil, fmt.Errorf("failed after WAL recovery: %w (original: %v)", retryErr, err)
	}

	log.Printf("sqlite: recovered from stale WAL files for %s", dbPath)
	return store, nil
}

// openMemoryStore opens a SQLite database, configures WAL mode, and creates the schema.
func openMemoryStore(dsn string, validationThreshold int) (*MemoryStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Using a single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load.
	// WAL mode allows concurrent readers to proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Connections live for the lifetime of the store.

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if validationThreshold < 1 {
		validationThreshold = 3
	}

	return &MemoryStore{db: db, validationThreshold: validationThreshold}, nil
}

// Store creates or updates a memory (upsert semantics).
func (s *MemoryStore) Store(ctx context.Context, memory *types.Memory) error {
	if memory == nil {
		return storage.ErrInvalidInput
	}
	if memory.ID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}
	if memory.Content == "" {
		return fmt.Errorf("%w: memory content is required", storage.ErrInvalidInput)
	}

	memory.ContentHash = fmt.Sprintf("%x", sha256.Sum256([]byte(memory.Content)))

	var metadataJSON, tagsJSON, sourceContextJSON []byte
	var err error

	if memory.Metadata != nil {
		metadataJSON, err = json.Marshal(memory.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}
	if len(memory.Tags) > 0 {
		tagsJSON, err = json.Marshal(memory.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags: %w", err)
		}
	}
	if memory.SourceContext != nil {
		sourceContextJSON, err = json.Marshal(memory.SourceContext)
		if err != nil {
			return fmt.Errorf("failed to marshal source_context: %w", err)
		}
	}

	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = time.Now()
	}
	if memory.AccessedAt.IsZero() {
		memory.AccessedAt = memory.CreatedAt
	}
	if memory.Status == "" {
		memory.Status = types.MemoryStatusActive
	}
	memory.Importance = types.ClampImportance(memory.Importance)

	query := `
		INSERT INTO memories (
			id, content, memory_type, project, source_role, importance,
			created_at, accessed_at,
			access_count, surface_count, validated,
			status,
			metadata, tags,
			embedding_model, embedding_dimension,
			created_by, session_id, source_context,
			content_hash, supersedes_id, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			memory_type = excluded.memory_type,
			project = excluded.project,
			source_role = excluded.source_role,
			importance = excluded.importance,
			accessed_at = excluded.accessed_at,
			access_count = excluded.access_count,
			surface_count = excluded.surface_count,
			validated = excluded.validated,
			status = excluded.status,
			metadata = excluded.metadata,
			tags = excluded.tags,
			embedding_model = excluded.embedding_model,
			embedding_dimension = excluded.embedding_dimension,
			created_by = excluded.created_by,
			session_id = excluded.session_id,
			source_context = excluded.source_context,
			content_hash = excluded.content_hash,
			supersedes_id = excluded.supersedes_id,
			deleted_at = excluded.deleted_at
	`

	_, err = s.db.ExecContext(ctx, query,
		memory.ID, memory.Content, string(memory.MemoryType), nullableString(memory.Project),
		nullableString(memory.SourceRole), memory.Importance,
		memory.CreatedAt, memory.AccessedAt,
		memory.AccessCount, memory.SurfaceCount, boolToInt(memory.Validated),
		string(memory.Status),
		nullableBytes(metadataJSON), nullableBytes(tagsJSON),
		nullableString(memory.EmbeddingModel), nullableInt(memory.EmbeddingDimension),
		nullableString(string(memory.CreatedBy)), nullableString(memory.SessionID), nullableBytes(sourceContextJSON),
		nullableString(memory.ContentHash), nullableString(memory.SupersedesID), nullableTime(memory.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to store memory: %w", err)
	}
	return nil
}

const selectMemoryColumns = `
	id, content, memory_type, project, source_role, importance,
	created_at, accessed_at,
	access_count, surface_count, validated,
	status,
	metadata, tags,
	embedding_model, embedding_dimension,
	created_by, session_id, source_context,
	content_hash, supersedes_id, deleted_at
`

// Get retrieves a memory by ID. Returns storage.ErrNotFound if the memory
// doesn't exist or was soft-deleted.
func (s *MemoryStore) Get(ctx context.Context, id string) (*types.Memory, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	query := "SELECT " + selectMemoryColumns + " FROM memories WHERE id = ? AND deleted_at IS NULL"
	row := s.db.QueryRowContext(ctx, query, id)
	memory, err := scanMemoryRow(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}
	return memory, nil
}

// List retrieves memories with pagination and filtering.
func (s *MemoryStore) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.Memory], error) {
	opts.Normalize()

	query := "SELECT " + selectMemoryColumns + " FROM memories"

	var conditions []string
	var args []interface{}

	if opts.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(opts.Status))
	}
	if opts.ProjectSet {
		conditions = append(conditions, "COALESCE(project, '') = ?")
		args = append(args, opts.Project)
	}
	if opts.MemoryType != "" {
		conditions = append(conditions, "memory_type = ?")
		args = append(args, string(opts.MemoryType))
	}
	if !opts.CreatedAfter.IsZero() {
		conditions = append(conditions, "created_at > ?")
		args = append(args, opts.CreatedAfter)
	}
	if !opts.CreatedBefore.IsZero() {
		conditions = append(conditions, "created_at < ?")
		args = append(args, opts.CreatedBefore)
	}
	if !opts.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if opts.OnlyDeleted {
		conditions = append(conditions, "deleted_at IS NOT NULL")
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}
	query += whereClause

	// Safe from SQL injection: SortBy/SortOrder are whitelist-validated by Normalize().
	query += fmt.Sprintf(" ORDER BY %s %s", opts.SortBy, opts.SortOrder)
	query += " LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	var memories []types.Memory
	for rows.Next() {
		memory, err := scanMemoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		memories = append(memories, *memory)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memories: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM memories" + whereClause
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args[:len(args)-2]...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count memories: %w", err)
	}

	return &storage.PaginatedResult[types.Memory]{
		Items:    memories,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.Limit,
		HasMore:  opts.Offset()+len(memories) < total,
	}, nil
}

// Update modifies an existing memory. Returns storage.ErrNotFound if the
// memory doesn't exist.
func (s *MemoryStore) Update(ctx context.Context, memory *types.Memory) error {
	if memory == nil {
		return storage.ErrInvalidInput
	}
	if memory.ID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	exists, err := s.exists(ctx, memory.ID)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}

	return s.Store(ctx, memory)
}

// Delete soft-deletes a memory by ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE memories SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return requireRowsAffected(result)
}

// Purge hard-deletes a memory by ID (permanent removal).
func (s *MemoryStore) Purge(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to purge memory: %w", err)
	}
	return requireRowsAffected(result)
}

// Restore un-deletes a soft-deleted memory.
func (s *MemoryStore) Restore(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE memories SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL", id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to restore memory: %w", err)
	}
	return requireRowsAffected(result)
}

// UpdateStatus transitions a memory's lifecycle status.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, status types.MemoryStatus) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, "UPDATE memories SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return requireRowsAffected(result)
}

// RecordAccess atomically increments access_count, increments surface_count
// when fromRecall is true, marks the memory validated once surface_count
// reaches the configured threshold, and updates accessed_at (§4.5.7).
func (s *MemoryStore) RecordAccess(ctx context.Context, id string, fromRecall bool) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	surfaceDelta := 0
	if fromRecall {
		surfaceDelta = 1
	}

	query := `
		UPDATE memories
		SET access_count = access_count + 1,
		    surface_count = surface_count + ?,
		    validated = CASE WHEN (surface_count + ?) >= ? THEN 1 ELSE validated END,
		    accessed_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, surfaceDelta, surfaceDelta, s.validationThreshold, time.Now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to record access: %w", err)
	}
	return requireRowsAffected(result)
}

// Stats returns aggregate counts for the stats() operation (§4.5.8).
func (s *MemoryStore) Stats(ctx context.Context) (*storage.Stats, error) {
	stats := &storage.Stats{
		ByStatus: make(map[types.MemoryStatus]int),
		ByType:   make(map[types.MemoryType]int),
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories WHERE deleted_at IS NULL").Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("sqlite: Stats total: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM memories WHERE deleted_at IS NULL GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("sqlite: Stats by status: %w", err)
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: Stats by status scan: %w", err)
		}
		stats.ByStatus[types.MemoryStatus(status)] = count
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, "SELECT memory_type, COUNT(*) FROM memories WHERE deleted_at IS NULL GROUP BY memory_type")
	if err != nil {
		return nil, fmt.Errorf("sqlite: Stats by type: %w", err)
	}
	for rows.Next() {
		var memType string
		var count int
		if err := rows.Scan(&memType, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: Stats by type scan: %w", err)
		}
		stats.ByType[types.MemoryType(memType)] = count
	}
	rows.Close()

	var oldest, newest sql.NullTime
	err = s.db.QueryRowContext(ctx,
		"SELECT MIN(created_at), MAX(created_at) FROM memories WHERE deleted_at IS NULL").Scan(&oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("sqlite: Stats time range: %w", err)
	}
	if oldest.Valid {
		stats.OldestCreatedAt = oldest.Time
	}
	if newest.Valid {
		stats.NewestCreatedAt = newest.Time
	}

	return stats, nil
}

// ValidationCandidates returns active memories with surface_count >=
// minSurfaces and validated == false, ordered by surface_count descending.
func (s *MemoryStore) ValidationCandidates(ctx context.Context, minSurfaces int, limit int) ([]*types.Memory, error) {
	query := "SELECT " + selectMemoryColumns + ` FROM memories
		WHERE deleted_at IS NULL AND status = ? AND validated = 0 AND surface_count >= ?
		ORDER BY surface_count DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, string(types.MemoryStatusActive), minSurfaces, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ValidationCandidates: %w", err)
	}
	defer rows.Close()

	var out []*types.Memory
	for rows.Next() {
		memory, err := scanMemoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: ValidationCandidates scan: %w", err)
		}
		out = append(out, memory)
	}
	return out, rows.Err()
}

// AppendAccessLog appends one row to access_log (§4.1c).
func (s *MemoryStore) AppendAccessLog(ctx context.Context, row storage.AccessLogRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_log (id, memory_id, query, role, project, relevance, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, row.ID, row.MemoryID, row.Query, row.Role, row.Project, row.Relevance, row.Timestamp)
	if err != nil {
		return fmt.Errorf("sqlite: AppendAccessLog: %w", err)
	}
	return nil
}

// AvgRelevanceSince returns average logged relevance per memory id since
// the given cutoff, for validation_candidates()'s ranking (§4.5.8).
func (s *MemoryStore) AvgRelevanceSince(ctx context.Context, since time.Time) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT memory_id, AVG(relevance) FROM access_log
		WHERE timestamp >= ?
		GROUP BY memory_id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("sqlite: AvgRelevanceSince: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var id string
		var avg float64
		if err := rows.Scan(&id, &avg); err != nil {
			return nil, fmt.Errorf("sqlite: AvgRelevanceSince scan: %w", err)
		}
		out[id] = avg
	}
	return out, rows.Err()
}

// PruneCandidates returns active memories last accessed before cutoff with
// importance below maxImportance, for the prune_candidates() operation.
func (s *MemoryStore) PruneCandidates(ctx context.Context, cutoff time.Time, maxImportance float64, limit int) ([]*types.Memory, error) {
	query := "SELECT " + selectMemoryColumns + ` FROM memories
		WHERE deleted_at IS NULL AND status = ? AND accessed_at < ? AND importance < ?
		ORDER BY accessed_at ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, string(types.MemoryStatusActive), cutoff, maxImportance, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: PruneCandidates: %w", err)
	}
	defer rows.Close()

	var out []*types.Memory
	for rows.Next() {
		memory, err := scanMemoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: PruneCandidates scan: %w", err)
		}
		out = append(out, memory)
	}
	return out, rows.Err()
}

// Close flushes the WAL into the main database file and releases resources.
// The TRUNCATE checkpoint removes the -shm and -wal files so that other
// processes can open the database without encountering stale WAL state.
func (s *MemoryStore) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Printf("sqlite: WAL checkpoint on close failed (non-fatal): %v", err)
	}
	return s.db.Close()
}

// GetDB returns the underlying database connection, used by sibling
// providers (search, embedding) constructed against the same store.
func (s *MemoryStore) GetDB() *sql.DB {
	return s.db
}

func (s *MemoryStore) exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return count > 0, nil
}

func requireRowsAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// rowScanner abstracts over *sql.Row and *sql.Rows so scanMemoryRow can
// serve both Get (single row) and List/search (row iteration).
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemoryRow(row rowScanner) (*types.Memory, error) {
	var m types.Memory
	var project, sourceRole sql.NullString
	var metadataJSON, tagsJSON, sourceContextJSON sql.NullString
	var embeddingModel sql.NullString
	var embeddingDimension sql.NullInt64
	var createdBy, sessionID sql.NullString
	var contentHash, supersedesID sql.NullString
	var validatedInt int
	var deletedAt sql.NullTime
	var memoryType, status string

	err := row.Scan(
		&m.ID, &m.Content, &memoryType, &project, &sourceRole, &m.Importance,
		&m.CreatedAt, &m.AccessedAt,
		&m.AccessCount, &m.SurfaceCount, &validatedInt,
		&status,
		&metadataJSON, &tagsJSON,
		&embeddingModel, &embeddingDimension,
		&createdBy, &sessionID, &sourceContextJSON,
		&contentHash, &supersedesID, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	m.MemoryType = types.MemoryType(memoryType)
	m.Status = types.MemoryStatus(status)
	m.Validated = validatedInt != 0

	if project.Valid {
		m.Project = project.String
	}
	if sourceRole.Valid {
		m.SourceRole = sourceRole.String
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &m.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &m.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if sourceContextJSON.Valid && sourceContextJSON.String != "" {
		if err := json.Unmarshal([]byte(sourceContextJSON.String), &m.SourceContext); err != nil {
			return nil, fmt.Errorf("unmarshal source_context: %w", err)
		}
	}
	if embeddingModel.Valid {
		m.EmbeddingModel = embeddingModel.String
	}
	if embeddingDimension.Valid {
		m.EmbeddingDimension = int(embeddingDimension.Int64)
	}
	if createdBy.Valid {
		m.CreatedBy = types.CreatedBy(createdBy.String)
	}
	if sessionID.Valid {
		m.SessionID = sessionID.String
	}
	if contentHash.Valid {
		m.ContentHash = contentHash.String
	}
	if supersedesID.Valid {
		m.SupersedesID = supersedesID.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}

	return &m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullableBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// nullableString converts a string to sql.NullString. An empty string is
// treated as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableInt(i int) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(i), Valid: true}
}

// dbPathFromDSN extracts the filesystem path from a SQLite DSN.
// Handles bare paths ("/path/to/db.sqlite") and file: URIs ("file:/path/to/db.sqlite?mode=rwc").
// Returns empty string for in-memory databases or unparseable DSNs.
func dbPathFromDSN(dsn string) string {
	if dsn == ":memory:" || dsn == "" {
		return ""
	}

	if strings.HasPrefix(dsn, "file:") {
		u, err := url.Parse(dsn)
		if err != nil {
			return ""
		}
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == ":memory:" || path == "" {
			return ""
		}
		return path
	}

	return dsn
}

// isRecoverableWALError returns true if the error matches patterns caused by
// stale WAL files left behind after a crash (SIGKILL, OOM, etc.).
func isRecoverableWALError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "disk I/O error") ||
		strings.Contains(msg, "database is locked")
}

// isWALStale checks whether -shm/-wal files exist for the given database path
// AND no other process currently holds them open (via lsof).
// Returns false if lsof is unavailable (conservative: no deletion).
func isWALStale(dbPath string) bool {
	shmPath := dbPath + "-shm"
	walPath := dbPath + "-wal"

	if !fileExists(shmPath) && !fileExists(walPath) {
		return false
	}

	lsofPath, err := exec.LookPath("lsof")
	if err != nil {
		return false
	}

	cmd := exec.Command(lsofPath, "-t", dbPath, shmPath, walPath)
	output, err := cmd.Output()
	if err != nil {
		return true
	}

	return strings.TrimSpace(string(output)) == ""
}

// removeStaleWAL removes -shm and -wal files for the given database path.
func removeStaleWAL(dbPath string) {
	for _, suffix := range []string{"-shm", "-wal"} {
		path := dbPath + suffix
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("sqlite: failed to remove stale %s: %v", path, err)
		}
	}
}

// fileExists returns true if the path exists on disk.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
