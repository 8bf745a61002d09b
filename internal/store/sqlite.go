package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/docqhq/docq-go/internal/rag"
)

// SQLiteStore is a Store backed by a local SQLite database. It is the
// default backend: a single file, no external services, and transaction
// semantics that make partition create/drop atomic for free.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the chunk database.
// It resolves to ~/.docq/chunks.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".docq")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "chunks.db"), nil
}

// OpenSQLite opens (or creates) a SQLiteStore at the given path and
// runs the schema migration. Use ":memory:" for an in-memory database
// in tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS partitions (
    name         TEXT    PRIMARY KEY,
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE TABLE IF NOT EXISTS chunks (
    id              TEXT    PRIMARY KEY,
    partition       TEXT    NOT NULL,
    filename        TEXT    NOT NULL,
    content         TEXT    NOT NULL,
    embedding       BLOB    NOT NULL,
    embedding_model TEXT    NOT NULL,
    created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_partition_model
    ON chunks (partition, embedding_model);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Insert appends chunk records to a partition inside one transaction,
// so a failed ingestion leaves no partial document behind.
func (s *SQLiteStore) Insert(ctx context.Context, partition string, chunks []rag.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: insert begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO chunks (id, partition, filename, content, embedding, embedding_model, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().Unix()
	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, q, id, partition, c.Filename, c.Content,
			encodeVector(c.Embedding), c.EmbeddingModel, now); err != nil {
			return fmt.Errorf("store: insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: insert commit: %w", err)
	}
	return nil
}

// Scan returns the partition's chunks for the given embedding model in
// first-inserted order. rowid ordering keeps ranking ties deterministic
// across runs.
func (s *SQLiteStore) Scan(ctx context.Context, partition, embeddingModel string) ([]rag.Chunk, error) {
	const q = `
SELECT id, filename, content, embedding, embedding_model
FROM   chunks
WHERE  partition = ? AND embedding_model = ?
ORDER  BY rowid ASC`

	rows, err := s.db.QueryContext(ctx, q, partition, embeddingModel)
	if err != nil {
		return nil, fmt.Errorf("store: scan: %w", err)
	}
	defer rows.Close()

	var chunks []rag.Chunk
	for rows.Next() {
		var c rag.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Filename, &c.Content, &blob, &c.EmbeddingModel); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		c.Embedding = decodeVector(blob)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: scan rows: %w", err)
	}
	return chunks, nil
}

// Count returns the number of chunks in the partition.
func (s *SQLiteStore) Count(ctx context.Context, partition string) (int64, error) {
	var n int64
	const q = `SELECT COUNT(*) FROM chunks WHERE partition = ?`
	if err := s.db.QueryRowContext(ctx, q, partition).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// DeleteAll removes every chunk from the partition and reports how many
// were removed. The partition row itself is kept.
func (s *SQLiteStore) DeleteAll(ctx context.Context, partition string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE partition = ?`, partition)
	if err != nil {
		return 0, fmt.Errorf("store: delete all: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: delete all rows affected: %w", err)
	}
	return n, nil
}

// CreatePartition registers a partition. Idempotent — repeated creation
// of the same name is a no-op, which gives concurrent create/create
// races last-write-wins semantics without corruption.
func (s *SQLiteStore) CreatePartition(ctx context.Context, name string) error {
	const q = `INSERT INTO partitions (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, q, name, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: create partition: %w", err)
	}
	return nil
}

// DropPartition removes the partition and all its chunks in one
// transaction so no chunk can dangle without its partition.
func (s *SQLiteStore) DropPartition(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: drop begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE partition = ?`, name); err != nil {
		return fmt.Errorf("store: drop chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM partitions WHERE name = ?`, name); err != nil {
		return fmt.Errorf("store: drop partition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: drop commit: %w", err)
	}
	return nil
}

// ListPartitions returns the names of all live partitions in creation order.
func (s *SQLiteStore) ListPartitions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM partitions ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list partitions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: list partitions row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list partitions rows: %w", err)
	}
	return names, nil
}

// Close closes the underlying database connection pool.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
