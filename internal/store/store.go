// Package store provides a SQLite-backed vector store. It persists each
// collection's records together with their embeddings in a single local
// database file and answers queries by brute-force cosine distance, which is
// adequate for a knowledge base of a few thousand chunks.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/kbrag-go/internal/knowledge"
	"github.com/54b3r/kbrag-go/internal/rag"
)

// SQLiteStore is a rag.Store backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
	// embedder computes vectors for upserts and queries.
	embedder rag.Embedder
}

// DefaultDBPath returns the default path for the knowledge base database.
// It resolves to ~/.kbrag/knowledge.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".kbrag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "knowledge.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string, e rag.Embedder) (*SQLiteStore, error) {
	if e == nil {
		return nil, fmt.Errorf("store: embedder must not be nil")
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Single connection: serialises writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, embedder: e}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS collections (
    name        TEXT    PRIMARY KEY,
    created_at  INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE TABLE IF NOT EXISTS records (
    collection  TEXT    NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
    id          TEXT    NOT NULL,
    seq         INTEGER NOT NULL,
    document    TEXT    NOT NULL,
    metadata    TEXT    NOT NULL,  -- JSON object of scalars
    embedding   BLOB    NOT NULL,  -- little-endian float32
    updated_at  INTEGER NOT NULL,
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_records_collection_seq
    ON records (collection, seq);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Create implements rag.Store.
func (s *SQLiteStore) Create(ctx context.Context, name string) (rag.Collection, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (name, created_at) VALUES (?, ?)`, name, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("store: create %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", rag.ErrCollectionExists, name)
	}
	return &collection{store: s, name: name}, nil
}

// Delete implements rag.Store. Records go with the collection via the
// cascading foreign key.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: collection %q: %w", name, knowledge.ErrNotFound)
	}
	return nil
}

// GetOrCreate implements rag.Store.
func (s *SQLiteStore) GetOrCreate(ctx context.Context, name string) (rag.Collection, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (name, created_at) VALUES (?, ?)`, name, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("store: get or create %q: %w", name, err)
	}
	return &collection{store: s, name: name}, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// collection is a handle on one named collection. It holds no state beyond
// its name, so handles stay valid across a delete and re-create.
type collection struct {
	store *SQLiteStore
	name  string
}

func (c *collection) Name() string { return c.name }

// Upsert embeds the records and writes them in one transaction. Replacing an
// existing ID keeps its original insertion sequence.
func (c *collection) Upsert(ctx context.Context, records []rag.Record) error {
	if len(records) == 0 {
		return nil
	}
	vecs, err := rag.EmbedRecords(ctx, c.store.embedder, records)
	if err != nil {
		return err
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: upsert begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM records WHERE collection = ?`, c.name).Scan(&seq); err != nil {
		return fmt.Errorf("store: upsert seq: %w", err)
	}

	const q = `
INSERT INTO records (collection, id, seq, document, metadata, embedding, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (collection, id) DO UPDATE SET
    document   = excluded.document,
    metadata   = excluded.metadata,
    embedding  = excluded.embedding,
    updated_at = excluded.updated_at`

	now := time.Now().Unix()
	for i, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("store: upsert %s: encode metadata: %w", r.ID, err)
		}
		seq++
		if _, err := tx.ExecContext(ctx, q, c.name, r.ID, seq, r.Document, string(meta), encodeVector(vecs[i]), now); err != nil {
			return fmt.Errorf("store: upsert %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: upsert commit: %w", err)
	}
	return nil
}

// Query scans the collection, filters by where, and returns the n records
// nearest to text.
func (c *collection) Query(ctx context.Context, text string, n int, where rag.Where) ([]rag.Match, error) {
	vec, err := rag.EmbedQuery(ctx, c.store.embedder, text)
	if err != nil {
		return nil, err
	}

	rows, err := c.store.db.QueryContext(ctx,
		`SELECT id, document, metadata, embedding FROM records WHERE collection = ? ORDER BY seq`, c.name)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	var candidates []rag.Match
	for rows.Next() {
		var (
			m        rag.Match
			metaJSON string
			blob     []byte
		)
		if err := rows.Scan(&m.ID, &m.Document, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("store: query scan: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &m.Metadata); err != nil {
			return nil, fmt.Errorf("store: query %s: decode metadata: %w", m.ID, err)
		}
		if !where.Matches(m.Metadata) {
			continue
		}
		stored, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("store: query %s: %w", m.ID, err)
		}
		m.Distance = rag.CosineDistance(vec, stored)
		candidates = append(candidates, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: query rows: %w", err)
	}

	return rag.Nearest(candidates, n), nil
}

// Count implements rag.Collection.
func (c *collection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, c.name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// encodeVector serialises v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(len(v) * 4)
	_ = binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

// decodeVector is the inverse of encodeVector.
func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, errors.New("embedding blob length is not a multiple of 4")
	}
	v := make([]float32, len(b)/4)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, v); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return v, nil
}
