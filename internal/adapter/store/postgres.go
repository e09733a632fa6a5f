package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/arturoeanton/go-context-gateway/internal/domain"
	"github.com/arturoeanton/go-context-gateway/internal/port"
)

// PostgresStore handles all relational database operations: collection
// metadata and the per-file index records the change tracker diffs against.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// EnsureSchema creates the gateway tables if they do not exist. The chunk
// vector column is dimensioned once per deployment; collections created with
// a different dimension are rejected at EnsureCollection time.
func (s *PostgresStore) EnsureSchema(ctx context.Context, dimension int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS collections (
			name       TEXT PRIMARY KEY,
			dimension  INT NOT NULL,
			model      TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS file_records (
			collection   TEXT NOT NULL,
			file_path    TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			chunk_ids    TEXT[] NOT NULL,
			indexed_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, file_path)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id           TEXT NOT NULL,
			collection   TEXT NOT NULL,
			file_path    TEXT NOT NULL,
			chunk_index  INT NOT NULL,
			start_line   INT NOT NULL,
			end_line     INT NOT NULL,
			content      TEXT NOT NULL,
			language     TEXT NOT NULL DEFAULT '',
			content_hash TEXT NOT NULL,
			vector       vector(%d),
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, id)
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS chunks_collection_path_idx ON chunks (collection, file_path)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// --- Collections ---

// EnsureCollection creates the collection if missing and verifies dimension
// and model on every call. A mismatch is a configuration error: the vectors
// already stored were produced in a different embedding space.
func (s *PostgresStore) EnsureCollection(ctx context.Context, name string, dimension int, model string) error {
	existing, err := s.GetCollection(ctx, name)
	if err == nil {
		if existing.Dimension != dimension || existing.Model != model {
			return fmt.Errorf("collection %s stores %s/%d vectors, provider produces %s/%d: %w",
				name, existing.Model, existing.Dimension, model, dimension, port.ErrDimensionMismatch)
		}
		return nil
	}
	if !errors.Is(err, port.ErrCollectionNotFound) {
		return err
	}

	query := `INSERT INTO collections (name, dimension, model)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (name) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, name, dimension, model); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// GetCollection returns collection metadata, or port.ErrCollectionNotFound.
func (s *PostgresStore) GetCollection(ctx context.Context, name string) (*domain.Collection, error) {
	query := `SELECT name, dimension, model, created_at FROM collections WHERE name = $1`

	var c domain.Collection
	err := s.db.QueryRowContext(ctx, query, name).Scan(&c.Name, &c.Dimension, &c.Model, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, port.ErrCollectionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return &c, nil
}

// --- File index records ---

// ListRecords returns all file records for a collection keyed by file path.
func (s *PostgresStore) ListRecords(ctx context.Context, collection string) (map[string]domain.FileIndexRecord, error) {
	query := `SELECT collection, file_path, content_hash, chunk_ids, indexed_at
	          FROM file_records WHERE collection = $1`

	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("list file records: %w", err)
	}
	defer rows.Close()

	records := make(map[string]domain.FileIndexRecord)
	for rows.Next() {
		var rec domain.FileIndexRecord
		if err := rows.Scan(
			&rec.Collection, &rec.FilePath, &rec.ContentHash,
			pq.Array(&rec.ChunkIDs), &rec.IndexedAt,
		); err != nil {
			return nil, fmt.Errorf("scan file record: %w", err)
		}
		records[rec.FilePath] = rec
	}
	return records, rows.Err()
}

// PutRecord inserts or replaces the record for one file.
func (s *PostgresStore) PutRecord(ctx context.Context, rec domain.FileIndexRecord) error {
	query := `INSERT INTO file_records (collection, file_path, content_hash, chunk_ids, indexed_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (collection, file_path) DO UPDATE SET
	              content_hash = EXCLUDED.content_hash,
	              chunk_ids = EXCLUDED.chunk_ids,
	              indexed_at = EXCLUDED.indexed_at`

	_, err := s.db.ExecContext(ctx, query,
		rec.Collection, rec.FilePath, rec.ContentHash, pq.Array(rec.ChunkIDs), rec.IndexedAt,
	)
	if err != nil {
		return fmt.Errorf("put file record: %w", err)
	}
	return nil
}

// DeleteRecord removes the record for a file.
func (s *PostgresStore) DeleteRecord(ctx context.Context, collection, filePath string) error {
	query := `DELETE FROM file_records WHERE collection = $1 AND file_path = $2`
	if _, err := s.db.ExecContext(ctx, query, collection, filePath); err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	return nil
}

var _ port.RecordStore = (*PostgresStore)(nil)
