package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"pdf-rag/internal/embeddings"
)

// PostgresStore keeps chunks in a pgvector table.
type PostgresStore struct {
	db        *sql.DB
	dimension int
}

func NewPostgres(dsn string, dimension int) (*PostgresStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db, dimension: dimension}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock keeps concurrently starting services from racing on DDL.
	const lockID = 482019377

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		// Another service is running migrations; wait for its table.
		return waitFor(ctx, migrationPollInterval, migrationPollAttempts, s.tableExists)
	}
	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rag_chunks (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT now()
		);`, s.dimension),
		`CREATE INDEX IF NOT EXISTS rag_chunks_embedding_idx
			ON rag_chunks USING hnsw (embedding vector_cosine_ops);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const (
	migrationPollInterval = 500 * time.Millisecond
	migrationPollAttempts = 60
)

func (s *PostgresStore) tableExists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT to_regclass('rag_chunks') IS NOT NULL`).Scan(&exists)
	return exists, err
}

// waitFor polls check until it reports true, failing after attempts polls.
func waitFor(ctx context.Context, interval time.Duration, attempts int, check func(context.Context) (bool, error)) error {
	for i := 0; i < attempts; i++ {
		ok, err := check(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("rag_chunks not created by concurrent migration after %d checks", attempts)
}

// Upsert replaces any rows with the same ids and inserts the new ones in one transaction.
func (s *PostgresStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, len(records))
	for i, r := range records {
		if len(r.Vector) != s.dimension {
			return fmt.Errorf("%w: record %s has %d, table has %d", ErrDimensionMismatch, r.ID, len(r.Vector), s.dimension)
		}
		ids[i] = r.ID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rag_chunks WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return err
	}
	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO rag_chunks(id, text, metadata, embedding) VALUES($1,$2,$3,$4::vector)`,
			r.ID, r.Text, meta, vectorToString(r.Vector))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Query(ctx context.Context, vector embeddings.Vector, k int) ([]Hit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, metadata, embedding <=> $1::vector AS distance
		FROM rag_chunks
		ORDER BY distance, id
		LIMIT $2
	`, vectorToString(vector), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h    Hit
			meta []byte
		)
		if err := rows.Scan(&h.ID, &h.Text, &meta, &h.Distance); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &h.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", h.ID, err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM rag_chunks`).Scan(&n)
	return n, err
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE rag_chunks`)
	return err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// vectorToString converts a Vector ([]float32) to pgvector array format.
// Format: "[0.1,0.2,0.3,...]"
func vectorToString(v embeddings.Vector) string {
	if len(v) == 0 {
		return "[]"
	}
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = strconv.FormatFloat(float64(val), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
