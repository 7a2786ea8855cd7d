package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgvectorBackend stores chunk vectors in a Postgres table with the vector extension.
type PgvectorBackend struct {
	pool  *pgxpool.Pool
	name  string
	table string
}

func NewPgvectorBackend(pool *pgxpool.Pool, table string) *PgvectorBackend {
	if table == "" {
		table = "legal_chunks"
	}
	return &PgvectorBackend{
		pool:  pool,
		name:  table,
		table: pgx.Identifier{table}.Sanitize(),
	}
}

func (p *PgvectorBackend) Name() string { return "pgvector" }

func (p *PgvectorBackend) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	_, err := p.pool.Exec(ctx, p.initSQL(dimension))
	return err
}

func (p *PgvectorBackend) initSQL(dimension int) string {
	return fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS %[1]s (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}',
		embedding vector(%[2]d)
	);

	CREATE INDEX IF NOT EXISTS %[3]s ON %[1]s USING GIN (metadata);
	`, p.table, dimension, pgx.Identifier{"idx_" + p.name + "_metadata"}.Sanitize())
}

func (p *PgvectorBackend) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	query := p.upsertSQL()
	batch := &pgx.Batch{}
	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", r.ID, err)
		}
		batch.Queue(query, r.ID, r.Text, string(meta), pgvector.NewVector(r.Vector))
	}
	return p.pool.SendBatch(ctx, batch).Close()
}

func (p *PgvectorBackend) upsertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`, p.table)
}

func (p *PgvectorBackend) Query(ctx context.Context, vector []float32, filter map[string]any, topK int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, errors.New("empty query vector")
	}
	if topK <= 0 {
		topK = 5
	}
	filterJSON, err := containmentFilter(filter)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, p.querySQL(), pgvector.NewVector(vector), filterJSON, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Text, &m.Metadata, &m.Score); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (p *PgvectorBackend) querySQL() string {
	return fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE embedding IS NOT NULL AND metadata @> $2::jsonb
		ORDER BY embedding <=> $1
		LIMIT $3`, p.table)
}

// containmentFilter encodes an equality filter as a JSONB document for @>.
// A nil filter matches every row.
func containmentFilter(filter map[string]any) (string, error) {
	if filter == nil {
		filter = map[string]any{}
	}
	raw, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("marshal filter: %w", err)
	}
	return string(raw), nil
}

func (p *PgvectorBackend) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", p.table), ids)
	return err
}

func (p *PgvectorBackend) DeleteAll(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", p.table))
	return err
}
