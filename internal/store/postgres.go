package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend keeps each document as one JSONB row. Update locks the row
// with SELECT ... FOR UPDATE, so writers in different processes are serialized too.
type PostgresBackend struct {
	db *pgxpool.Pool
}

func NewPostgresBackend(db *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	_, err := b.db.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS fact_documents (
			name       TEXT PRIMARY KEY,
			body       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create fact_documents: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Read(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := b.db.QueryRow(ctx,
		`SELECT body FROM fact_documents WHERE name = $1`,
		name,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return body, nil
}

func (b *PostgresBackend) Update(ctx context.Context, name string, fn func(current []byte) ([]byte, error)) error {
	tx, err := b.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Make sure a row exists so FOR UPDATE has something to lock.
	if _, err := tx.Exec(ctx,
		`INSERT INTO fact_documents (name, body) VALUES ($1, 'null'::jsonb)
		 ON CONFLICT (name) DO NOTHING`,
		name,
	); err != nil {
		return fmt.Errorf("init %s: %w", name, err)
	}

	var current []byte
	if err := tx.QueryRow(ctx,
		`SELECT body FROM fact_documents WHERE name = $1 FOR UPDATE`,
		name,
	).Scan(&current); err != nil {
		return fmt.Errorf("lock %s: %w", name, err)
	}
	if bytes.Equal(bytes.TrimSpace(current), []byte("null")) {
		current = nil
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		return tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE fact_documents SET body = $2, updated_at = NOW() WHERE name = $1`,
		name, next,
	); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return tx.Commit(ctx)
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.db.Ping(ctx)
}
