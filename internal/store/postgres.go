package store

import (
	"context"
	"database/sql"
	"errors"
)

const createKVTable = `
	CREATE TABLE IF NOT EXISTS kv_snapshots (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// PostgresKV keeps snapshots in a single kv_snapshots table.
type PostgresKV struct {
	db *sql.DB
}

// NewPostgresKV creates the table if needed.
func NewPostgresKV(ctx context.Context, db *sql.DB) (*PostgresKV, error) {
	if _, err := db.ExecContext(ctx, createKVTable); err != nil {
		return nil, err
	}
	return &PostgresKV{db: db}, nil
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := p.db.QueryRowContext(ctx, `SELECT value FROM kv_snapshots WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (p *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO kv_snapshots (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	return err
}

func (p *PostgresKV) Close() error {
	return p.db.Close()
}
