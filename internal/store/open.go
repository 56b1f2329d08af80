package store

import (
	"context"
	"fmt"
)

// Options selects and configures a KV backend.
type Options struct {
	Backend     string // memory, redis or postgres
	DatabaseURL string
	RedisAddr   string
	KeyPrefix   string
}

// Backend is an opened KV store plus the connections behind it, so callers
// can share the Redis client and run health checks.
type Backend struct {
	KV    KV
	Redis *Redis
	DB    *DB
}

// Open connects the configured backend and verifies it is reachable.
func Open(ctx context.Context, opts Options) (*Backend, error) {
	switch opts.Backend {
	case "", "memory":
		return &Backend{KV: NewMemory()}, nil
	case "redis":
		r := NewRedis(opts.RedisAddr)
		if err := r.Client.Ping(ctx).Err(); err != nil {
			_ = r.Client.Close()
			return nil, fmt.Errorf("redis %s: %w", opts.RedisAddr, err)
		}
		return &Backend{KV: NewRedisKV(r.Client, opts.KeyPrefix), Redis: r}, nil
	case "postgres":
		db, err := NewDB(ctx, opts.DatabaseURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		kv, err := NewPostgresKV(ctx, db.Client)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Backend{KV: kv, DB: db}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// Close releases the connection owned by the KV.
func (b *Backend) Close() error {
	return b.KV.Close()
}
