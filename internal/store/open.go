package store

import (
	"context"
	"fmt"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Options struct {
	Backend     string
	SQLitePath  string
	DatabaseURL string
	RedisAddr   string
}

// Open builds the configured backend. The caller owns the returned Close.
func Open(ctx context.Context, o Options) (Backend, error) {
	switch o.Backend {
	case BackendMemory:
		return NewMemStore(), nil
	case BackendSQLite, "":
		return OpenSQLite(ctx, o.SQLitePath)
	case BackendPostgres:
		return OpenPostgres(ctx, o.DatabaseURL)
	case BackendRedis:
		return OpenRedis(ctx, o.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown store backend %q", o.Backend)
	}
}
