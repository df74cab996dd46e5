package counter

import (
	"context"
	"fmt"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Options struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	DatabaseURL   string
}

// OpenStore connects the store named by opts.Backend. An empty backend
// selects the in-memory store.
func OpenStore(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStore(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	case BackendSQLite:
		return NewSQLiteStore(opts.SQLitePath)
	case BackendPostgres:
		return NewPostgresStore(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown counter backend %q", opts.Backend)
	}
}
