package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Options selects and configures a KV backend.
type Options struct {
	Backend       string
	Dir           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
}

// Open builds the configured backend. An unreachable Redis falls back to the file backend.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryKV(), nil
	case BackendRedis:
		kv, err := NewRedisKV(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err == nil {
			log.Info().Str("addr", opts.RedisAddr).Msg("Using redis station store")
			return kv, nil
		}
		log.Warn().Err(err).Msg("Redis unavailable, falling back to file store")
		return NewFileKV(filepath.Join(opts.Dir, "store"))
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.Dir, "moodradio.db")
		}
		return NewSQLiteKV(path)
	case BackendFile, "":
		return NewFileKV(filepath.Join(opts.Dir, "store"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
