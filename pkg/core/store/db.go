// Package store persists analysis reports: Postgres when DATABASE_URL
// is configured, a local JSON directory otherwise.
package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

// InitDB initializes the shared connection pool from DATABASE_URL.
// Callers that can run without a database should treat an error here as
// a downgrade to file storage, not a fatal condition.
func InitDB(ctx context.Context) error {
	var err error
	once.Do(func() {
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			err = fmt.Errorf("DATABASE_URL environment variable not set")
			return
		}

		config, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
	})
	return err
}

// GetPool returns the shared pool, or nil when InitDB was never called
// or failed.
func GetPool() *pgxpool.Pool {
	return pool
}

// Close releases the shared pool.
func Close() {
	if pool != nil {
		pool.Close()
	}
}
