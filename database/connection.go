package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kinnrichard/zerogen/utils"
)

// Connect opens a pgx pool against DATABASE_URL and verifies it with a
// ping. Callers own the pool and hand it to the introspector explicitly;
// there is no package-level connection state.
func Connect(ctx context.Context) (*pgxpool.Pool, error) {
	utils.LoadEnv()
	connStr, err := utils.DatabaseURL()
	if err != nil {
		return nil, err
	}
	return ConnectURL(ctx, connStr)
}

// ConnectURL opens a pool against an explicit connection string.
func ConnectURL(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %v", err)
	}

	return pool, nil
}
