// Package storage provides the account store and its durable backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/account-monitor/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresBlobStore keeps the blob in one row of a BYTEA table
type PostgresBlobStore struct {
	pool  *pgxpool.Pool
	table string
	name  string
}

// NewPostgresPool creates a new Postgres connection pool
func NewPostgresPool(cfg *config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = int32(cfg.MaxConnections) // #nosec G115 - MaxConnections is small
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

// NewPostgresBlobStore creates the blob table if needed and returns a store
// for the row called name
func NewPostgresBlobStore(ctx context.Context, pool *pgxpool.Pool, table, name string) (*PostgresBlobStore, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		name       TEXT PRIMARY KEY,
		data       BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, table)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	return &PostgresBlobStore{pool: pool, table: table, name: name}, nil
}

// Get reads the row
func (p *PostgresBlobStore) Get(ctx context.Context) ([]byte, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE name = $1`, p.table)

	var data []byte
	if err := p.pool.QueryRow(ctx, query, p.name).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read store blob: %w", err)
	}
	return data, nil
}

// Put upserts the row
func (p *PostgresBlobStore) Put(ctx context.Context, data []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, p.table)

	if _, err := p.pool.Exec(ctx, query, p.name, data); err != nil {
		return fmt.Errorf("failed to write store blob: %w", err)
	}
	return nil
}

// Close closes the database connection pool
func (p *PostgresBlobStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
