package database

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool used for run records.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresProvider writes run records into Postgres.
//
// Expected schema:
//
//	CREATE TABLE runs (
//		id UUID PRIMARY KEY,
//		session_id TEXT NOT NULL,
//		outcome TEXT NOT NULL,
//		started_at TIMESTAMPTZ NOT NULL,
//		finished_at TIMESTAMPTZ NOT NULL,
//		stages JSONB,
//		error TEXT
//	);
type PostgresProvider struct {
	pool  execCloser
	table string
}

// NewPostgresProvider connects a pool and verifies the DSN parses.
func NewPostgresProvider(ctx context.Context, cfg PostgresConfig) (*PostgresProvider, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "runs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresProvider{pool: pool, table: table}, nil
}

// NewPostgresProviderWithPool constructs a provider from an existing pool
// (primarily for testing).
func NewPostgresProviderWithPool(pool execCloser, table string) (*PostgresProvider, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "runs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresProvider{pool: pool, table: table}, nil
}

// RecordRun inserts a run row.
func (p *PostgresProvider) RecordRun(ctx context.Context, record RunRecord) (string, error) {
	if p == nil || p.pool == nil {
		return "", fmt.Errorf("postgres provider is not configured")
	}
	if record.ID == "" {
		return "", fmt.Errorf("run id is required")
	}
	stagesJSON, err := json.Marshal(record.Stages)
	if err != nil {
		return "", fmt.Errorf("marshal stage results: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	session_id,
	outcome,
	started_at,
	finished_at,
	stages,
	error
) VALUES (
	$1,$2,$3,$4,$5,$6,$7
)`, p.table)

	args := []any{
		record.ID,
		record.SessionID,
		record.Outcome,
		record.StartedAt,
		record.FinishedAt,
		stagesJSON,
		record.Error,
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return record.ID, nil
}

// Close releases the underlying pool resources.
func (p *PostgresProvider) Close() error {
	if p == nil || p.pool == nil {
		return nil
	}
	p.pool.Close()
	return nil
}
