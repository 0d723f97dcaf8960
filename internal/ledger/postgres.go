package ledger

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool behind the Postgres ledger.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// PostgresLedger stores processed domains in a Postgres table. Expected
// schema:
//
//	CREATE TABLE processed_domains (
//		domain        TEXT PRIMARY KEY,
//		product_count INTEGER NOT NULL,
//		processed_at  TIMESTAMPTZ NOT NULL
//	);
type PostgresLedger struct {
	pool  pgPool
	table string
}

// NewPostgres creates a Postgres-backed Ledger using the provided config.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresLedger, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("ledger.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "processed_domains"
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
	return &PostgresLedger{pool: pool, table: table}, nil
}

// NewPostgresWithPool constructs a ledger from an existing pool (primarily
// for testing).
func NewPostgresWithPool(pool pgPool, table string) (*PostgresLedger, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "processed_domains"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresLedger{pool: pool, table: table}, nil
}

// Contains checks for the domain's primary key.
func (l *PostgresLedger) Contains(ctx context.Context, domain string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE domain = $1)`, l.table)
	var exists bool
	if err := l.pool.QueryRow(ctx, query, domain).Scan(&exists); err != nil {
		return false, fmt.Errorf("query ledger for %s: %w", domain, err)
	}
	return exists, nil
}

// Record upserts the domain, keeping the latest product count and timestamp.
func (l *PostgresLedger) Record(ctx context.Context, domain string, productCount int) error {
	if domain == "" {
		return fmt.Errorf("ledger: empty domain")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (domain, product_count, processed_at)
VALUES ($1, $2, $3)
ON CONFLICT (domain) DO UPDATE SET
	product_count = EXCLUDED.product_count,
	processed_at = EXCLUDED.processed_at`, l.table)
	if _, err := l.pool.Exec(ctx, query, domain, productCount, time.Now().UTC()); err != nil {
		return fmt.Errorf("record ledger entry for %s: %w", domain, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (l *PostgresLedger) Close() error {
	if l == nil || l.pool == nil {
		return nil
	}
	l.pool.Close()
	return nil
}
