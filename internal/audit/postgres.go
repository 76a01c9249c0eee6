package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS data_admin_audit (
	id          UUID PRIMARY KEY,
	action      TEXT NOT NULL,
	severity    TEXT NOT NULL,
	table_key   TEXT NOT NULL,
	row_key     TEXT,
	column_name TEXT,
	old_value   TEXT,
	new_value   TEXT,
	reason      TEXT,
	session_id  TEXT,
	ip_address  TEXT,
	user_agent  TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS data_admin_audit_table_created_idx
	ON data_admin_audit (table_key, created_at DESC);
`

const insertSQL = `
INSERT INTO data_admin_audit (
	id, action, severity, table_key, row_key, column_name,
	old_value, new_value, reason, session_id, ip_address, user_agent, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// PostgresConfig holds connection pool settings for the audit database.
type PostgresConfig struct {
	URL             string
	MaxConns        int
	MaxConnLifetime time.Duration
}

// PostgresRecorder stores entries in the data_admin_audit table.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// NewPostgresRecorder connects, pings and ensures the audit table exists.
func NewPostgresRecorder(ctx context.Context, cfg PostgresConfig) (*PostgresRecorder, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse audit database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect audit database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create audit table: %w", err)
	}
	return &PostgresRecorder{pool: pool}, nil
}

// Record implements Recorder.
func (p *PostgresRecorder) Record(ctx context.Context, e Entry) error {
	id, err := toPgUUID(e.ID)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, insertSQL,
		id,
		string(e.Action),
		string(e.Severity),
		e.TableKey,
		toPgText(e.RowKey),
		toPgText(e.ColumnName),
		toPgText(e.OldValue),
		toPgText(e.NewValue),
		toPgText(e.Reason),
		toPgText(e.SessionID),
		toPgText(e.IPAddress),
		toPgText(e.UserAgent),
		pgtype.Timestamptz{Time: e.CreatedAt, Valid: !e.CreatedAt.IsZero()},
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Close releases the pool.
func (p *PostgresRecorder) Close() {
	p.pool.Close()
}

func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func toPgUUID(s string) (pgtype.UUID, error) {
	var u pgtype.UUID
	if err := u.Scan(s); err != nil {
		return u, fmt.Errorf("invalid audit id %q: %w", s, err)
	}
	return u, nil
}
