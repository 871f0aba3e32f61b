// Package postgres reads a Guacamole PostgreSQL database using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"guacmigrate/internal/guacdb"
)

// Query walks guacamole_connection_group from the root groups down, building
// each group's slash-joined path, then joins every connection to its path
// and parameters.
const Query = `
WITH RECURSIVE connection_group_path AS (
  SELECT
    connection_group_id,
    connection_group_name,
    parent_id,
    CAST(connection_group_name AS character varying) AS full_path
  FROM guacamole_connection_group
  WHERE parent_id IS NULL

  UNION ALL

  SELECT
    cg.connection_group_id,
    cg.connection_group_name,
    cg.parent_id,
    cgp.full_path || '/' || cg.connection_group_name AS full_path
  FROM guacamole_connection_group cg
  JOIN connection_group_path cgp ON cg.parent_id = cgp.connection_group_id
)
SELECT
  c.connection_id,
  c.connection_name,
  'ROOT/' || COALESCE(cgp.full_path, '') AS group_path,
  c.protocol,
  p.parameter_name,
  p.parameter_value
FROM guacamole_connection c
LEFT JOIN connection_group_path cgp ON c.parent_id = cgp.connection_group_id
LEFT JOIN guacamole_connection_parameter p ON c.connection_id = p.connection_id
ORDER BY
  c.connection_name,
  p.parameter_name`

// closeTimeout bounds the graceful shutdown of the session.
const closeTimeout = 5 * time.Second

// conn is the subset of *pgx.Conn the reader uses; tests substitute it.
type conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Reader is a guacdb.Reader over a single pgx connection.
type Reader struct {
	conn conn
}

var _ guacdb.Reader = (*Reader)(nil)

// NewReader connects with dsn and verifies the session with a ping.
func NewReader(ctx context.Context, dsn string) (*Reader, error) {
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", describe(err))
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close(context.Background())
		return nil, fmt.Errorf("postgres: ping: %w", describe(err))
	}
	return &Reader{conn: c}, nil
}

// FetchRows implements guacdb.Reader.
func (r *Reader) FetchRows(ctx context.Context) ([]guacdb.Row, error) {
	rows, err := r.conn.Query(ctx, Query)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", describe(err))
	}
	defer rows.Close()

	var out []guacdb.Row
	for rows.Next() {
		var row guacdb.Row
		if err := rows.Scan(
			&row.ConnectionID,
			&row.ConnectionName,
			&row.GroupPath,
			&row.Protocol,
			&row.ParameterName,
			&row.ParameterValue,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", describe(err))
	}
	return out, nil
}

// Close implements guacdb.Reader.
func (r *Reader) Close() error {
	if r.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return r.conn.Close(ctx)
}

// describe surfaces the server-side detail of a PgError, which pgx leaves
// out of Error(), while keeping the pgx error in the chain.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s, SQLSTATE %s)", err, pgErr.Detail, pgErr.SQLState())
	}
	return err
}
