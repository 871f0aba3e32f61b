// Package sqlite reads a Guacamole schema stored in SQLite. Guacamole does not
// ship a SQLite schema; this dialect serves offline copies and hermetic tests.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"guacmigrate/internal/guacdb"
)

// Query matches the PostgreSQL text except for the anchor cast type.
const Query = `
WITH RECURSIVE connection_group_path AS (
  SELECT
    connection_group_id,
    connection_group_name,
    parent_id,
    CAST(connection_group_name AS TEXT) AS full_path
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

// newReader is a test hook; tests replace it to avoid touching the disk.
var newReader = NewReader

// NewReader opens the existing SQLite database at dsn (a path or file: URI).
func NewReader(ctx context.Context, dsn string) (guacdb.Reader, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	// The driver creates missing files; a plain path must already exist.
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if _, err := os.Stat(dsn); err != nil {
			return nil, fmt.Errorf("sqlite: connect: %w", err)
		}
	}
	r, err := guacdb.OpenSQL(ctx, "sqlite", dsn, Query, "sqlite")
	if err != nil {
		return nil, err
	}
	return r, nil
}

func init() {
	guacdb.Register("sqlite", func(ctx context.Context, cfg guacdb.Config) (guacdb.Reader, error) {
		return newReader(ctx, cfg.DSN)
	})
}
