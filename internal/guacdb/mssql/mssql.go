// Package mssql reads a Guacamole SQL Server database through go-mssqldb.
package mssql

import (
	"context"
	"fmt"

	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver
	"github.com/microsoft/go-mssqldb/msdsn"

	"guacmigrate/internal/guacdb"
)

// Query is the T-SQL rendition of the export query. SQL Server requires the
// recursive member's column type to match the anchor exactly, hence the
// NVARCHAR(MAX) casts on both sides.
const Query = `
WITH connection_group_path AS (
  SELECT
    connection_group_id,
    connection_group_name,
    parent_id,
    CAST(connection_group_name AS NVARCHAR(MAX)) AS full_path
  FROM guacamole_connection_group
  WHERE parent_id IS NULL

  UNION ALL

  SELECT
    cg.connection_group_id,
    cg.connection_group_name,
    cg.parent_id,
    CAST(cgp.full_path + N'/' + cg.connection_group_name AS NVARCHAR(MAX)) AS full_path
  FROM guacamole_connection_group cg
  JOIN connection_group_path cgp ON cg.parent_id = cgp.connection_group_id
)
SELECT
  c.connection_id,
  c.connection_name,
  N'ROOT/' + COALESCE(cgp.full_path, N'') AS group_path,
  c.protocol,
  p.parameter_name,
  p.parameter_value
FROM guacamole_connection c
LEFT JOIN connection_group_path cgp ON c.parent_id = cgp.connection_group_id
LEFT JOIN guacamole_connection_parameter p ON c.connection_id = p.connection_id
ORDER BY
  c.connection_name,
  p.parameter_name`

// newReader is a test hook; tests replace it to avoid a real server.
var newReader = NewReader

// NewReader validates dsn early, then opens and pings the session.
func NewReader(ctx context.Context, dsn string) (guacdb.Reader, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	r, err := guacdb.OpenSQL(ctx, "sqlserver", dsn, Query, "mssql")
	if err != nil {
		return nil, err
	}
	return r, nil
}

func init() {
	guacdb.Register("sqlserver", func(ctx context.Context, cfg guacdb.Config) (guacdb.Reader, error) {
		return newReader(ctx, cfg.DSN)
	})
}
