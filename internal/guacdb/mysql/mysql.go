// Package mysql reads a Guacamole MySQL or MariaDB database.
package mysql

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"guacmigrate/internal/guacdb"
)

// Query is the MySQL 8 / MariaDB 10.2+ rendition of the export query. The
// anchor CAST widens full_path; MySQL otherwise sizes the recursive column
// from the root group name and truncates deeper paths.
const Query = `
WITH RECURSIVE connection_group_path AS (
  SELECT
    connection_group_id,
    connection_group_name,
    parent_id,
    CAST(connection_group_name AS CHAR(4096)) AS full_path
  FROM guacamole_connection_group
  WHERE parent_id IS NULL

  UNION ALL

  SELECT
    cg.connection_group_id,
    cg.connection_group_name,
    cg.parent_id,
    CONCAT(cgp.full_path, '/', cg.connection_group_name) AS full_path
  FROM guacamole_connection_group cg
  JOIN connection_group_path cgp ON cg.parent_id = cgp.connection_group_id
)
SELECT
  c.connection_id,
  c.connection_name,
  CONCAT('ROOT/', COALESCE(cgp.full_path, '')) AS group_path,
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

// NewReader parses dsn with the driver's own parser, so malformed DSNs fail
// before any network traffic, then opens and pings the session.
func NewReader(ctx context.Context, dsn string) (guacdb.Reader, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	// Guacamole stores names and parameters as utf8mb4 text.
	if mc.Params == nil {
		mc.Params = map[string]string{}
	}
	if _, ok := mc.Params["charset"]; !ok {
		mc.Params["charset"] = "utf8mb4"
	}
	r, err := guacdb.OpenSQL(ctx, "mysql", mc.FormatDSN(), Query, "mysql")
	if err != nil {
		return nil, err
	}
	return r, nil
}

func init() {
	guacdb.Register("mysql", func(ctx context.Context, cfg guacdb.Config) (guacdb.Reader, error) {
		return newReader(ctx, cfg.DSN)
	})
}
