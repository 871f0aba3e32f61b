// Package all enables every built-in Guacamole database dialect. It exists
// only for its side effects:
//
//	import _ "guacmigrate/internal/guacdb/all"
//
// makes "postgres", "mysql", "sqlserver" and "sqlite" available to
// guacdb.Open.
package all

import (
	_ "guacmigrate/internal/guacdb/mssql"
	_ "guacmigrate/internal/guacdb/mysql"
	_ "guacmigrate/internal/guacdb/postgres"
	_ "guacmigrate/internal/guacdb/sqlite"
)
