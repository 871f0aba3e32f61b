// Package guacdbtest builds small Guacamole databases in SQLite for tests.
package guacdbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// Schema is the subset of the Guacamole schema the exporter reads.
const Schema = `
CREATE TABLE guacamole_connection_group (
  connection_group_id   INTEGER PRIMARY KEY,
  parent_id             INTEGER REFERENCES guacamole_connection_group(connection_group_id),
  connection_group_name TEXT NOT NULL
);
CREATE TABLE guacamole_connection (
  connection_id   INTEGER PRIMARY KEY,
  connection_name TEXT NOT NULL,
  parent_id       INTEGER REFERENCES guacamole_connection_group(connection_group_id),
  protocol        TEXT NOT NULL
);
CREATE TABLE guacamole_connection_parameter (
  connection_id   INTEGER NOT NULL REFERENCES guacamole_connection(connection_id),
  parameter_name  TEXT NOT NULL,
  parameter_value TEXT,
  PRIMARY KEY (connection_id, parameter_name)
);`

// SampleData is a small tree: Prod > Web, plus a connection at the root and
// one without parameters.
const SampleData = `
INSERT INTO guacamole_connection_group VALUES (1, NULL, 'Prod');
INSERT INTO guacamole_connection_group VALUES (2, 1, 'Web');
INSERT INTO guacamole_connection_group VALUES (3, NULL, 'Lab');

INSERT INTO guacamole_connection VALUES (5, 'web-01', 2, 'rdp');
INSERT INTO guacamole_connection VALUES (6, 'bastion', NULL, 'ssh');
INSERT INTO guacamole_connection VALUES (7, 'console', 3, 'vnc');

INSERT INTO guacamole_connection_parameter VALUES (5, 'port', '3389');
INSERT INTO guacamole_connection_parameter VALUES (5, 'hostname', '10.0.0.1');
INSERT INTO guacamole_connection_parameter VALUES (6, 'hostname', 'bastion.example.com');
INSERT INTO guacamole_connection_parameter VALUES (6, 'password', 'ZW5jcnlwdGVk');`

// NewDB creates a SQLite database file under t.TempDir(), applies Schema and
// the given statements, and returns its path. The handle used for seeding is
// closed before returning so the code under test opens its own.
func NewDB(t *testing.T, statements ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "guacamole.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	for _, stmt := range append([]string{Schema}, statements...) {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed sqlite: %v\n%s", err, stmt)
		}
	}
	return path
}
