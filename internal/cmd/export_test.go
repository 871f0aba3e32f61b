package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guacmigrate/internal/config"
	"guacmigrate/internal/connection"
	"guacmigrate/internal/export"
	"guacmigrate/internal/guacdb/guacdbtest"
)

func noEnv() []string { return nil }

func readRecords(t *testing.T, path string) []connection.Record {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var recs []connection.Record
	require.NoError(t, json.Unmarshal(b, &recs))
	return recs
}

func TestExportCmdSQLite(t *testing.T) {
	t.Parallel()

	db := guacdbtest.NewDB(t, guacdbtest.SampleData)
	out := filepath.Join(t.TempDir(), "export.json")

	res := execute(t, newExportCmd(noEnv), "--driver", "sqlite", "--database", db, "-o", out)
	require.NoError(t, res.err)

	recs := readRecords(t, out)
	require.Len(t, recs, 3)

	assert.Equal(t, "bastion", recs[0].Name)
	assert.Equal(t, "ssh", recs[0].Protocol)
	assert.Equal(t, "ROOT/", recs[0].GroupPath())
	assert.Equal(t, map[string]string{"hostname": "bastion.example.com", "password": "ZW5jcnlwdGVk"}, recs[0].Parameters)

	assert.Equal(t, "console", recs[1].Name)
	assert.Equal(t, "ROOT/Lab", recs[1].GroupPath())
	assert.Empty(t, recs[1].Parameters)

	assert.Equal(t, "web-01", recs[2].Name)
	assert.Equal(t, "rdp", recs[2].Protocol)
	assert.Equal(t, "ROOT/Prod/Web", recs[2].GroupPath())
	assert.Equal(t, map[string]string{"hostname": "10.0.0.1", "port": "3389"}, recs[2].Parameters)

	assert.Contains(t, res.stderr, export.SensitiveWarning)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.logs, "fetched parameter rows")
	assert.Contains(t, res.logs, "database connection closed")
}

func TestExportCmdIsIdempotent(t *testing.T) {
	t.Parallel()

	db := guacdbtest.NewDB(t, guacdbtest.SampleData)
	dir := t.TempDir()
	first := filepath.Join(dir, "a.json")
	second := filepath.Join(dir, "b.json")

	require.NoError(t, execute(t, newExportCmd(noEnv), "--driver", "sqlite", "--database", db, "-o", first).err)
	require.NoError(t, execute(t, newExportCmd(noEnv), "--driver", "sqlite", "--database", db, "-o", second).err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExportCmdLegacyShape(t *testing.T) {
	t.Parallel()

	db := guacdbtest.NewDB(t, guacdbtest.SampleData)
	out := filepath.Join(t.TempDir(), "export.json")

	res := execute(t, newExportCmd(noEnv), "--driver", "sqlite", "--database", db, "-o", out, "--legacy-shape")
	require.NoError(t, res.err)

	recs := readRecords(t, out)
	require.Len(t, recs, 3)
	assert.Equal(t, "ROOT/Prod/Web", recs[2].Protocol)
	assert.Equal(t, "rdp", recs[2].GroupPath())
}

func TestExportCmdWithMetadata(t *testing.T) {
	t.Parallel()

	db := guacdbtest.NewDB(t, guacdbtest.SampleData)
	out := filepath.Join(t.TempDir(), "export.json")

	res := execute(t, newExportCmd(noEnv), "--driver", "sqlite", "--database", db, "-o", out, "--with-metadata")
	require.NoError(t, res.err)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var env export.Envelope
	require.NoError(t, json.Unmarshal(b, &env))

	assert.Equal(t, db, env.ExportedFromDatabase)
	assert.Equal(t, "date", env.ExportTimestamp.Type)
	assert.Positive(t, env.ExportTimestamp.Value)
	assert.Equal(t, 3, env.TotalConnectionsFound)
	assert.Len(t, env.Connections, 3)
}

func TestExportCmdFromEnvironmentAndFile(t *testing.T) {
	t.Parallel()

	db := guacdbtest.NewDB(t, guacdbtest.SampleData)
	dir := t.TempDir()
	fromEnv := filepath.Join(dir, "env.json")
	fromFlag := filepath.Join(dir, "flag.json")

	cfgPath := filepath.Join(dir, "guac.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("driver: postgres\noutput: file.json\n"), 0o600))

	environ := func() []string {
		return []string{
			"GUAC_DB_DRIVER=sqlite",
			"GUAC_DB_NAME=" + db,
			"GUAC_EXPORT_OUTPUT=" + fromEnv,
		}
	}

	res := execute(t, newExportCmd(environ), "--config", cfgPath)
	require.NoError(t, res.err)
	assert.Len(t, readRecords(t, fromEnv), 3)
	assert.NoFileExists(t, filepath.Join(dir, "file.json"))

	res = execute(t, newExportCmd(environ), "--config", cfgPath, "-o", fromFlag)
	require.NoError(t, res.err)
	assert.FileExists(t, fromFlag)
}

func TestExportCmdErrors(t *testing.T) {
	t.Parallel()

	typo := filepath.Join(t.TempDir(), "typo.db")

	tests := []struct {
		name      string
		args      []string
		wantIs    error
		wantInErr string
	}{
		{
			name:      "missing password",
			args:      []string{"--host", "db"},
			wantIs:    config.ErrInvalid,
			wantInErr: "password must be configured",
		},
		{
			name:      "unsupported driver",
			args:      []string{"--driver", "oracle"},
			wantIs:    config.ErrInvalid,
			wantInErr: `unsupported driver "oracle"`,
		},
		{
			name:      "missing config file",
			args:      []string{"--config", "/nonexistent/guac.yaml"},
			wantIs:    config.ErrInvalid,
			wantInErr: "/nonexistent/guac.yaml",
		},
		{
			name:      "unreachable sqlite file",
			args:      []string{"--driver", "sqlite", "--database", "/nonexistent/dir/guac.db"},
			wantInErr: "connect to /nonexistent/dir/guac.db",
		},
		{
			name:      "missing sqlite file in existing directory",
			args:      []string{"--driver", "sqlite", "--database", typo},
			wantInErr: "connect to " + typo,
		},
		{
			name:      "positional argument",
			args:      []string{"extra"},
			wantInErr: "unknown command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := filepath.Join(t.TempDir(), "export.json")
			res := execute(t, newExportCmd(noEnv), append(tt.args, "-o", out)...)
			require.Error(t, res.err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, res.err, tt.wantIs)
			}
			assert.Contains(t, res.err.Error(), tt.wantInErr)
			assert.NoFileExists(t, out)
			assert.NotContains(t, res.stderr, export.SensitiveWarning)
			assert.NoFileExists(t, typo)
		})
	}
}

func TestExportCmdWarnsAboutIgnoredSettings(t *testing.T) {
	t.Parallel()

	db := guacdbtest.NewDB(t, guacdbtest.SampleData)
	out := filepath.Join(t.TempDir(), "export.json")

	res := execute(t, newExportCmd(noEnv), "--driver", "sqlite", "--dsn", db, "--password", "x", "-o", out)
	require.NoError(t, res.err)
	assert.Contains(t, res.logs, "discrete host/port/database/user/password settings are ignored")

	res = execute(t, newExportCmd(noEnv), "--driver", "sqlite", "--dsn", db, "-o", out)
	require.NoError(t, res.err)
	assert.NotContains(t, res.logs, "settings are ignored")
}

func TestExportFlagsResolvePort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args     []string
		wantPort string
	}{
		{args: nil, wantPort: "5432"},
		{args: []string{"--driver", "mysql"}, wantPort: "3306"},
		{args: []string{"--driver", "sqlserver"}, wantPort: "1433"},
		{args: []string{"--driver", "mysql", "--port", "5432"}, wantPort: "5432"},
		{args: []string{"--driver", "mysql", "--port", "13306"}, wantPort: "13306"},
		{args: []string{"--driver", "sqlite"}, wantPort: ""},
	}

	for _, tt := range tests {
		cmd := &cobra.Command{}
		flags := &exportFlags{environ: noEnv}
		flags.addFlags(cmd)
		require.NoError(t, cmd.ParseFlags(tt.args))

		c, err := flags.resolve(cmd)
		require.NoError(t, err)
		assert.Equal(t, tt.wantPort, c.Port, "args %v", tt.args)
	}
}
