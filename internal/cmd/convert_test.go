package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guacmigrate/internal/connection"
	"guacmigrate/internal/rdm"
)

const rdmExport = `<?xml version="1.0" encoding="utf-8"?>
<ArrayOfConnection>
  <Connection>
    <ConnectionType>SSHShell</ConnectionType>
    <Name>Server1</Name>
    <Group>Linux\Prod</Group>
    <Terminal>
      <Host>10.0.0.10</Host>
      <Username>ops</Username>
      <SafePassword>c2VjcmV0</SafePassword>
    </Terminal>
  </Connection>
  <Connection>
    <ConnectionType>RDPConfigured</ConnectionType>
    <Name>Server1</Name>
    <RDP>
      <Host>10.0.0.20</Host>
      <ScreenSizingMode>FitToWindow</ScreenSizingMode>
    </RDP>
  </Connection>
  <Connection>
    <ConnectionType>Group</ConnectionType>
    <Name>Linux</Name>
  </Connection>
</ArrayOfConnection>
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConvertCmd(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "export.rdm", rdmExport)
	res := execute(t, ConvertCmd(), path)
	require.NoError(t, res.err)

	var recs []connection.Record
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &recs))
	require.Len(t, recs, 2)

	assert.Equal(t, "Server1", recs[0].Name)
	assert.Equal(t, "ssh", recs[0].Protocol)
	assert.Equal(t, "ROOT/Linux/Prod", recs[0].GroupPath())
	assert.Equal(t, "22", recs[0].Parameters["port"])
	assert.Equal(t, "ops", recs[0].Parameters["username"])
	assert.NotContains(t, res.stdout, "c2VjcmV0")

	assert.Equal(t, "Server1 (rdp)", recs[1].Name)
	assert.Nil(t, recs[1].Group)
	assert.Equal(t, "3389", recs[1].Parameters["port"])
	assert.Equal(t, "scale", recs[1].Parameters["resize-method"])

	assert.Contains(t, res.stderr, "1 connection(s) carried encrypted passwords")
	assert.Contains(t, res.logs, "converted entries")
}

func TestConvertCmdOutputFormat(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "export.rdm", `<r><Connection><ConnectionType>VNC</ConnectionType><Name>v</Name><VNC><Host>h</Host></VNC></Connection></r>`)
	res := execute(t, ConvertCmd(), path)
	require.NoError(t, res.err)

	want := `[
    {
        "name": "v",
        "protocol": "vnc",
        "parameters": {
            "hostname": "h",
            "port": "5900"
        }
    }
]
`
	assert.Equal(t, want, res.stdout)
	assert.Empty(t, res.stderr)
}

func TestConvertCmdNoSupportedConnections(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "export.rdm", `<ArrayOfConnection><Connection><ConnectionType>Group</ConnectionType></Connection></ArrayOfConnection>`)
	res := execute(t, ConvertCmd(), path)
	require.NoError(t, res.err)
	assert.Equal(t, "No supported connections (SSHShell, RDP, RDPConfigured, VNC) found in the provided XML.\n", res.stdout)
}

func TestConvertCmdErrors(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "missing.rdm")
	malformed := writeFile(t, "bad.rdm", "<ArrayOfConnection><Connection>")

	tests := []struct {
		name       string
		args       []string
		wantIs     error
		wantStdout string
		prefixOnly bool
	}{
		{
			name:       "no arguments",
			args:       nil,
			wantIs:     errUsage,
			wantStdout: "Usage: rdm2guac <path_to_rdm_xml_file>\n",
		},
		{
			name:       "too many arguments",
			args:       []string{"a.rdm", "b.rdm"},
			wantIs:     errUsage,
			wantStdout: "Usage: rdm2guac <path_to_rdm_xml_file>\n",
		},
		{
			name:       "missing file",
			args:       []string{missing},
			wantIs:     rdm.ErrNotFound,
			wantStdout: "Error: File not found: " + missing + "\n",
		},
		{
			name:       "malformed file",
			args:       []string{malformed},
			wantIs:     rdm.ErrMalformed,
			wantStdout: "Error parsing XML file: ",
			prefixOnly: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := execute(t, ConvertCmd(), tt.args...)
			require.Error(t, res.err)
			assert.ErrorIs(t, res.err, tt.wantIs)
			if tt.prefixOnly {
				assert.Contains(t, res.stdout, tt.wantStdout)
			} else {
				assert.Equal(t, tt.wantStdout, res.stdout)
			}
			assert.NotContains(t, res.stderr, "Error:", "message printed twice")
		})
	}
}

func TestNoConnectionsMessage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "No supported connections (SSHShell, RDP, RDPConfigured, VNC) found in the provided XML.", noConnectionsMessage())
}

// Not parallel: it changes the working directory so the bare file names
// reach cobra exactly as a user would type them.
func TestConvertCmdAcceptsFilesNamedLikeCommands(t *testing.T) {
	t.Chdir(t.TempDir())

	for _, name := range []string{"version", "help", "completion"} {
		doc := `<r><Connection><ConnectionType>VNC</ConnectionType><Name>` + name + `</Name></Connection></r>`
		require.NoError(t, os.WriteFile(name, []byte(doc), 0o600))

		res := execute(t, ConvertCmd(), name)
		require.NoError(t, res.err, name)
		assert.Contains(t, res.stdout, `"name": "`+name+`"`, name)
	}
	assert.Empty(t, ConvertCmd().Commands())
}
