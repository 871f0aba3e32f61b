package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guacmigrate/internal/guacdb"
)

// fakeRows replays fixed tuples through the pgx.Rows interface.
type fakeRows struct {
	data [][]any
	i    int
	err  error
}

func (f *fakeRows) Close()                                       {}
func (f *fakeRows) Err() error                                   { return f.err }
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return f.data[f.i-1], nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Next() bool {
	if f.i >= len(f.data) {
		return false
	}
	f.i++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.data[f.i-1]
	for j, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = row[j].(int64)
		case *string:
			*p = row[j].(string)
		case *sql.NullString:
			if err := p.Scan(row[j]); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected scan target %T", d)
		}
	}
	return nil
}

type fakeConn struct {
	rows     *fakeRows
	queryErr error
	gotSQL   string
	closed   bool
}

func (c *fakeConn) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	c.gotSQL = sql
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return c.rows, nil
}
func (c *fakeConn) Ping(context.Context) error  { return nil }
func (c *fakeConn) Close(context.Context) error { c.closed = true; return nil }

func TestFetchRows_ScansTuples(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{rows: &fakeRows{data: [][]any{
		{int64(5), "web", "ROOT/Prod", "rdp", "hostname", "10.0.0.1"},
		{int64(5), "web", "ROOT/Prod", "rdp", "port", "3389"},
		{int64(6), "bare", "ROOT/", "ssh", nil, nil},
	}}}
	r := &Reader{conn: conn}

	rows, err := r.FetchRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Query, conn.gotSQL)
	assert.Equal(t, int64(5), rows[0].ConnectionID)
	assert.Equal(t, "port", rows[1].ParameterName.String)
	assert.False(t, rows[2].ParameterName.Valid)

	require.NoError(t, r.Close())
	assert.True(t, conn.closed)
}

func TestFetchRows_SurfacesPgErrorDetail(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Code: "42P01", Message: "relation does not exist", Detail: "guacamole_connection"}
	r := &Reader{conn: &fakeConn{queryErr: pgErr}}

	_, err := r.FetchRows(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: query")
	assert.Contains(t, err.Error(), "SQLSTATE 42P01")

	var target *pgconn.PgError
	assert.True(t, errors.As(err, &target))
}

func TestFetchRows_RowsErr(t *testing.T) {
	t.Parallel()

	r := &Reader{conn: &fakeConn{rows: &fakeRows{err: errors.New("connection reset")}}}
	_, err := r.FetchRows(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}

// Not parallel: swaps the package-level hook.
func TestAdapterRegistration(t *testing.T) {
	orig := newReader
	defer func() { newReader = orig }()

	var gotDSN string
	newReader = func(_ context.Context, dsn string) (guacdb.Reader, error) {
		gotDSN = dsn
		return &Reader{conn: &fakeConn{rows: &fakeRows{}}}, nil
	}

	r, err := guacdb.Open(context.Background(), guacdb.Config{Driver: "postgres", DSN: "postgres://u:p@h/guacamole_db"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h/guacamole_db", gotDSN)
	assert.NoError(t, r.Close())
}

// TestIntegration_FetchRows runs against a real Guacamole database when
// TEST_PG_DSN is set, e.g.
//
//	TEST_PG_DSN='postgres://guacamole_user:pw@localhost:5432/guacamole_db' go test ./internal/guacdb/postgres
func TestIntegration_FetchRows(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("skipping integration test: set TEST_PG_DSN to run")
	}

	ctx := context.Background()
	r, err := NewReader(ctx, dsn)
	require.NoError(t, err)
	defer r.Close()

	rows, err := r.FetchRows(ctx)
	require.NoError(t, err)
	for _, row := range rows {
		assert.True(t, row.GroupPath.Valid)
		assert.Regexp(t, "^ROOT/", row.GroupPath.String)
	}
}
