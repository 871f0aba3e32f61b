package guacdb

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLReader is a Reader over a database/sql handle. The mysql, sqlserver
// and sqlite dialects share it and differ only in driver and query text.
type SQLReader struct {
	db    *sql.DB
	query string
	label string
}

var _ Reader = (*SQLReader)(nil)

// OpenSQL opens driverName with dsn, pings it within ctx and returns a
// reader that will run query. label prefixes error messages.
func OpenSQL(ctx context.Context, driverName, dsn, query, label string) (*SQLReader, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", label, err)
	}
	// One export, one query: a single connection is all we need.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: connect: %w", label, err)
	}
	return NewSQLReader(db, query, label), nil
}

// NewSQLReader wraps an already open handle. The reader takes ownership of
// db and closes it in Close.
func NewSQLReader(db *sql.DB, query, label string) *SQLReader {
	return &SQLReader{db: db, query: query, label: label}
}

// FetchRows implements Reader.
func (r *SQLReader) FetchRows(ctx context.Context) ([]Row, error) {
	rows, err := r.db.QueryContext(ctx, r.query)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", r.label, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(
			&row.ConnectionID,
			&row.ConnectionName,
			&row.GroupPath,
			&row.Protocol,
			&row.ParameterName,
			&row.ParameterValue,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", r.label, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", r.label, err)
	}
	return out, nil
}

// Close implements Reader.
func (r *SQLReader) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
