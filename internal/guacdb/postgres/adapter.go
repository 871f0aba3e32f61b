package postgres

import (
	"context"

	"guacmigrate/internal/guacdb"
)

// newReader is a test hook; tests replace it to avoid a real server.
var newReader = func(ctx context.Context, dsn string) (guacdb.Reader, error) {
	return NewReader(ctx, dsn)
}

func init() {
	guacdb.Register("postgres", func(ctx context.Context, cfg guacdb.Config) (guacdb.Reader, error) {
		return newReader(ctx, cfg.DSN)
	})
}
