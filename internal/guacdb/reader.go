// Package guacdb reads Guacamole connections, their resolved group paths and
// their parameters out of a Guacamole database, and folds the flat result
// rows into connection records.
//
// The package itself is dialect-agnostic. Concrete dialects (postgres, mysql,
// sqlserver, sqlite) live in subpackages that register a Factory at init
// time; importing guacdb/all enables all of them:
//
//	import _ "guacmigrate/internal/guacdb/all"
//
//	r, err := guacdb.Open(ctx, guacdb.Config{Driver: "postgres", DSN: dsn})
//	if err != nil { ... }
//	defer r.Close()
//	rows, err := r.FetchRows(ctx)
package guacdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// ErrUnsupportedDriver is returned by Open for a driver with no registered
// Factory.
var ErrUnsupportedDriver = errors.New("unsupported driver")

// DefaultConnectTimeout bounds how long Open may spend establishing and
// pinging the session.
const DefaultConnectTimeout = 10 * time.Second

// Row is one tuple of the export query. ParameterName and ParameterValue are
// NULL for connections without parameters (left join miss).
type Row struct {
	ConnectionID   int64
	ConnectionName string
	GroupPath      sql.NullString
	Protocol       string
	ParameterName  sql.NullString
	ParameterValue sql.NullString
}

// Reader is an open session to a Guacamole database. Close must be called on
// every path once Open has succeeded.
type Reader interface {
	// FetchRows runs the export query and returns all rows, ordered by
	// connection name then parameter name.
	FetchRows(ctx context.Context) ([]Row, error)
	// Close releases the session.
	Close() error
}

// Config is the dialect-agnostic connection configuration.
type Config struct {
	Driver string
	DSN    string
	// ConnectTimeout bounds Open; zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration
}

func (c Config) connectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return c.ConnectTimeout
}

// Factory opens a Reader for one dialect. Implementations must verify the
// session (ping) before returning so that bad credentials fail fast.
type Factory func(ctx context.Context, cfg Config) (Reader, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the Factory for driver.
func Register(driver string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[driver] = f
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Open connects to the database described by cfg using the registered
// Factory for cfg.Driver.
func Open(ctx context.Context, cfg Config) (Reader, error) {
	mu.RLock()
	f, ok := factories[cfg.Driver]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.connectTimeout())
	defer cancel()
	return f(ctx, cfg)
}
