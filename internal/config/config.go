// Package config defines the database exporter's configuration and how it is
// assembled. Values are layered, later layers winning:
//
//  1. built-in defaults (Default)
//  2. an optional YAML file (LoadFile)
//  3. GUAC_* environment variables (ApplyEnv)
//  4. explicit command-line flags (applied by the caller)
//
// Example file:
//
//	driver: postgres
//	host: db.internal
//	port: "5432"
//	database: guacamole_db
//	user: guacamole_user
//	password: secret
//	output: guacamole_connections_db_export.json
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// DefaultOutput is where the database export is written when nothing else is
// configured.
const DefaultOutput = "guacamole_connections_db_export.json"

var (
	// ErrInvalid wraps every configuration load or validation failure.
	ErrInvalid = errors.New("invalid configuration")
)

// Supported driver names.
const (
	DriverPostgres  = "postgres"
	DriverMySQL     = "mysql"
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite"
)

// DB holds everything the exporter needs to reach the Guacamole database and
// where to put the result.
type DB struct {
	// Driver selects the Guacamole schema flavour: postgres, mysql,
	// sqlserver or sqlite.
	Driver string `yaml:"driver" env:"GUAC_DB_DRIVER"`

	// Host, Port, Name, User and Password are the discrete connection
	// parameters. They are ignored when DSNOverride is set.
	Host     string `yaml:"host" env:"GUAC_DB_HOST"`
	Port     string `yaml:"port" env:"GUAC_DB_PORT"`
	Name     string `yaml:"database" env:"GUAC_DB_NAME"`
	User     string `yaml:"user" env:"GUAC_DB_USER"`
	Password string `yaml:"password" env:"GUAC_DB_PASSWORD"`

	// DSNOverride is a complete driver-specific connection string.
	DSNOverride string `yaml:"dsn" env:"GUAC_DB_DSN"`

	// Output is the JSON file path the export is written to.
	Output string `yaml:"output" env:"GUAC_EXPORT_OUTPUT"`
}

// Default returns the configuration used before any file, environment or
// flag is applied. Credentials are deliberately left empty.
func Default() DB {
	return DB{
		Driver: DriverPostgres,
		Host:   "localhost",
		Port:   "5432",
		Name:   "guacamole_db",
		User:   "guacamole_user",
		Output: DefaultOutput,
	}
}

// DefaultPort returns the conventional port for driver, or "" when the
// driver has no network port.
func DefaultPort(driver string) string {
	switch driver {
	case DriverPostgres:
		return "5432"
	case DriverMySQL:
		return "3306"
	case DriverSQLServer:
		return "1433"
	default:
		return ""
	}
}

// LoadFile overlays the YAML document at path onto c. Keys missing from the
// file keep their current value.
func (c *DB) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrInvalid, path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrInvalid, path, err)
	}
	return nil
}

// ApplyEnv overlays GUAC_* variables from environ (KEY=VALUE pairs, as
// returned by os.Environ) onto c. Unset variables keep the current value.
func (c *DB) ApplyEnv(environ []string) error {
	if err := env.ParseWithOptions(c, env.Options{Environment: env.ToMap(environ)}); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Target describes the database for log lines without exposing credentials.
func (c DB) Target() string {
	if c.DSNOverride != "" {
		return c.Driver + " (dsn)"
	}
	if c.Driver == DriverSQLite {
		return c.Name
	}
	return fmt.Sprintf("%s on %s", c.Name, net.JoinHostPort(c.Host, c.Port))
}

// Origin is the "host:port/database" label recorded in export metadata.
func (c DB) Origin() string {
	switch {
	case c.DSNOverride != "":
		return c.Driver + " (dsn)"
	case c.Driver == DriverSQLite:
		return c.Name
	default:
		return net.JoinHostPort(c.Host, c.Port) + "/" + c.Name
	}
}

// DSN returns the connection string for c.Driver, built from the discrete
// parameters unless DSNOverride is set.
func (c DB) DSN() (string, error) {
	if c.DSNOverride != "" {
		return c.DSNOverride, nil
	}

	switch c.Driver {
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   net.JoinHostPort(c.Host, c.Port),
			Path:   "/" + c.Name,
		}
		return u.String(), nil

	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, c.Port)
		mc.DBName = c.Name
		return mc.FormatDSN(), nil

	case DriverSQLServer:
		q := url.Values{}
		q.Set("database", c.Name)
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.User, c.Password),
			Host:     net.JoinHostPort(c.Host, c.Port),
			RawQuery: q.Encode(),
		}
		return u.String(), nil

	case DriverSQLite:
		return c.Name, nil

	default:
		return "", fmt.Errorf("%w: unsupported driver %q", ErrInvalid, c.Driver)
	}
}
