package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// IssueSeverity is the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the export.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path names the offending setting.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate checks c and returns every finding. It never mutates c.
//
// With a full DSN only the driver and output are checked. Otherwise all five
// connection parameters must be set (sqlite only needs the database path).
func (c DB) Validate() []Issue {
	var issues []Issue
	errorf := func(path, format string, a ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	switch c.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLServer, DriverSQLite:
	case "":
		errorf("driver", "driver must not be empty")
	default:
		errorf("driver", "unsupported driver %q (want one of postgres, mysql, sqlserver, sqlite)", c.Driver)
	}

	if strings.TrimSpace(c.Output) == "" {
		errorf("output", "output path must not be empty")
	}

	if c.DSNOverride != "" {
		if c.hasDiscreteSettings() {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "dsn",
				Message:  "dsn is set; discrete host/port/database/user/password settings are ignored",
			})
		}
		return issues
	}

	if c.Driver == DriverSQLite {
		if strings.TrimSpace(c.Name) == "" {
			errorf("database", "sqlite requires the database file path")
		}
		return issues
	}

	for _, f := range []struct{ path, val string }{
		{"host", c.Host},
		{"port", c.Port},
		{"database", c.Name},
		{"user", c.User},
		{"password", c.Password},
	} {
		if strings.TrimSpace(f.val) == "" {
			errorf(f.path, "%s must be configured", f.path)
		}
	}

	if c.Port != "" {
		if n, err := strconv.Atoi(c.Port); err != nil || n < 1 || n > 65535 {
			errorf("port", "port %q is not a valid TCP port", c.Port)
		}
	}

	return issues
}

// hasDiscreteSettings reports whether any discrete connection parameter
// differs from Default, i.e. was set by a file, the environment or a flag.
func (c DB) hasDiscreteSettings() bool {
	d := Default()
	portSet := c.Port != "" && c.Port != d.Port && c.Port != DefaultPort(c.Driver)
	return portSet || c.Host != d.Host || c.Name != d.Name || c.User != d.User || c.Password != ""
}

// Err folds the error-severity issues of Validate into a single error
// wrapping ErrInvalid, or returns nil when there are none.
func Err(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
