package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"guacmigrate/internal/config"
	"guacmigrate/internal/connection"
	"guacmigrate/internal/export"
	"guacmigrate/internal/guacdb"
	_ "guacmigrate/internal/guacdb/all"
	"guacmigrate/internal/logger"
	"guacmigrate/internal/metrics"
)

// ExportToolName is the guacexport binary and metrics job name.
const ExportToolName = "guacexport"

const (
	exportCmdShort = "export Guacamole connections from its database to JSON"
	exportCmdLong  = `Export every connection stored in an Apache Guacamole database, with its
	full group path and all of its parameters, to a JSON file.

	Connection settings are read from built-in defaults, then the optional
	--config YAML file, then GUAC_DB_* environment variables, then flags.
	Parameter values are exported verbatim, including encrypted passwords:
	store the result securely and delete it after use.`

	exportCmdExample = `# Export from PostgreSQL using environment variables
	GUAC_DB_HOST=db GUAC_DB_PASSWORD=secret guacexport

	# Export from MySQL into a custom file, wrapped with export metadata
	guacexport --driver mysql --host db --user guac --password secret -o out.json --with-metadata

	# Export from an offline SQLite copy
	guacexport --driver sqlite --database ./guacamole.db`

	configFlagName       = "config"
	driverFlagName       = "driver"
	hostFlagName         = "host"
	portFlagName         = "port"
	databaseFlagName     = "database"
	userFlagName         = "user"
	passwordFlagName     = "password"
	dsnFlagName          = "dsn"
	outputFlagName       = "output"
	outputShortFlagName  = "o"
	legacyShapeFlagName  = "legacy-shape"
	withMetadataFlagName = "with-metadata"
	timeoutFlagName      = "connect-timeout"
)

// exportFlags holds the raw flag values; only flags the user actually set
// override the lower configuration layers.
type exportFlags struct {
	environ        func() []string
	configPath     string
	db             config.DB
	legacyShape    bool
	withMetadata   bool
	connectTimeout time.Duration
}

func (f *exportFlags) addFlags(cmd *cobra.Command) {
	def := config.Default()
	fl := cmd.Flags()
	fl.StringVar(&f.configPath, configFlagName, "", "path to a YAML file with connection settings")
	fl.StringVar(&f.db.Driver, driverFlagName, def.Driver, "database flavour (postgres, mysql, sqlserver, sqlite)")
	fl.StringVar(&f.db.Host, hostFlagName, def.Host, "database host")
	fl.StringVar(&f.db.Port, portFlagName, def.Port, "database port")
	fl.StringVar(&f.db.Name, databaseFlagName, def.Name, "database name, or file path for sqlite")
	fl.StringVar(&f.db.User, userFlagName, def.User, "database user")
	fl.StringVar(&f.db.Password, passwordFlagName, "", "database password (prefer GUAC_DB_PASSWORD)")
	fl.StringVar(&f.db.DSNOverride, dsnFlagName, "", "full driver-specific DSN; replaces the discrete settings")
	fl.StringVarP(&f.db.Output, outputFlagName, outputShortFlagName, def.Output, "JSON file to write")
	fl.BoolVar(&f.legacyShape, legacyShapeFlagName, false, "swap the protocol and group fields the way older exports did")
	fl.BoolVar(&f.withMetadata, withMetadataFlagName, false, "wrap the connections with source, timestamp and count")
	fl.DurationVar(&f.connectTimeout, timeoutFlagName, guacdb.DefaultConnectTimeout, "time allowed to connect and ping the database")
}

// resolve layers defaults, file, environment and changed flags.
func (f *exportFlags) resolve(cmd *cobra.Command) (config.DB, error) {
	c := config.Default()
	if f.configPath != "" {
		if err := c.LoadFile(f.configPath); err != nil {
			return config.DB{}, err
		}
	}
	if err := c.ApplyEnv(f.environ()); err != nil {
		return config.DB{}, err
	}

	set := func(name string, dst *string, val string) {
		if cmd.Flags().Changed(name) {
			*dst = val
		}
	}
	set(driverFlagName, &c.Driver, f.db.Driver)
	set(hostFlagName, &c.Host, f.db.Host)
	set(portFlagName, &c.Port, f.db.Port)
	set(databaseFlagName, &c.Name, f.db.Name)
	set(userFlagName, &c.User, f.db.User)
	set(passwordFlagName, &c.Password, f.db.Password)
	set(dsnFlagName, &c.DSNOverride, f.db.DSNOverride)
	set(outputFlagName, &c.Output, f.db.Output)

	// Switching flavour without naming a port means the flavour's own default.
	if !cmd.Flags().Changed(portFlagName) && c.Driver != config.DriverPostgres && c.Port == config.DefaultPort(config.DriverPostgres) {
		c.Port = config.DefaultPort(c.Driver)
	}
	return c, nil
}

// exportOptions is a fully resolved export run.
type exportOptions struct {
	db             config.DB
	legacyShape    bool
	withMetadata   bool
	connectTimeout time.Duration
	now            func() time.Time
	stderr         io.Writer
}

// ExportCmd returns the guacexport root command.
func ExportCmd() *cobra.Command {
	return newExportCmd(os.Environ)
}

// newExportCmd builds the command reading GUAC_* variables from environ.
func newExportCmd(environ func() []string) *cobra.Command {
	flags := &exportFlags{environ: environ}
	cmd := &cobra.Command{
		Use:     ExportToolName,
		Short:   heredoc.Doc(exportCmdShort),
		Long:    heredoc.Doc(exportCmdLong),
		Example: heredoc.Doc(exportCmdExample),

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer flushMetrics(cmd)

			db, err := flags.resolve(cmd)
			if err != nil {
				return handleError(cmd, err)
			}

			opts := &exportOptions{
				db:             db,
				legacyShape:    flags.legacyShape,
				withMetadata:   flags.withMetadata,
				connectTimeout: flags.connectTimeout,
				now:            time.Now,
				stderr:         cmd.ErrOrStderr(),
			}
			if err := opts.validate(cmd.Context()); err != nil {
				return handleError(cmd, err)
			}
			if err := opts.execute(cmd.Context()); err != nil {
				return handleError(cmd, err)
			}
			return nil
		},
	}

	flags.addFlags(cmd)
	return newRootCmd(cmd, ExportToolName, false)
}

// validate logs every configuration issue and fails on error severity.
func (o *exportOptions) validate(ctx context.Context) error {
	log := logger.FromContext(ctx).WithName(ExportToolName)

	issues := o.db.Validate()
	for _, iss := range issues {
		if iss.Severity == config.SeverityWarning {
			log.Warn("configuration", "path", iss.Path, "issue", iss.Message)
		}
	}
	return config.Err(issues)
}

// execute reads, folds and writes the export. The database session is
// closed on every path once it has been opened.
func (o *exportOptions) execute(ctx context.Context) error {
	log := logger.FromContext(ctx).WithName(ExportToolName)

	dsn, err := o.db.DSN()
	if err != nil {
		return err
	}

	log.Info("connecting to database", "driver", o.db.Driver, "target", o.db.Target())
	done := metrics.Timer(ExportToolName, "read")
	reader, err := guacdb.Open(ctx, guacdb.Config{
		Driver:         o.db.Driver,
		DSN:            dsn,
		ConnectTimeout: o.connectTimeout,
	})
	if err != nil {
		done(err)
		return fmt.Errorf("connect to %s: %w", o.db.Target(), err)
	}
	log.Info("connected")
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			log.Warn("closing database connection", "error", cerr)
			return
		}
		log.Info("database connection closed")
	}()

	rows, err := reader.FetchRows(ctx)
	done(err)
	if err != nil {
		return fmt.Errorf("fetch connections: %w", err)
	}
	log.Info("fetched parameter rows", "rows", len(rows))
	metrics.RecordCount(ExportToolName, "rows", len(rows))

	done = metrics.Timer(ExportToolName, "normalize")
	recs := guacdb.Fold(rows, guacdb.FoldOptions{
		LegacyShape: o.legacyShape,
		Namer:       connection.NewNamer(),
	})
	done(nil)
	log.Info("built connection objects", "connections", len(recs))
	metrics.RecordCount(ExportToolName, "connections", len(recs))

	var doc any = recs
	if o.withMetadata {
		doc = export.NewEnvelope(o.db.Origin(), o.now(), recs)
	}

	done = metrics.Timer(ExportToolName, "write")
	res, err := export.WriteFile(o.db.Output, doc)
	done(err)
	if err != nil {
		return err
	}

	log.Info("export written", "path", res.Path, "bytes", res.Bytes, "xxh3", res.Fingerprint)
	log.Warn("export contains parameter values verbatim, including encrypted passwords", "path", res.Path)
	export.Warn(o.stderr, export.SensitiveWarning)
	return nil
}
