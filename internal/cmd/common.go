// Package cmd builds the cobra commands behind the guacexport and rdm2guac
// binaries. Each binary's main only wires a logger into the context and
// executes the root command returned here.
package cmd

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"guacmigrate/internal/info"
	"guacmigrate/internal/logger"
	"guacmigrate/internal/metrics"
	"guacmigrate/internal/metrics/datadog"
	"guacmigrate/internal/metrics/prompush"
)

const (
	logLevelFlagName      = "log-level"
	logLevelShortFlagName = "v"

	metricsBackendFlagName  = "metrics-backend"
	metricsBackendFlagUsage = "metrics backend to report run statistics to (none, prometheus, datadog)"
	pushgatewayFlagName     = "pushgateway-url"
	pushgatewayFlagUsage    = "Prometheus Pushgateway base URL, used with --metrics-backend=prometheus"
	datadogAddrFlagName     = "datadog-addr"
	datadogAddrFlagUsage    = "DogStatsD address, used with --metrics-backend=datadog"

	metricsNone       = "none"
	metricsPrometheus = "prometheus"
	metricsDatadog    = "datadog"

	versionCmdName = "version"
)

var (
	logLevelFlagUsage = "set the logging level (possible values: " + strings.Join(logger.AllLevels(), ", ") + ")"

	errUnknownMetricsBackend = errors.New("unknown metrics backend")

	// errReported marks errors whose message was already printed in the
	// tool's own format; handleError only turns them into an exit status.
	errReported = errors.New("reported")
)

// rootFlags are the persistent flags every tool shares.
type rootFlags struct {
	logLevel       string
	metricsBackend string
	pushgatewayURL string
	datadogAddr    string
}

func (f *rootFlags) addFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&f.logLevel, logLevelFlagName, logLevelShortFlagName, logger.INFO.String(), logLevelFlagUsage)
	flags.StringVar(&f.metricsBackend, metricsBackendFlagName, metricsNone, metricsBackendFlagUsage)
	flags.StringVar(&f.pushgatewayURL, pushgatewayFlagName, "", pushgatewayFlagUsage)
	flags.StringVar(&f.datadogAddr, datadogAddrFlagName, "", datadogAddrFlagUsage)
}

// newBackend returns the metrics backend selected by the flags, or nil for
// "none".
func (f *rootFlags) newBackend(tool string) (metrics.Backend, error) {
	switch strings.ToLower(f.metricsBackend) {
	case "", metricsNone:
		return nil, nil
	case metricsPrometheus:
		b, err := prompush.NewBackend(tool, f.pushgatewayURL)
		if err != nil {
			return nil, err
		}
		return b, nil
	case metricsDatadog:
		b, err := datadog.NewBackend(datadog.Config{
			Addr:      f.datadogAddr,
			Namespace: "guacmigrate.",
			Tags:      []string{"tool:" + tool},
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w %q (want %s, %s or %s)", errUnknownMetricsBackend, f.metricsBackend, metricsNone, metricsPrometheus, metricsDatadog)
	}
}

// newRootCmd applies the settings shared by both tools: silenced cobra
// errors, the persistent flags, level selection before every run and
// metrics installation. Tools that take positional arguments get a
// --version flag; the others a version subcommand, which also brings in
// cobra's help and completion subcommands.
func newRootCmd(cmd *cobra.Command, tool string, positional bool) *cobra.Command {
	flags := &rootFlags{}

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		log := logger.FromContext(cmd.Context())
		log.SetLevel(logger.LevelFromString(flags.logLevel))

		b, err := flags.newBackend(tool)
		if err != nil {
			return handleError(cmd, err)
		}
		if b != nil {
			metrics.SetBackend(b)
			log.Debug("metrics backend installed", "backend", flags.metricsBackend)
		}
		return nil
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.PrintErrln(err)
		_ = c.Usage()
		return err
	})

	flags.addFlags(cmd)
	if positional {
		cmd.Version = versionString(info.Version, info.BuildDate, runtime.Version())
		cmd.SetVersionTemplate("{{.Version}}\n")
		cmd.CompletionOptions.DisableDefaultCmd = true
	} else {
		cmd.AddCommand(versionCmd(tool))
	}
	return cmd
}

// flushMetrics pushes whatever the run recorded. A failed push is logged
// but never changes the outcome of the run.
func flushMetrics(cmd *cobra.Command) {
	if err := metrics.Flush(); err != nil {
		logger.FromContext(cmd.Context()).Warn("metrics flush failed", "error", err)
	}
}

// handleError prints err unless it was already reported and returns it so
// cobra exits non-zero.
func handleError(cmd *cobra.Command, err error) error {
	if !errors.Is(err, errReported) {
		cmd.PrintErrln("Error:", err)
	}
	return err
}

// versionCmd constructs the command that prints version information.
func versionCmd(tool string) *cobra.Command {
	return &cobra.Command{
		Use:   versionCmdName,
		Short: heredoc.Doc("Display the " + tool + " version"),

		Args: func(cmd *cobra.Command, args []string) error {
			err := cobra.NoArgs(cmd, args)
			if err != nil {
				cmd.PrintErrln(err)
				_ = cmd.Usage()
			}
			return err
		},
		ValidArgsFunction: cobra.NoFileCompletions,
		// The root's PersistentPreRunE would try to install metrics.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString(info.Version, info.BuildDate, runtime.Version()))
		},
	}
}

// versionString formats the version metadata for display.
func versionString(version, buildDate, runtimeVersion string) string {
	out := version
	if buildDate != "" {
		out += " (" + buildDate + ")"
	}
	return out + ", Go Version: " + runtimeVersion
}
