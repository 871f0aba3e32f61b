package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"guacmigrate/internal/export"
	"guacmigrate/internal/logger"
	"guacmigrate/internal/metrics"
	"guacmigrate/internal/rdm"
)

// ConvertToolName is the rdm2guac binary and metrics job name.
const ConvertToolName = "rdm2guac"

const (
	convertCmdUse   = ConvertToolName + " <path_to_rdm_xml_file>"
	convertCmdShort = "convert a Remote Desktop Manager XML export to Guacamole JSON"
	convertCmdLong  = `Convert the SSH, RDP and VNC entries of a Remote Desktop Manager XML
	export into a JSON list of Guacamole connections printed on standard output.

	Entries of other types are skipped. Encrypted passwords are never
	exported; a warning on standard error reports how many were dropped.`

	convertCmdExample = `# Convert an export and save the result
	rdm2guac connections.rdm > guacamole.json`
)

var errUsage = errors.New("expected exactly one argument")

// convertOptions is a resolved rdm2guac run.
type convertOptions struct {
	path   string
	stdout io.Writer
	stderr io.Writer
}

// ConvertCmd returns the rdm2guac root command.
func ConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     convertCmdUse,
		Short:   heredoc.Doc(convertCmdShort),
		Long:    heredoc.Doc(convertCmdLong),
		Example: heredoc.Doc(convertCmdExample),

		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				fmt.Fprintln(cmd.OutOrStdout(), "Usage: "+convertCmdUse)
				return fmt.Errorf("%w: %w (got %d)", errReported, errUsage, len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			defer flushMetrics(cmd)

			opts := &convertOptions{
				path:   args[0],
				stdout: cmd.OutOrStdout(),
				stderr: cmd.ErrOrStderr(),
			}
			if err := opts.execute(cmd.Context()); err != nil {
				return handleError(cmd, err)
			}
			return nil
		},
	}

	return newRootCmd(cmd, ConvertToolName, true)
}

// noConnectionsMessage lists the supported types, e.g.
// "No supported connections (SSHShell, RDP, RDPConfigured, VNC) found ...".
func noConnectionsMessage() string {
	kinds := rdm.SupportedKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return "No supported connections (" + strings.Join(names, ", ") + ") found in the provided XML."
}

func (o *convertOptions) execute(ctx context.Context) error {
	log := logger.FromContext(ctx).WithName(ConvertToolName)

	done := metrics.Timer(ConvertToolName, "parse")
	elems, err := rdm.ReadFile(o.path)
	done(err)
	switch {
	case errors.Is(err, rdm.ErrNotFound):
		fmt.Fprintf(o.stdout, "Error: File not found: %s\n", o.path)
		return fmt.Errorf("%w: %w", errReported, err)
	case err != nil:
		fmt.Fprintf(o.stdout, "Error parsing XML file: %v\n", err)
		return fmt.Errorf("%w: %w", errReported, err)
	}
	log.Debug("parsed export", "path", o.path, "entries", len(elems))

	done = metrics.Timer(ConvertToolName, "convert")
	conv := rdm.NewConverter()
	recs := conv.Convert(elems)
	stats := conv.Stats()
	done(nil)

	skipped := 0
	for kind, n := range stats.Skipped {
		skipped += n
		log.Debug("skipped unsupported entries", "type", kind, "count", n)
	}
	log.Info("converted entries", "entries", stats.Entries, "connections", stats.Converted, "skipped", skipped)
	metrics.RecordCount(ConvertToolName, "connections", stats.Converted)
	metrics.RecordCount(ConvertToolName, "skipped", skipped)
	metrics.RecordCount(ConvertToolName, "concealed", stats.Concealed)

	if len(recs) == 0 {
		fmt.Fprintln(o.stdout, noConnectionsMessage())
		return nil
	}

	done = metrics.Timer(ConvertToolName, "write")
	res, err := export.Write(o.stdout, recs)
	done(err)
	if err != nil {
		return err
	}
	log.Debug("output written", "bytes", res.Bytes, "xxh3", res.Fingerprint)

	if stats.Concealed > 0 {
		log.Warn("encrypted passwords were dropped", "connections", stats.Concealed)
		export.Warn(o.stderr, fmt.Sprintf(export.ConcealedWarning, stats.Concealed))
	}
	return nil
}
