package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/logger"
)

// Flags for export.
var (
	exportPortal       string
	exportMode         string
	exportClientID     string
	exportDesktopEnv   string
	exportOut          string
	exportTimeout      time.Duration
	exportPollInterval time.Duration
	exportKeepRemote   bool
)

var exportCmd = &cobra.Command{
	Use:   "export [item-id]",
	Short: "Export a feature layer and load its tables",
	Long: `Export a hosted feature layer as CSV, download the archive to
{out}/{title}.zip, unpack it into {out}/{title}/ and load every CSV or TSV
file as a table.

The item ID defaults to item_id from the config file. Flags override config
values for this run only.

Examples:
  # Ambient credentials from ARCGIS_TOKEN or ARCGIS_USERNAME/ARCGIS_PASSWORD
  layerpull export 8d2fd8c8a0d94fd1a6f0c2b4e5e7a123

  # OAuth application registered on an Enterprise portal
  layerpull export 8d2fd8c8a0d94fd1a6f0c2b4e5e7a123 \
    --portal https://gis.example.org/portal --mode app --client-id abcDEF123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportPortal, "portal", "", "portal URL (default from config)")
	f.StringVar(&exportMode, "mode", "", "credential mode: ambient or app-registered")
	f.StringVar(&exportClientID, "client-id", "", "OAuth application client ID for app-registered mode")
	f.StringVar(&exportDesktopEnv, "desktop-env", "", "desktop GIS environment directory holding a .env file")
	f.StringVarP(&exportOut, "out", "o", "", "output directory (default from config)")
	f.DurationVar(&exportTimeout, "timeout", 0, "maximum wait for the export job (default from config)")
	f.DurationVar(&exportPollInterval, "poll-interval", 0, "delay between export status polls (default from config)")
	f.BoolVar(&exportKeepRemote, "keep-remote-export", false, "keep the temporary export item on the portal")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if workflowFactory == nil {
		return errors.New("export workflow not configured")
	}

	cfg := currentConfig()
	flags := cmd.Flags()

	profile := cfg.Profile()
	if len(args) > 0 {
		profile.ItemID = args[0]
	}
	if flags.Changed("portal") {
		profile.PortalURL = exportPortal
	}
	if flags.Changed("client-id") {
		profile.ClientID = exportClientID
	}
	if flags.Changed("desktop-env") {
		profile.DesktopEnv = exportDesktopEnv
	}

	var mode domain.CredentialMode
	if flags.Changed("mode") {
		m, err := domain.ParseCredentialMode(exportMode)
		if err != nil {
			return err
		}
		mode = m
	}

	opts := domain.ExportOptions{
		Timeout:          cfg.Export.Timeout,
		PollInterval:     cfg.Export.PollInterval,
		KeepRemoteExport: cfg.Export.KeepRemote,
	}
	if flags.Changed("timeout") {
		opts.Timeout = exportTimeout
	}
	if flags.Changed("poll-interval") {
		opts.PollInterval = exportPollInterval
	}
	if flags.Changed("keep-remote-export") {
		opts.KeepRemoteExport = exportKeepRemote
	}

	out := cfg.OutputDir
	if flags.Changed("out") {
		out = exportOut
	}

	profile, err := profileCounter.NewProfile(profile.WithMode(effectiveMode(profile.CredentialMode, mode)))
	if err != nil {
		return err
	}
	logger.Debug("profiles constructed this run: %d", profileCounter.Count())

	tables, err := workflowFactory(opts, cmd.OutOrStdout()).Run(cmd.Context(), profile, mode, out)
	if err != nil {
		return err
	}

	printTables(cmd, tables)
	return nil
}

// effectiveMode returns override when set, otherwise mode.
func effectiveMode(mode, override domain.CredentialMode) domain.CredentialMode {
	if override != "" {
		return override
	}
	return mode
}

func printTables(cmd *cobra.Command, tables domain.TableSet) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tROWS\tCOLUMNS")
	for _, name := range tables.Names() {
		t := tables[name]
		fmt.Fprintf(w, "%s\t%s\t%d\n", name, humanize.Comma(int64(t.RowCount())), len(t.Columns))
	}
	_ = w.Flush()

	cmd.Printf("\n%d tables, %s rows\n", len(tables), humanize.Comma(int64(tables.TotalRows())))
}
