package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/layerpull/internal/config"
	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
	"github.com/custodia-labs/layerpull/internal/core/ports/driving"
	"github.com/custodia-labs/layerpull/internal/logger"
)

// version is set at build time via -ldflags or SetVersion.
var version = "dev"

// WorkflowFactory builds a workflow for one invocation's export bounds.
// Progress lines are written to out.
type WorkflowFactory func(opts domain.ExportOptions, out io.Writer) driving.LayerWorkflow

// Services holds the core services the commands drive.
type Services struct {
	Workflow    WorkflowFactory
	Credentials driving.CredentialsManager
	Settings    driving.SettingsService
	Messages    driven.MessageLog
	Config      *config.Config
	// ConfigErr is the error from loading the configuration, if any. Only
	// the config, version and help commands run while it is set.
	ConfigErr error
}

// Services used by the commands. Set once by SetServices before Execute.
var (
	workflowFactory    WorkflowFactory
	credentialsManager driving.CredentialsManager
	settingsService    driving.SettingsService
	messageLog         driven.MessageLog
	appConfig          *config.Config
	configErr          error
	profileCounter     = &domain.ProfileCounter{}
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "layerpull",
	Short: "Export ArcGIS feature layers to local tables",
	Long: `layerpull signs in to ArcGIS Online or an ArcGIS Enterprise portal,
exports a hosted feature layer as CSV, downloads and unpacks the archive,
and loads every file into a table.

Credentials come from the local environment (ambient mode) or from an
OAuth application registered on the portal (app-registered mode).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if configErr == nil {
			return nil
		}
		if !runsWithBrokenConfig(cmd) {
			return fmt.Errorf("load configuration: %w (repair it with 'layerpull config')", configErr)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: configuration not loaded, using defaults: %v\n", configErr)
		return nil
	},
}

// runsWithBrokenConfig reports whether cmd can run on default settings
// while the configuration file fails to load.
func runsWithBrokenConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil && c.HasParent(); c = c.Parent() {
		switch c.Name() {
		case "config", "version", "help", "completion":
			return true
		}
	}
	return false
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output to stderr")
}

// SetServices injects the core services.
func SetServices(s Services) {
	workflowFactory = s.Workflow
	credentialsManager = s.Credentials
	settingsService = s.Settings
	messageLog = s.Messages
	appConfig = s.Config
	configErr = s.ConfigErr
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	if logger.IsVerbose() {
		fmt.Fprintf(stderr, "(kind: %s)\n", domain.Kind(err))
	}
	return ExitCode(err)
}

// Process exit codes by error kind.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitAuthentication = 2
	ExitLookup         = 3
	ExitExport         = 4
	ExitTimeout        = 5
	ExitDownload       = 6
	ExitExtraction     = 7
	ExitInvalidInput   = 8
)

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return ExitFailure
	}
	switch domain.Kind(err) {
	case domain.KindNone:
		return ExitOK
	case domain.KindAuthentication:
		return ExitAuthentication
	case domain.KindLookup:
		return ExitLookup
	case domain.KindExport:
		return ExitExport
	case domain.KindTimeout:
		return ExitTimeout
	case domain.KindDownload:
		return ExitDownload
	case domain.KindExtraction:
		return ExitExtraction
	case domain.KindInvalidInput:
		return ExitInvalidInput
	default:
		return ExitFailure
	}
}

// currentConfig returns the loaded configuration or the defaults.
func currentConfig() config.Config {
	if appConfig != nil {
		return *appConfig
	}
	return config.NewDefaultConfig()
}
