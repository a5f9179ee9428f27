// Command layerpull exports ArcGIS feature layers to local tables.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/layerpull/internal/adapters/driven/archive"
	"github.com/custodia-labs/layerpull/internal/adapters/driven/auth"
	"github.com/custodia-labs/layerpull/internal/adapters/driven/config/file"
	"github.com/custodia-labs/layerpull/internal/adapters/driven/diagnostic"
	"github.com/custodia-labs/layerpull/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/layerpull/internal/adapters/driven/tables"
	"github.com/custodia-labs/layerpull/internal/adapters/driving/cli"
	"github.com/custodia-labs/layerpull/internal/config"
	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driving"
	"github.com/custodia-labs/layerpull/internal/core/services"
	"github.com/custodia-labs/layerpull/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A broken config file still lets the config commands run so it can be
	// repaired; the CLI refuses everything else.
	cfg, configErr := config.Load()
	if configErr != nil {
		defaults := config.NewDefaultConfig()
		defaults.DataDir = config.ExpandHome(defaults.DataDir)
		defaults.Log.File = config.ExpandHome(defaults.Log.File)
		cfg = &defaults
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		logger.Error("open data store: %v", err)
		return cli.ExitFailure
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("close data store: %v", err)
		}
	}()

	fileSink, err := diagnostic.NewFileSink(diagnostic.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		logger.Error("open log file: %v", err)
		return cli.ExitFailure
	}
	defer func() {
		if err := fileSink.Close(); err != nil {
			logger.Error("close log file: %v", err)
		}
	}()

	sink := diagnostic.Fanout{fileSink, store.MessageLog()}

	configStore, err := file.NewConfigStore(config.ConfigDir())
	if err != nil {
		logger.Error("open config file: %v", err)
		return cli.ExitFailure
	}

	authOpts := []auth.Option{
		auth.WithCallbackPorts(cfg.OAuth.CallbackPortStart, cfg.OAuth.CallbackPortEnd),
		auth.WithLoginTimeout(cfg.OAuth.CallbackTimeout),
	}
	credentials := store.CredentialsStore()
	appAuth := auth.NewAppAuthenticator(credentials, authOpts...)
	factory := auth.NewFactory(auth.NewAmbientAuthenticator(authOpts...), appAuth)

	extractor := archive.NewZipExtractor()
	importer := tables.NewDelimitedImporter(0)

	cli.SetServices(cli.Services{
		Workflow: func(opts domain.ExportOptions, out io.Writer) driving.LayerWorkflow {
			return services.NewWorkflow(
				services.NewConnectionService(factory, sink, out),
				services.NewExportService(sink, opts),
				extractor, importer, sink,
			)
		},
		Credentials: services.NewCredentialsService(appAuth, credentials, sink),
		Settings:    services.NewSettingsService(configStore, config.ValidateValues),
		Messages:    store.MessageLog(),
		Config:      cfg,
		ConfigErr:   configErr,
	})
	cli.SetVersion(version)

	logger.Debug("config dir %s, data store %s", config.ConfigDir(), store.Path())

	return cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}
