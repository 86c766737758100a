// pattern: Imperative Shell
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"

	"gasview/internal/clasp"
	"gasview/internal/cli"
	"gasview/internal/config"
	"gasview/internal/desktop"
	"gasview/internal/explorer"
	"gasview/internal/instance"
	"gasview/internal/logging"
	"gasview/internal/script"
	"gasview/internal/tui"
)

var version = "dev"

func main() {
	// Stop parsing flags after the first non-flag arg (the subcommand),
	// so that --help after a subcommand is handled by the subcommand.
	flag.CommandLine.SetInterspersed(false)

	configDir := flag.StringP("config-dir", "c", "", "config directory (default: ~/.config/gasview)")
	logLevel := flag.String("log-level", "", "override log_level from config (debug, info, warn, error)")

	// Override flag.Usage before Parse so --help uses the CLI app's help
	flag.Usage = func() {
		app := cli.BuildApp(cli.Options{Version: version})
		app.PrintHelp(os.Stderr)
		flag.PrintDefaults()
	}

	flag.Parse()

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dataDir := resolveDataDir(*configDir)

	logManager, err := newLogManager(dataDir, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	app := cli.BuildApp(cliOptions(cfg, dataDir, logManager))
	if !app.Execute(flag.Args()) {
		_ = logManager.Close()
		return
	}

	if err := runTUI(cfg, dataDir, logManager); err != nil {
		logManager.For("app").Error("application exited with error", "error", err)
		_ = logManager.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	_ = logManager.Close()
}

// loadConfig loads the configuration from the specified directory or default location.
func loadConfig(configDir string) (config.Config, error) {
	if configDir != "" {
		return config.LoadFromDir(configDir)
	}
	return config.Load()
}

// resolveDataDir returns the directory holding the lock, scratch space and log.
func resolveDataDir(configDir string) string {
	if configDir != "" {
		return config.ExpandHome(configDir)
	}
	return config.DefaultDir()
}

func newLogManager(dataDir, level string) (*logging.Manager, error) {
	return logging.NewManager(logging.Config{
		FilePath:       filepath.Join(dataDir, "gasview.log"),
		MaxSizeMB:      10,
		MaxBackups:     3,
		MaxAgeDays:     7,
		ChannelBufSize: 1000,
		Level:          level,
	})
}

// newExplorer wires clasp, the credentials file and the Apps Script/Drive
// clients into an Explorer.
func newExplorer(cfg config.Config, logProvider logging.LoggerProvider) (*explorer.Explorer, *clasp.ReloadableTokenSource, error) {
	claspPath, err := cfg.ClaspExecutable()
	if err != nil {
		return nil, nil, err
	}

	tokens, err := clasp.NewReloadableTokenSource(context.Background(), cfg.ResolveClasprcPath())
	if err != nil {
		return nil, nil, err
	}

	api, err := script.NewClient(context.Background(), tokens, script.Options{PageSize: cfg.PageSize}, logProvider)
	if err != nil {
		return nil, nil, err
	}

	claspClient := clasp.NewClient(claspPath, logProvider)
	if logProvider != nil {
		logProvider.For("app").Debug("using clasp", "path", claspClient.Executable(), "source", cfg.ProjectSource)
	}

	var lister explorer.ProjectLister = claspClient
	if cfg.ProjectSource == config.SourceDrive {
		lister = api
	}

	return explorer.New(api, lister, claspClient, logProvider), tokens, nil
}

func cliOptions(cfg config.Config, dataDir string, logManager *logging.Manager) cli.Options {
	return cli.Options{
		Version:     version,
		DataDir:     dataDir,
		DownloadDir: cfg.ResolveDownloadDir(),
		Timeout:     cfg.RequestTimeout,
		Connect: func(context.Context) (cli.Backend, error) {
			logManager.For("cli").Debug("connecting", "source", cfg.ProjectSource)
			ex, _, err := newExplorer(cfg, logManager)
			if err != nil {
				return nil, err
			}
			return ex, nil
		},
		Credentials: func() (*clasp.Credentials, error) {
			return clasp.LoadCredentials(cfg.ResolveClasprcPath())
		},
		Copy: desktop.New(logManager).Copy,
	}
}

// runTUI launches the interactive explorer. It holds the single-instance lock
// until the program exits.
func runTUI(cfg config.Config, dataDir string, logManager *logging.Manager) error {
	inst, err := instance.Acquire(dataDir)
	if err != nil {
		return err
	}
	appLogger := logManager.For("app")
	defer func() {
		if err := inst.Close(); err != nil {
			appLogger.Error("failed to release instance", "error", err)
		}
	}()

	appLogger.Info("application starting", "version", version, "source", cfg.ProjectSource, "data_dir", inst.DataDir(), "scratch", inst.ScratchDir())

	ex, tokens, err := newExplorer(cfg, logManager)
	if err != nil {
		return err
	}

	model := tui.NewModel(ex, desktop.New(logManager), tui.Options{
		Theme:       cfg.Theme,
		Editor:      cfg.Editor,
		DownloadDir: cfg.ResolveDownloadDir(),
		Source:      cfg.ProjectSource,
		Timeout:     cfg.RequestTimeout,
	}, logManager, logManager.Entries())

	p := tea.NewProgram(model, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WatchCredentials {
		path := tokens.Credentials().Path
		err := clasp.WatchCredentials(ctx, path, logManager.For("clasp"), func() {
			if err := tokens.Reload(); err != nil {
				appLogger.Warn("credentials reload failed, keeping previous token", "error", err)
				return
			}
			p.Send(tui.CredentialsChangedMsg{})
		})
		if err != nil {
			appLogger.Warn("not watching credentials", "path", path, "error", err)
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run program: %w", err)
	}

	appLogger.Info("application stopped")
	return nil
}
