package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	webbrowser "github.com/cli/browser"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/linkvault/internal/browser"
	"github.com/nikbrunner/linkvault/internal/config"
	"github.com/nikbrunner/linkvault/internal/extract"
	"github.com/nikbrunner/linkvault/internal/logging"
	"github.com/nikbrunner/linkvault/internal/picker"
	"github.com/nikbrunner/linkvault/internal/reconcile"
	"github.com/nikbrunner/linkvault/internal/repository"
	"github.com/nikbrunner/linkvault/internal/server"
	"github.com/nikbrunner/linkvault/internal/storage"
	"github.com/nikbrunner/linkvault/internal/tools"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

// app holds what the commands share. The repository is opened on first use
// so commands that never touch bookmarks don't create the database.
type app struct {
	configPath string

	cfg    *config.Config
	logger *slog.Logger
	repo   *repository.Repository

	openURL func(url string) error
	pick    func(items []picker.Item, header string, multi bool) ([]int, error)
}

func newApp() *app {
	return &app{
		openURL: webbrowser.OpenURL,
		pick:    runPicker,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "linkvault",
		Short: "A categorized bookmark store for people and agents",
		Long: `linkvault keeps bookmarks grouped into categories with tags, notes and
an importance rating. Bookmarks can be added from the command line, imported
from Chromium-family browsers, served to agents over MCP, or exposed as a
small HTTP API.`,
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is ~/.config/linkvault/config.json)")

	root.AddCommand(
		addCmd(a),
		categoriesCmd(a),
		listCmd(a),
		searchCmd(a),
		tagsCmd(a),
		tagCmd(a),
		findCmd(a),
		openCmd(a),
		deleteCmd(a),
		renameCmd(a),
		delcatCmd(a),
		browserCmd(a),
		importCmd(a),
		exportCmd(a),
		checkCmd(a),
		serveCmd(a),
		httpCmd(a),
	)
	return root
}

// load reads the config and sets up logging. Logs always go to stderr so
// stdout stays clean for command output and the MCP transport.
func (a *app) load(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		p, err := config.DefaultFilePath()
		if err != nil {
			return err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	return nil
}

func (a *app) repository() (*repository.Repository, error) {
	if a.repo != nil {
		return a.repo, nil
	}
	repo, err := repository.Open(storage.Options{
		Backend:  a.cfg.Backend,
		DBPath:   a.cfg.DBPath,
		JSONPath: a.cfg.JSONPath,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.repo = repo
	return repo, nil
}

func (a *app) reconciler() (*reconcile.Reconciler, error) {
	repo, err := a.repository()
	if err != nil {
		return nil, err
	}
	return reconcile.New(repo, a.logger), nil
}

func (a *app) extractor() extract.Extractor {
	return extract.NewHTTPExtractor(a.cfg.ExtractTimeout())
}

func (a *app) browserSource() tools.BrowserSource {
	return tools.BrowserSource{
		Aggregator: browser.NewAggregator(a.logger),
		Locations:  a.locations(),
	}
}

// locations returns the configured browser directories, falling back to the
// platform defaults.
func (a *app) locations() []browser.Location {
	if len(a.cfg.BrowserDirs) > 0 {
		return browser.LocationsFromDirs(a.cfg.BrowserDirs)
	}
	home, _ := os.UserHomeDir()
	return browser.DefaultLocations(runtime.GOOS, home, os.Getenv)
}

// category returns name, or the configured default when name is blank.
func (a *app) category(name string) string {
	if name == "" {
		return a.cfg.DefaultCategory
	}
	return name
}

func (a *app) close() {
	if a.repo == nil {
		return
	}
	if err := a.repo.Close(); err != nil && a.logger != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
	a.repo = nil
}
