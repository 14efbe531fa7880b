// Package cmd provides the CLI commands for qfs.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/qfs-dev/qfs/internal/config"
	"github.com/qfs-dev/qfs/internal/embed"
	"github.com/qfs-dev/qfs/internal/engine"
	"github.com/qfs-dev/qfs/internal/index"
	"github.com/qfs-dev/qfs/internal/logging"
	"github.com/qfs-dev/qfs/internal/multiget"
	"github.com/qfs-dev/qfs/internal/pathcontext"
	"github.com/qfs-dev/qfs/internal/search"
	"github.com/qfs-dev/qfs/internal/store"
	"github.com/qfs-dev/qfs/pkg/version"
)

var (
	configPath string
	dbPath     string
	debugMode  bool
)

// NewRootCmd creates the root command for the qfs CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "qfs",
		Short:   "On-device search engine for local text corpora",
		Version: version.Version,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	cmd.AddCommand(newCollectionCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newVSearchCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newMultiGetCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig reads the config file (if any) and applies the --db override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	return cfg, nil
}

// app bundles the components a command needs, opened from one config.
type app struct {
	store    *store.Store
	embedder embed.Embedder
	indexer  *index.Indexer
	searcher *search.Searcher
	engine   *engine.Engine
}

func setupLogging(cfg *config.Config) {
	lc := logging.DefaultConfig()
	if debugMode {
		lc = logging.DebugConfig()
	}
	logging.Setup(lc)
}

// openApp opens the store and wires every component together. Callers must
// call Close() on the returned app when done.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	embedder := embed.NewCachedEmbedder(embed.NewStaticEmbedder(), cfg.Embeddings.CacheSize)
	ix := index.New(st, embedder)
	searcher := search.New(st, embedder, cfg.Search.RRFConstant)
	pathctx := pathcontext.New(st)
	multi := multiget.New(st)
	eng := engine.New(st, searcher, pathctx, multi, cfg.Search.DefaultLimit)

	return &app{store: st, embedder: embedder, indexer: ix, searcher: searcher, engine: eng}, nil
}

func (a *app) Close() {
	_ = a.embedder.Close()
	_ = a.store.Close()
}
