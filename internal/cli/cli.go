// Package cli implements the flowcanvas command-line interface.
//
// This package provides commands for discovering and inspecting canvas
// configuration files, computing auto-layouts, rendering graphs, applying
// change batches, serving the HTTP API, and browsing configs interactively.
// The CLI is built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - list: Discover config files in a repository
//   - show: Print a config's render graph as JSON
//   - layout: Compute an auto-layout and write it back
//   - render: Export a config as Graphviz DOT or SVG
//   - apply: Apply a change batch file to a config
//   - serve: Run the HTTP API server
//   - browse: Interactively browse configs in the terminal
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/pkg/buildinfo"
	"github.com/flowcanvas/flowcanvas/pkg/cache"
	"github.com/flowcanvas/flowcanvas/pkg/host/local"
	"github.com/flowcanvas/flowcanvas/pkg/layout"
	"github.com/flowcanvas/flowcanvas/pkg/panel"
	"github.com/flowcanvas/flowcanvas/pkg/store"
)

// appName is the application name used for directories and display.
const appName = "flowcanvas"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config
}

// New creates a new CLI instance with a default logger and the user config
// loaded from disk (missing config falls back to defaults).
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		Config: LoadConfigOrDefault(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "FlowCanvas renders canvas configs as graphs and edits them back",
		Long:         `FlowCanvas discovers .canvas and vvf.config.yaml documents in a repository, renders them as node/edge graphs, computes automatic layouts, and reconciles interactive edits back into the source files.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.listCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.applyCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.browseCommand())

	return root
}

// newPanel builds a loaded panel controller for a repository root.
func (c *CLI) newPanel(ctx context.Context, root string, noCache bool) (*panel.Panel, func(), error) {
	h, err := local.New(root)
	if err != nil {
		return nil, nil, err
	}

	layoutCache, err := c.newCache(ctx, noCache)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "err", err)
		layoutCache = cache.NewNullCache()
	}

	snapshots, err := c.newStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	p, err := panel.New(h, h.Events(), panel.Options{
		Cache:  layoutCache,
		Store:  snapshots,
		Logger: c.Logger,
		LayoutDefaults: layout.Options{
			Direction: layout.Direction(c.Config.Layout.Direction),
			SpacingX:  c.Config.Layout.SpacingX,
			SpacingY:  c.Config.Layout.SpacingY,
		},
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		p.Close()
		_ = layoutCache.Close()
		_ = snapshots.Close(context.Background())
	}

	if err := p.Load(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return p, cleanup, nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Config.Cache.RedisAddr,
			Password: c.Config.Cache.RedisPassword,
			DB:       c.Config.Cache.RedisDB,
		})
	default:
		dir := c.Config.Cache.Dir
		if dir == "" {
			var err error
			if dir, err = cacheDir(); err != nil {
				return cache.NewNullCache(), nil
			}
		}
		return cache.NewFileCache(dir)
	}
}

func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	if c.Config.Store.Backend == "mongo" {
		return store.NewMongoStore(ctx, store.MongoConfig{
			URI:        c.Config.Store.MongoURI,
			Database:   c.Config.Store.MongoDatabase,
			Collection: c.Config.Store.MongoCollection,
		})
	}
	return store.NewMemoryStore(), nil
}

// cacheDir returns the cache directory using XDG standard (~/.cache/flowcanvas/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
