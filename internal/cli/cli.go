// Package cli implements the tilewarp command-line interface.
//
// The CLI groups three kinds of commands: local spec work (inspect,
// fit, apply, collapse, convert, dot), store operations against a
// render web service or MongoDB backend (stacks, get, put), and
// housekeeping (serve, cache, completion). All commands support
// --verbose (-v) for debug-level logging; loggers travel through
// context.Context so nested code can report progress.
package cli

import (
	"context"
	"io"
	"net/url"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tilewarp/pkg/buildinfo"
	"github.com/matzehuels/tilewarp/pkg/cache"
	"github.com/matzehuels/tilewarp/pkg/config"
	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/renderws"
	"github.com/matzehuels/tilewarp/pkg/store"
)

// appName is the application name used for directories and display.
const appName = "tilewarp"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	cfg    *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// config returns the loaded configuration, falling back to defaults
// when RootCommand's PersistentPreRunE has not run (direct calls from
// tests).
func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		return config.Default()
	}
	return c.cfg
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   appName,
		Short: "Tilewarp models the transforms that align image tiles",
		Long: `Tilewarp estimates, composes, and serializes the 2-D coordinate
transforms that align overlapping image tiles, and moves the resulting
specs between files, render web services, and MongoDB stacks.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.config/tilewarp/config.toml)")

	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.fitCommand())
	root.AddCommand(c.applyCommand())
	root.AddCommand(c.collapseCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.dotCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.stacksCommand())
	root.AddCommand(c.getCommand())
	root.AddCommand(c.putCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newCache builds the response cache for store commands: Redis when
// configured, the XDG file cache otherwise. File cache setup failures
// never block a command; they degrade to the null cache.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	cfg := c.config()
	if cfg.Redis.Addr != "" {
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// openStore connects to the configured spec backend. Callers own the
// returned store and must Close it.
func (c *CLI) openStore(ctx context.Context, backend string, noCache bool) (store.Store, error) {
	cfg := c.config()
	switch backend {
	case "http":
		respCache, err := c.newCache(ctx, noCache)
		if err != nil {
			return nil, err
		}
		// A Redis cache may be shared between render services, so scope
		// its keys by service host.
		var keyer cache.Keyer
		if cfg.Redis.Addr != "" {
			if u, err := url.Parse(cfg.Render.BaseURL); err == nil {
				keyer = cache.NewScopedKeyer(nil, u.Host+":")
			}
		}
		return renderws.NewClient(renderws.ClientOptions{
			BaseURL: cfg.Render.BaseURL,
			Cache:   respCache,
			Keyer:   keyer,
			TTL:     cfg.Cache.TTL.Duration,
		})
	case "mongo":
		return store.NewMongoStore(ctx, store.MongoOptions{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
	default:
		return nil, errors.New(errors.ErrCodeConfig, "unknown backend %q (use http or mongo)", backend)
	}
}

// addBackendFlags registers the flags shared by the store commands.
func addBackendFlags(cmd *cobra.Command, backend *string, noCache *bool) {
	cmd.Flags().StringVar(backend, "backend", "http", "spec backend: http or mongo")
	cmd.Flags().BoolVar(noCache, "no-cache", false, "disable response caching")
}

// nopCloser wraps an io.Writer with a no-op Close method.
// It is used to make os.Stdout compatible with io.WriteCloser.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path.
// If path is empty, it returns os.Stdout wrapped in nopCloser.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

// openInput returns a ReadCloser for the given path.
// If path is empty or "-", it returns os.Stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
