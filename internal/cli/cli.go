// Package cli implements the starscrape command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/starscrape/starscrape/pkg/buildinfo"
	"github.com/starscrape/starscrape/pkg/cache"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "starscrape"

	// readmeTTL is how long fetched README bodies stay cached.
	readmeTTL = 24 * time.Hour
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "starscrape",
		Short: "Starscrape exports your GitHub starred repositories",
		Long: `Starscrape scrapes the GitHub web interface with your browser cookie and
exports your starred repositories as JSON or CSV, optionally enriched with
each repository's README.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.starsCommand())
	root.AddCommand(c.listsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Cache Factory
// =============================================================================

// newCache picks the README cache backend. Redis is tried first when an
// address is given; on failure the command degrades to the file cache, and a
// cache that cannot be opened at all degrades to a no-op rather than failing
// the scrape.
func (c *CLI) newCache(ctx context.Context, noCache bool, redisAddr string) cache.Cache {
	if noCache {
		return cache.NewNull()
	}
	if redisAddr != "" {
		store, err := cache.NewRedisCache(ctx, redisAddr)
		if err == nil {
			return store
		}
		c.Logger.Warnf("Redis cache unavailable, falling back to file cache: %v", err)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNull()
	}
	store, err := cache.NewFileCache(dir)
	if err != nil {
		return cache.NewNull()
	}
	return store
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/starscrape/).
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
