// Package cli implements the votemap command-line interface.
//
// The main command is transform, which runs the department pipeline over
// the votemap.toml registry and publishes the artifact tree. The remaining
// commands expose single stages for operators: simplify a boundary file,
// match zones of one department, recompute class breaks, and preview the
// output tree over HTTP.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// lives on the [CLI] struct and is attached to each command's context.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/votemap/pkg/cache"
	"github.com/matzehuels/votemap/pkg/config"
	"github.com/matzehuels/votemap/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "votemap"

	// envConfig and envOutput are fallbacks for --config and --out.
	envConfig = "VOTEMAP_CONFIG"
	envOutput = "VOTEMAP_OUT"
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

	// configPath is bound to the persistent --config flag.
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the registry named by --config, $VOTEMAP_CONFIG or
// votemap.toml in the working directory, in that order.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.configPath
	if path == "" {
		path = os.Getenv(envConfig)
	}
	if path == "" {
		path = config.DefaultFile
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded config", "path", path, "departments", len(cfg.Departments))
	return cfg, nil
}

// outputDir returns flag, falling back to $VOTEMAP_OUT and then fallback.
func outputDir(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(envOutput); env != "" {
		return env
	}
	return fallback
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/votemap/).
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
