// Package cli implements the sysdiag command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/Jtensminger/deep-systems-analysis/pkg/cache"
	"github.com/Jtensminger/deep-systems-analysis/pkg/config"
	"github.com/Jtensminger/deep-systems-analysis/pkg/persist"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
)

// =============================================================================
// Constants
// =============================================================================

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

	logOut     io.Writer
	configPath string
	verbose    bool
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), logOut: w}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// config returns the configuration loaded by the root command, or the
// defaults when a command runs without it.
func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Documents
// =============================================================================

// documentPath returns the first positional argument, or the configured
// document.
func (c *CLI) documentPath(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return c.config().Document
}

// sceneOptions are the options every scene built by the CLI starts with.
func (c *CLI) sceneOptions() []scene.Option {
	return []scene.Option{
		scene.WithLogger(c.Logger),
		scene.WithParams(c.config().Params()),
	}
}

// loadDocument loads the document at path and logs skipped records.
func (c *CLI) loadDocument(path string) (*persist.Result, error) {
	res, err := persist.LoadFile(path, c.sceneOptions()...)
	if err != nil {
		return nil, err
	}
	logWarnings(c.Logger, res.Warnings)
	return res, nil
}

// =============================================================================
// Cache Factory
// =============================================================================

// newCache opens the render cache. It degrades to a disabled cache when caching
// is disabled or no cache directory can be determined.
func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache || !c.config().Render.Cache {
		return cache.Disabled(c.Logger), nil
	}
	dir, err := c.config().CacheDir()
	if err != nil {
		c.Logger.Debug("render cache disabled", "err", err)
		return cache.Disabled(c.Logger), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return cache.Instrumented(fc, "render"), nil
}
