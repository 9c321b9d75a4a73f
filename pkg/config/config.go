// Package config loads the sysdiag configuration file.
//
// The file is TOML and every key is optional:
//
//	document  = "world_model.json"
//	log_level = "info"
//
//	[layout]
//	soi_radius                = 300.0
//	nesting_shrink            = 0.75
//	subsystem_radius_fraction = 0.25
//	zoom_step                 = 1.1
//
//	[render]
//	cache     = true
//	cache_dir = ""           # defaults to $XDG_CACHE_HOME/sysdiag
//
//	[editor]
//	tick = "33ms"
//
//	[server]
//	addr = ":8080"
//
// [Find] resolves the file: an explicit path, else
// $XDG_CONFIG_HOME/sysdiag/config.toml, else ~/.config/sysdiag/config.toml.
// A missing file at a default location yields [Default]; a missing file
// that was named explicitly is an error.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/layout"
)

// AppName names the config and cache directories.
const AppName = "sysdiag"

// DefaultDocument is the document path used when none is configured.
const DefaultDocument = "world_model.json"

// Config is the decoded configuration.
type Config struct {
	Document string `toml:"document"`
	LogLevel string `toml:"log_level"`

	Layout LayoutConfig `toml:"layout"`
	Render RenderConfig `toml:"render"`
	Editor EditorConfig `toml:"editor"`
	Server ServerConfig `toml:"server"`
}

// LayoutConfig mirrors [layout.Params].
type LayoutConfig struct {
	SOIRadius               float64 `toml:"soi_radius"`
	NestingShrink           float64 `toml:"nesting_shrink"`
	SubsystemRadiusFraction float64 `toml:"subsystem_radius_fraction"`
	ZoomStep                float64 `toml:"zoom_step"`
}

// RenderConfig controls the artifact cache of the render command.
type RenderConfig struct {
	Cache    bool   `toml:"cache"`
	CacheDir string `toml:"cache_dir"`
}

// EditorConfig controls the terminal editor.
type EditorConfig struct {
	Tick duration `toml:"tick"`
}

// ServerConfig controls the HTTP canvas API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// duration decodes TOML strings such as "33ms".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default returns the built-in configuration.
func Default() *Config {
	p := layout.DefaultParams()
	return &Config{
		Document: DefaultDocument,
		LogLevel: "info",
		Layout: LayoutConfig{
			SOIRadius:               p.SOIRadius,
			NestingShrink:           p.NestingShrink,
			SubsystemRadiusFraction: p.SubsystemRadiusFraction,
			ZoomStep:                p.ZoomStep,
		},
		Render: RenderConfig{Cache: true},
		Editor: EditorConfig{Tick: duration{33 * time.Millisecond}},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Parse decodes TOML on top of [Default] and validates the result. Unknown
// keys are rejected.
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the file at path. When explicit is false a missing file is
// not an error and yields [Default].
func Load(path string, explicit bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read config %s", path)
	}
	return Parse(string(data))
}

// Find returns the config path to use and whether it was named explicitly.
func Find(flag string) (string, bool, error) {
	if flag != "" {
		return flag, true, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", false, err
	}
	return filepath.Join(dir, "config.toml"), false, nil
}

// Dir returns the configuration directory.
func Dir() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "locate home directory")
	}
	return filepath.Join(home, ".config", AppName), nil
}

// CacheDir returns the configured render cache directory, or the
// per-user default.
func (c *Config) CacheDir() (string, error) {
	if c.Render.CacheDir != "" {
		return c.Render.CacheDir, nil
	}
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "locate home directory")
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	l := c.Layout
	switch {
	case l.SOIRadius <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "layout.soi_radius must be positive, got %v", l.SOIRadius)
	case l.NestingShrink <= 0 || l.NestingShrink > 1:
		return errors.New(errors.ErrCodeInvalidInput, "layout.nesting_shrink must be in (0, 1], got %v", l.NestingShrink)
	case l.SubsystemRadiusFraction <= 0 || l.SubsystemRadiusFraction >= 1:
		return errors.New(errors.ErrCodeInvalidInput, "layout.subsystem_radius_fraction must be in (0, 1), got %v", l.SubsystemRadiusFraction)
	case l.ZoomStep <= 1:
		return errors.New(errors.ErrCodeInvalidInput, "layout.zoom_step must be greater than 1, got %v", l.ZoomStep)
	case c.Editor.Tick.Duration <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "editor.tick must be positive")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if err := errors.ValidateDocumentPath(c.Document); err != nil {
		return err
	}
	return errors.ValidateListenAddr(c.Server.Addr)
}

// Level parses LogLevel.
func (c *Config) Level() (log.Level, error) {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel, errors.Wrap(errors.ErrCodeInvalidInput, err, "log_level")
	}
	return lvl, nil
}

// Params returns the layout parameters.
func (c *Config) Params() layout.Params {
	return layout.Params{
		SOIRadius:               c.Layout.SOIRadius,
		NestingShrink:           c.Layout.NestingShrink,
		SubsystemRadiusFraction: c.Layout.SubsystemRadiusFraction,
		ZoomStep:                c.Layout.ZoomStep,
	}
}

// TickInterval returns the editor tick period.
func (c *Config) TickInterval() time.Duration { return c.Editor.Tick.Duration }
