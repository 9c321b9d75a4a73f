package cli

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Jtensminger/deep-systems-analysis/pkg/buildinfo"
	"github.com/Jtensminger/deep-systems-analysis/pkg/config"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// Before any subcommand runs the configuration file is resolved and loaded
// (see [config.Find]) and the log level is taken from it. --verbose
// overrides the configured level with debug. The logger is attached to the
// command context and is available through loggerFromContext.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   config.AppName,
		Short: "sysdiag edits system-language world models",
		Long: `sysdiag is an editor for system-language diagrams: a system of interest,
its boundary interfaces, the sources and sinks in its environment and the
flows of matter, energy and messages between them.

Models are stored as JSON documents and can be edited interactively in the
terminal, served to a canvas front end over HTTP, or rendered to DOT and SVG.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/sysdiag/config.toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	// Register all subcommands
	root.AddCommand(c.newCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// setup loads the configuration and configures logging.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	path, explicit, err := config.Find(c.configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if c.verbose {
		level = log.DebugLevel
	}
	c.SetLogLevel(level)
	c.Logger.Debug("config", "path", path, "explicit", explicit)

	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}
