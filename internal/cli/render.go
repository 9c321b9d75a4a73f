package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Jtensminger/deep-systems-analysis/pkg/document"
	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string // output file, "-" for stdout; defaults to the input with the format's extension
	format   string // "svg" or "dot"
	rankDir  string // Graphviz rank direction
	detailed bool   // ids, levels and amounts in labels
	noCache  bool   // bypass the render cache
}

// validRankDirs are the rank directions Graphviz accepts.
var validRankDirs = map[string]bool{"LR": true, "RL": true, "TB": true, "BT": true}

// renderCommand creates the render command for generating diagrams.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: string(render.FormatSVG), rankDir: "LR"}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a document as a Graphviz diagram",
		Long: `Render a world model as nested clusters: one per system, with interfaces
on the boundary, sources and sinks in the environment and one edge per
interaction, colored by substance.

Output is DOT source or SVG laid out by the embedded Graphviz. Rendered
artifacts are cached by document content unless --no-cache is set.`,
		Example: `  sysdiag render plant.json
  sysdiag render plant.json -f dot -o - | dot -Tpng > plant.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, c.documentPath(args), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", `output file, "-" for stdout`)
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg, dot")
	cmd.Flags().StringVar(&opts.rankDir, "rankdir", opts.rankDir, "rank direction: LR, RL, TB, BT")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show ids, levels and amounts")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, path string, opts renderOpts) error {
	format, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	rankDir := strings.ToUpper(opts.rankDir)
	if !validRankDirs[rankDir] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid rankdir %q (must be LR, RL, TB or BT)", opts.rankDir)
	}

	wm, err := document.ReadFile(path)
	if err != nil {
		return err
	}

	rc, err := c.newCache(opts.noCache)
	if err != nil {
		return err
	}
	defer rc.Close()

	r := render.NewRenderer(rc,
		render.WithOptions(render.Options{RankDir: rankDir, Detailed: opts.detailed}),
		render.WithLogger(c.Logger),
	)
	return c.writeRender(cmd.Context(), cmd, r, wm, format, outputPath(path, opts.output, format))
}

func (c *CLI) writeRender(ctx context.Context, cmd *cobra.Command, r *render.Renderer, wm *document.WorldModel, f render.Format, out string) error {
	prog := newProgress(c.Logger)
	data, cached, err := r.Render(ctx, wm, f)
	if err != nil {
		return err
	}

	if out == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", out)
	}

	prog.done("Rendered " + string(f))
	w := cmd.OutOrStdout()
	printSuccess(w, "Rendered %s", wm.SystemOfInterest.Info.Name)
	printStats(w, document.Count(wm), cacheStatus(cached))
	printFile(w, out)
	return nil
}

// outputPath derives the output path from the input when none is given.
func outputPath(input, output string, f render.Format) string {
	if output != "" {
		return output
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + "." + string(f)
}
