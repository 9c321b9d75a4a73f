package cli

import (
	"bytes"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jtensminger/deep-systems-analysis/pkg/document"
	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/persist"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check that a document loads into a consistent scene",
		Long: `Load a document, check every scene invariant and verify that saving the
loaded scene reproduces a stable document.

Records that reference unknown ids are skipped while loading and reported as
warnings; with --strict any warning fails validation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd, c.documentPath(args), strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "treat skipped records as errors")

	return cmd
}

func (c *CLI) runValidate(cmd *cobra.Command, path string, strict bool) error {
	w := cmd.OutOrStdout()
	prog := newProgress(c.Logger)

	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
	}
	res, err := c.loadDocument(path)
	if err != nil {
		return err
	}
	for _, warn := range res.Warnings {
		printWarning(w, "%v", warn)
	}
	if strict && len(res.Warnings) > 0 {
		return errors.New(errors.ErrCodeDocumentReference, "%d records reference unknown ids", len(res.Warnings))
	}

	sc := res.Scene
	sc.Update()
	if err := sc.Layout(); err != nil {
		return err
	}
	if err := sc.Check(); err != nil {
		return err
	}

	first, err := persist.Save(sc)
	if err != nil {
		return err
	}
	again, err := persist.Load(first, c.sceneOptions()...)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "reload saved document")
	}
	second, err := persist.Save(again.Scene)
	if err != nil {
		return err
	}
	a, err := document.Marshal(first)
	if err != nil {
		return err
	}
	b, err := document.Marshal(second)
	if err != nil {
		return err
	}
	if !bytes.Equal(a, b) {
		return errors.New(errors.ErrCodeInvariantViolation, "saving %s is not stable across a reload", path)
	}

	prog.done("Validated " + path)
	printSuccess(w, "%s is valid", path)
	printStats(w, document.Count(first))
	if !bytes.Equal(bytes.TrimSpace(raw), bytes.TrimSpace(a)) {
		printInfo(w, "saving will rewrite the document in canonical form")
	}
	return nil
}
