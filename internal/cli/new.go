package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
	"github.com/Jtensminger/deep-systems-analysis/pkg/persist"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
)

// newOptions holds flags for the new command.
type newOptions struct {
	name        string
	description string
	force       bool
}

// newCommand creates the new command for starting an empty model.
func (c *CLI) newCommand() *cobra.Command {
	opts := newOptions{}

	cmd := &cobra.Command{
		Use:   "new [file]",
		Short: "Create a document holding only the system of interest",
		Long: `Create a new world model document containing a single system of interest.

The document is written to the given file, or to the configured default
document when no file is given. Existing files are kept unless --force is set.`,
		Example: `  sysdiag new plant.json --name "Power plant"`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runNew(cmd, c.documentPath(args), opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "name of the system of interest")
	cmd.Flags().StringVar(&opts.description, "description", "", "description of the system of interest")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "overwrite an existing file")

	return cmd
}

func (c *CLI) runNew(cmd *cobra.Command, path string, opts newOptions) error {
	if err := errors.ValidateDocumentPath(path); err != nil {
		return err
	}
	for _, s := range []string{opts.name, opts.description} {
		if err := errors.ValidateName(s); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); err == nil && !opts.force {
		return errors.New(errors.ErrCodeInvalidInput, "%s already exists (use --force to overwrite)", path)
	}

	sc := scene.New(opts.name, c.sceneOptions()...)
	if opts.description != "" {
		if err := sc.SetInfo(sc.Root(), scene.Info{Name: opts.name, Description: opts.description}); err != nil {
			return err
		}
	}
	if err := persist.SaveFile(sc, path); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	printSuccess(w, "Created %s", path)
	printNextStep(w, "Edit it", "sysdiag edit "+path)
	return nil
}
