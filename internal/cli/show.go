package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Jtensminger/deep-systems-analysis/pkg/document"
)

// showCommand creates the show command that prints a document as a tree.
func (c *CLI) showCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [file]",
		Short: "Print the system hierarchy of a document",
		Long: `Print the systems of a document as a tree, with their interfaces, sources,
sinks and interactions, followed by record counts.

With --json the document is printed in canonical form instead: child arrays
sorted by id and indented.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wm, err := document.ReadFile(c.documentPath(args))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				document.Normalize(wm)
				return document.Write(w, wm)
			}
			fmt.Fprintln(w, systemTree(wm))
			fmt.Fprintln(w, statsTable(document.Count(wm)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the canonical JSON form")

	return cmd
}
