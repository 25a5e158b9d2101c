package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taxa/pkg/categorize"
	"github.com/mesh-intelligence/taxa/pkg/types"
)

func (a *app) newEntriesCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "entries <ref> <subject-type>",
		Short: "List the subjects tagged with a category",
		Long: `List the subjects of one type tagged with a category. With --all the
category's descendants count too. A subject tagged at several matching
categories is listed once per association.

The subject type must be configured under "subjects" in config.yaml.`,
		Example: "  taxa entries news post --all",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd, func(ctx context.Context, c *categorize.Catalog) error {
				query := c.Entries
				if all {
					query = c.AllEntries
				}
				entries, err := query(ctx, types.RefFromArg(args[0]), args[1])
				if err != nil {
					return err
				}
				return a.emit(cmd, entries, func(w io.Writer) error { return entryTable(w, entries) })
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include subjects tagged with descendant categories")
	return cmd
}
