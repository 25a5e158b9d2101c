package cli

import (
	"context"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taxa/pkg/categorize"
	"github.com/mesh-intelligence/taxa/pkg/types"
)

func (a *app) newSubjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subject",
		Short: "Manage the categories of a subject",
		Long: `Manage the categories attached to one subject, named by its type and id.

A <ref> is a category id when it is an integer, otherwise a name or slug.`,
	}
	cmd.AddCommand(
		a.newSubjectAttachCmd(),
		a.newSubjectDetachCmd(),
		a.newSubjectSyncCmd(),
		a.newSubjectHasCmd(),
		a.newSubjectListCmd(),
	)
	return cmd
}

// parseSubject reads the <type> <id> argument pair.
func parseSubject(args []string) (types.Subject, error) {
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return types.Subject{}, types.Invalidf("subject id", "%q is not an integer", args[1])
	}
	s := types.Subject{Type: args[0], ID: id}
	return s, s.Validate()
}

func refsFromArgs(args []string) types.Refs {
	refs := make(types.Refs, 0, len(args))
	for _, arg := range args {
		refs = append(refs, types.RefFromArg(arg))
	}
	return refs
}

// withSubject parses the subject arguments and hands fn a Manager bound to
// it along with the remaining arguments.
func (a *app) withSubject(cmd *cobra.Command, args []string, fn func(ctx context.Context, m *categorize.Manager, rest []string) error) error {
	subject, err := parseSubject(args)
	if err != nil {
		return err
	}
	return a.withCatalog(cmd, func(ctx context.Context, c *categorize.Catalog) error {
		return fn(ctx, c.Subject(subject), args[2:])
	})
}

func (a *app) newSubjectAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "attach <type> <id> <ref>...",
		Short:   "Attach categories to a subject",
		Example: "  taxa subject attach post 7 news 3 sports",
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSubject(cmd, args, func(ctx context.Context, m *categorize.Manager, rest []string) error {
				if _, err := m.Attach(ctx, refsFromArgs(rest)); err != nil {
					return err
				}
				return a.printLabels(ctx, cmd, m, "Attached %d categories to %s", len(rest), m.Subject())
			})
		},
	}
}

func (a *app) newSubjectDetachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detach <type> <id> <ref>",
		Short: "Detach a category from a subject",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSubject(cmd, args, func(ctx context.Context, m *categorize.Manager, rest []string) error {
				n, err := m.Detach(ctx, types.RefFromArg(rest[0]))
				if err != nil {
					return err
				}
				return a.success(cmd, map[string]any{"subject": m.Subject(), "removed": n},
					"Removed %d association rows from %s", n, m.Subject())
			})
		},
	}
}

func (a *app) newSubjectSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <type> <id> [ref]...",
		Short: "Replace the categories of a subject",
		Long:  "Sync replaces every category of the subject with the given ones. With no refs it clears them.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSubject(cmd, args, func(ctx context.Context, m *categorize.Manager, rest []string) error {
				if _, err := m.Sync(ctx, refsFromArgs(rest)); err != nil {
					return err
				}
				return a.printLabels(ctx, cmd, m, "Synced %s", m.Subject())
			})
		},
	}
}

func (a *app) newSubjectHasCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "has <type> <id> <ref>...",
		Short: "Report whether a subject carries any (or all) of the categories",
		Long:  "Exits with status 1 when the answer is no.",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSubject(cmd, args, func(ctx context.Context, m *categorize.Manager, rest []string) error {
				check := m.HasAny
				if all {
					check = m.HasAll
				}
				ok, err := check(ctx, refsFromArgs(rest))
				if err != nil {
					return err
				}
				err = a.emit(cmd, map[string]bool{"result": ok}, func(w io.Writer) error {
					if ok {
						pterm.Success.WithWriter(w).Println("yes")
					} else {
						pterm.Warning.WithWriter(w).Println("no")
					}
					return nil
				})
				if err != nil {
					return err
				}
				if !ok {
					return errQuiet
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "require every category instead of any")
	return cmd
}

func (a *app) newSubjectListCmd() *cobra.Command {
	var ids bool
	cmd := &cobra.Command{
		Use:   "list <type> <id>",
		Short: "List the categories of a subject",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSubject(cmd, args, func(ctx context.Context, m *categorize.Manager, _ []string) error {
				if ids {
					list, err := m.CategoriesIDs(ctx)
					if err != nil {
						return err
					}
					return a.emit(cmd, list, func(w io.Writer) error {
						for _, id := range list {
							pterm.Fprintln(w, id)
						}
						return nil
					})
				}
				cats, err := m.Categories(ctx)
				if err != nil {
					return err
				}
				return a.emit(cmd, cats, func(w io.Writer) error { return categoryTable(w, cats) })
			})
		},
	}
	cmd.Flags().BoolVar(&ids, "ids", false, "print one category id per association row")
	return cmd
}

// printLabels reports the subject's categories after a change.
func (a *app) printLabels(ctx context.Context, cmd *cobra.Command, m *categorize.Manager, format string, args ...any) error {
	labels, err := m.CategoriesList(ctx)
	if err != nil {
		return err
	}
	result := map[string]any{"subject": m.Subject(), "categories": labels}
	return a.emit(cmd, result, func(w io.Writer) error {
		pterm.Success.WithWriter(w).Printfln(format, args...)
		for _, l := range labels {
			pterm.Fprintln(w, "  "+strconv.FormatInt(l.ID, 10)+"  "+l.Name)
		}
		return nil
	})
}
