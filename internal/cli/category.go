package cli

import (
	"context"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taxa/pkg/categorize"
	"github.com/mesh-intelligence/taxa/pkg/types"
)

func (a *app) newCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"cat"},
		Short:   "Manage categories",
		Long: `Manage the category tree.

A <ref> is a category id when it is an integer, otherwise a name or slug.`,
	}
	cmd.AddCommand(
		a.newCategoryCreateCmd(),
		a.newCategoryGetCmd(),
		a.newCategoryFindCmd(),
		a.newCategoryUpdateCmd(),
		a.newCategoryDeleteCmd(),
		a.newCategoryMoveCmd(),
		a.newCategoryTreeCmd(),
		a.newCategoryListCmd(),
		a.newCategoryRelativesCmd("ancestors", "List the ancestors of a category, root first", (*categorize.Catalog).Ancestors),
		a.newCategoryRelativesCmd("descendants", "List the descendants of a category, depth first", (*categorize.Catalog).Descendants),
		a.newCategoryCheckCmd(),
	)
	return cmd
}

func (a *app) newCategoryCreateCmd() *cobra.Command {
	var parent, slug, typ string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a category",
		Example: `  taxa category create News
  taxa category create "Local News" --parent news`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd, func(ctx context.Context, c *categorize.Catalog) error {
				cat := &types.Category{Name: args[0], Slug: slug, Type: typ}
				var parentRef types.CategoryRef
				if parent != "" {
					parentRef = types.RefFromArg(parent)
				}
				if err := c.Create(ctx, cat, parentRef); err != nil {
					return err
				}
				return a.success(cmd, cat, "Created category %d (%s)", cat.ID, cat.Slug)
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent category ref")
	cmd.Flags().StringVar(&slug, "slug", "", "custom slug")
	cmd.Flags().StringVar(&typ, "type", "", "category type")
	return cmd
}

func (a *app) newCategoryGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <ref>",
		Short: "Show a category by id, name or slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd, func(ctx context.Context, c *categorize.Catalog) error {
				cat, err := c.Resolve(ctx, types.RefFromArg(args[0]))
				if err != nil {
					return err
				}
				return a.emit(cmd, cat, func(w io.Writer) error { return categoryDetail(w, cat) })
			})
		},
	}
}

func (a *app) newCategoryFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <name-or-slug>",
		Short: "Find a category by exact name or slug",
		Long:  "Find treats the argument as a name or slug even when it is an integer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd, func(ctx context.Context, c *categorize.Catalog) error {
				cat, err := c.FindByName(ctx, args[0])
				if err != nil {
					return err
				}
				return a.emit(cmd, cat, func(w io.Writer) error { return categoryDetail(w, cat) })
			})
		},
	}
}

func (a *app) newCategoryUpdateCmd() *cobra.Command {
	var name, slug, typ string
	cmd := &cobra.Command{
		Use:   "update <ref>",
		Short: "Rename a category or change its slug or type",
		Long:  "Renaming regenerates the slug unless --slug is also given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" && slug == "" && typ == "" {
				return types.Invalid("update", "nothing to change; pass --name, --slug or --type")
			}
			return a.withCatalog(cmd, func(ctx context.Context, c *categorize.Catalog) error {
				cat, err := c.Resolve(ctx, types.RefFromArg(args[0]))
				if err != nil {
					return err
				}
				if name != "" {
					cat.Name = name
				}
				if slug != "" {
					cat.Slug = slug
				}
				if typ != "" {
					cat.Type = typ
				}
				if err := c.Update(ctx, cat); err != nil {
					return err
				}
				return a.success(cmd, cat, "Updated category %d (%s)", cat.ID, cat.Slug)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&slug, "slug", "", "new slug")
	cmd.Flags().StringVar(&typ, "type", "", "new type")
	return cmd
}

func (a *app) newCategoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete a category and its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd, func(ctx context.Context, c *categorize.Catalog) error {
				removed, err := c.Delete(ctx, types.RefFromArg(args[0]))
				if err != nil {
					return err
				}
				return a.success(cmd, map[string]any{"removed": removed}, "Deleted %d categories", len(removed))
			})
		},
	}
}

func (a *app) newCategoryMoveCmd() *cobra.Command {
	var parent string
	var root bool
	cmd := &cobra.Command{
		Use:   "move <ref>",
		Short: "Move a category under a new parent or make it a root",
		Example: `  taxa category move football --parent sports
  taxa category move football --root`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (parent == "") == !root {
				return types.Invalid("move", "pass exactly one of --parent or --root")
			}
			return a.withCatalog(cmd, func(ctx context.Context, c *categorize.Catalog) error {
				var parentRef types.CategoryRef
				if parent != "" {
					parentRef = types.RefFromArg(parent)
				}
				if err := c.Move(ctx, types.RefFromArg(args[0]), parentRef); err != nil {
					return err
				}
				cat, err := c.Resolve(ctx, types.RefFromArg(args[0]))
				if err != nil {
					return err
				}
				return a.success(cmd, cat, "Moved category %d", cat.ID)
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "new parent category ref")
	cmd.Flags().BoolVar(&root, "root", false, "make the category a root")
	return cmd
}

func (a *app) newCategoryTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the category tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd, func(ctx context.Context, c *categorize.Catalog) error {
				tree, err := c.Tree(ctx)
				if err != nil {
					return err
				}
				return a.emit(cmd, tree, func(w io.Writer) error {
					if len(tree) == 0 {
						pterm.Info.WithWriter(w).Println("no categories")
						return nil
					}
					return pterm.DefaultTree.WithRoot(treeRoot(tree)).WithWriter(w).Render()
				})
			})
		},
	}
}

func (a *app) newCategoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every category in tree order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd, func(ctx context.Context, c *categorize.Catalog) error {
				flat, err := c.FlatTree(ctx)
				if err != nil {
					return err
				}
				return a.emit(cmd, flat, func(w io.Writer) error {
					cats := make([]types.Category, 0, len(flat))
					for _, n := range flat {
						cats = append(cats, n.Category)
					}
					return categoryTable(w, cats)
				})
			})
		},
	}
}

type relativesFunc func(*categorize.Catalog, context.Context, types.CategoryRef) ([]types.Category, error)

func (a *app) newCategoryRelativesCmd(use, short string, relatives relativesFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <ref>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd, func(ctx context.Context, c *categorize.Catalog) error {
				cats, err := relatives(c, ctx, types.RefFromArg(args[0]))
				if err != nil {
					return err
				}
				return a.emit(cmd, cats, func(w io.Writer) error { return categoryTable(w, cats) })
			})
		},
	}
}

// errBrokenTree makes check exit non-zero when problems remain.
var errBrokenTree = errors.New("category tree is broken")

func (a *app) newCategoryCheckCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Count tree integrity errors and optionally repair them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd, func(ctx context.Context, c *categorize.Catalog) error {
				found, err := c.Check(ctx, fix)
				if err != nil {
					return err
				}
				err = a.emit(cmd, found, func(w io.Writer) error {
					data := pterm.TableData{
						{"CHECK", "COUNT"},
						{"oddness", strconv.Itoa(found.Oddness)},
						{"duplicates", strconv.Itoa(found.Duplicates)},
						{"wrong_parent", strconv.Itoa(found.WrongParent)},
						{"missing_parent", strconv.Itoa(found.MissingParent)},
					}
					if err := pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render(); err != nil {
						return err
					}
					switch {
					case found.Total() == 0:
						pterm.Success.WithWriter(w).Println("tree is consistent")
					case fix:
						pterm.Success.WithWriter(w).Println("tree repaired")
					default:
						pterm.Warning.WithWriter(w).Println("tree is broken; run with --fix to repair")
					}
					return nil
				})
				if err != nil {
					return err
				}
				if found.Total() > 0 && !fix {
					return errors.WithHint(errBrokenTree, "run taxa category check --fix")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "rebuild the tree bounds from parent links")
	return cmd
}
