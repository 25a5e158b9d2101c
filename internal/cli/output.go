package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taxa/pkg/types"
)

// emit writes v as indented JSON under --json and calls human otherwise.
func (a *app) emit(cmd *cobra.Command, v any, human func(w io.Writer) error) error {
	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	}
	return human(out)
}

// success prints a one-line confirmation, or v as JSON under --json.
func (a *app) success(cmd *cobra.Command, v any, format string, args ...any) error {
	return a.emit(cmd, v, func(w io.Writer) error {
		pterm.Success.WithWriter(w).Printfln(format, args...)
		return nil
	})
}

func categoryTable(w io.Writer, cats []types.Category) error {
	if len(cats) == 0 {
		pterm.Info.WithWriter(w).Println("no categories")
		return nil
	}
	data := pterm.TableData{{"ID", "NAME", "SLUG", "TYPE", "PARENT"}}
	for _, c := range cats {
		parent := "-"
		if c.Position.ParentID != nil {
			parent = strconv.FormatInt(*c.Position.ParentID, 10)
		}
		data = append(data, []string{strconv.FormatInt(c.ID, 10), c.Name, c.Slug, c.Type, parent})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render()
}

func categoryDetail(w io.Writer, c *types.Category) error {
	return categoryTable(w, []types.Category{*c})
}

// treeRoot converts the category forest into one pterm tree under a blank
// root.
func treeRoot(nodes []*types.TreeNode) pterm.TreeNode {
	root := pterm.TreeNode{}
	for _, n := range nodes {
		root.Children = append(root.Children, treeNode(n))
	}
	return root
}

func treeNode(n *types.TreeNode) pterm.TreeNode {
	node := pterm.TreeNode{Text: fmt.Sprintf("%s (%d, %s)", n.Name, n.ID, n.Slug)}
	for _, child := range n.Children {
		node.Children = append(node.Children, treeNode(child))
	}
	return node
}

func entryTable(w io.Writer, entries []types.Entry) error {
	if len(entries) == 0 {
		pterm.Info.WithWriter(w).Println("no entries")
		return nil
	}
	data := pterm.TableData{{"SUBJECT", "CATEGORY", "COLUMNS"}}
	for _, e := range entries {
		cols, err := json.Marshal(e.Columns)
		if err != nil {
			return err
		}
		data = append(data, []string{
			strconv.FormatInt(e.SubjectID, 10),
			strconv.FormatInt(e.CategoryID, 10),
			string(cols),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render()
}
