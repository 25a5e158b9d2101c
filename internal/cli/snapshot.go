package cli

import (
	"context"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taxa/internal/sqlite"
)

func (a *app) newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export or restore categories and associations as JSONL",
	}
	cmd.AddCommand(
		a.newSnapshotTransferCmd("export", "Write a snapshot to <dir>", (*sqlite.Backend).Export),
		a.newSnapshotTransferCmd("import", "Replace all categories and associations with the snapshot in <dir>", (*sqlite.Backend).Import),
	)
	return cmd
}

type transferFunc func(*sqlite.Backend, context.Context, string) (sqlite.Manifest, error)

func (a *app) newSnapshotTransferCmd(use, short string, transfer transferFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <dir>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend, err := a.attachBackend(ctx)
			if err != nil {
				return err
			}
			defer backend.Detach()

			m, err := transfer(backend, ctx, args[0])
			if err != nil {
				return err
			}
			return a.emit(cmd, m, func(w io.Writer) error {
				pterm.Success.WithWriter(w).Printfln("snapshot %s: %d categories, %d associations",
					m.ID, m.Categories, m.Associations)
				return nil
			})
		},
	}
}
