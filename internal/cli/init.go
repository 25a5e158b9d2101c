package cli

import (
	"io"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize taxa storage",
		Long:  "Create the configuration and data directories, write a default config.yaml, and create the schema.",
		Args:  cobra.NoArgs,
		RunE:  a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	backend, err := a.attachBackend(ctx)
	if err != nil {
		return err
	}
	path := backend.Path()
	if err := backend.Detach(); err != nil {
		return errors.Wrap(err, "finalizing storage")
	}

	result := map[string]string{
		"config":   filepath.Join(a.configDir, configFileExt),
		"database": path,
	}
	return a.emit(cmd, result, func(w io.Writer) error {
		pterm.Success.WithWriter(w).Println("taxa initialized")
		pterm.Info.WithWriter(w).Printfln("config:   %s", result["config"])
		pterm.Info.WithWriter(w).Printfln("database: %s", result["database"])
		return nil
	})
}
