// Package cli implements the taxa command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/taxa/internal/logger"
	"github.com/mesh-intelligence/taxa/internal/paths"
	"github.com/mesh-intelligence/taxa/internal/sqlite"
	"github.com/mesh-intelligence/taxa/pkg/categorize"
	"github.com/mesh-intelligence/taxa/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errQuiet fails a command that has already reported its result, such as a
// negative answer from "subject has".
var errQuiet = errors.New("negative result")

// rootFlags holds global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

// app carries the state shared by one command tree: flags and the loaded
// configuration.
type app struct {
	flags     rootFlags
	config    *viper.Viper
	configDir string
}

// NewRootCmd creates the top-level "taxa" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "taxa",
		Short: "Hierarchical categories for arbitrary subjects",
		Long: `taxa keeps a tree of categories in SQLite and links them to subjects
identified by a type and an id. Subjects can be queried by category,
including every descendant category.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.preRun,
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		a.newVersionCmd(),
		a.newInitCmd(),
		a.newCategoryCmd(),
		a.newSubjectCmd(),
		a.newEntriesCmd(),
		a.newSnapshotCmd(),
	)
	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	logger.Cleanup()
	if err != nil && !errors.Is(err, errQuiet) {
		fmt.Fprintln(os.Stderr, "taxa:", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
	}
	os.Exit(exitCode(err))
}

// exitCode maps store failures to exitSysError and everything else, bad
// references and bad input included, to exitUserError.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrStore):
		return exitSysError
	default:
		return exitUserError
	}
}

func (a *app) preRun(cmd *cobra.Command, args []string) error {
	if err := logger.Initialize(a.flags.jsonMode, a.flags.verbose); err != nil {
		return errors.Wrap(err, "initializing logger")
	}
	if cmd.Name() == "version" {
		return nil
	}

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return errors.Wrap(err, "resolving config dir")
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	a.configDir = configDir
	a.config = v
	return nil
}

// resolveDataDir applies --data-dir > config.yaml data_dir > TAXA_DATA_DIR >
// $(CWD)/.taxa-db.
func (a *app) resolveDataDir() (string, error) {
	var configured string
	if a.config != nil {
		configured = a.config.GetString(cfgKeyDataDir)
	}
	return paths.ResolveDataDir(a.flags.dataDir, configured)
}

// attachBackend builds the backend configuration from config.yaml and
// attaches a SQLite backend. The caller must Detach it.
func (a *app) attachBackend(ctx context.Context) (*sqlite.Backend, error) {
	dataDir, err := a.resolveDataDir()
	if err != nil {
		return nil, errors.Wrap(err, "resolving data dir")
	}
	cfg, err := backendConfig(a.config, dataDir)
	if err != nil {
		return nil, err
	}

	backend := sqlite.NewBackend(sqlite.WithLogger(logger.Logger))
	if err := backend.Attach(ctx, cfg); err != nil {
		return nil, errors.Wrap(err, "attaching backend")
	}
	return backend, nil
}

// withCatalog attaches the backend, runs fn, and detaches.
func (a *app) withCatalog(cmd *cobra.Command, fn func(ctx context.Context, c *categorize.Catalog) error) error {
	ctx := cmd.Context()
	backend, err := a.attachBackend(ctx)
	if err != nil {
		return err
	}
	defer backend.Detach()
	return fn(ctx, categorize.NewCatalog(backend, categorize.WithLogger(logger.Logger)))
}
