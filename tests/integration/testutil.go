// Package integration runs the taxa binary end to end.
package integration

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taxa/pkg/sqlite"
)

var (
	// taxaBin is the path to the built taxa binary.
	taxaBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot walks up from the working directory to the go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// TestEnv is an isolated config and data directory for one test.
type TestEnv struct {
	t       *testing.T
	Config  string
	DataDir string
}

// NewTestEnv writes a config.yaml registering the given subject types
// (type name to table name) and returns the environment.
func NewTestEnv(t *testing.T, subjects map[string]string) *TestEnv {
	t.Helper()
	if buildErr != nil {
		t.Fatalf("failed to build taxa: %v", buildErr)
	}
	require.NotEmpty(t, taxaBin, "taxa binary not built")

	dir := t.TempDir()
	env := &TestEnv{
		t:       t,
		Config:  filepath.Join(dir, "config"),
		DataDir: filepath.Join(dir, "data"),
	}
	require.NoError(t, os.MkdirAll(env.Config, 0o755))

	var cfg bytes.Buffer
	cfg.WriteString("backend: sqlite\ndata_dir: " + env.DataDir + "\n")
	if len(subjects) > 0 {
		cfg.WriteString("subjects:\n")
		for kind, table := range subjects {
			cfg.WriteString("  " + kind + ": " + table + "\n")
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(env.Config, "config.yaml"), cfg.Bytes(), 0o644))
	return env
}

// Exec runs statements against the taxa database, for seeding subject
// tables the CLI does not own.
func (e *TestEnv) Exec(stmts ...string) {
	e.t.Helper()
	require.NoError(e.t, os.MkdirAll(e.DataDir, 0o755))
	db, err := sql.Open("sqlite", filepath.Join(e.DataDir, sqlite.DatabaseFile))
	require.NoError(e.t, err)
	defer db.Close()
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(e.t, err, stmt)
	}
}

// CmdResult holds the result of a taxa command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes taxa with the environment's directories.
func (e *TestEnv) Run(args ...string) CmdResult {
	e.t.Helper()
	allArgs := append([]string{"--config-dir", e.Config, "--data-dir", e.DataDir}, args...)
	cmd := exec.Command(taxaBin, allArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			e.t.Fatalf("failed to run taxa: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}
	return CmdResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}
}

// MustRun executes taxa and fails the test on a non-zero exit.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	result := e.Run(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("taxa %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// JSON runs taxa with --json and decodes stdout into T.
func JSON[T any](e *TestEnv, args ...string) T {
	e.t.Helper()
	result := e.MustRun(append([]string{"--json"}, args...)...)
	var v T
	if err := json.Unmarshal([]byte(result.Stdout), &v); err != nil {
		e.t.Fatalf("failed to parse JSON %q: %v", result.Stdout, err)
	}
	return v
}
