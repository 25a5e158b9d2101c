// Package sqlite provides the public constructor for the SQLite taxa
// backend while keeping the implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/taxa/internal/sqlite"
	"github.com/mesh-intelligence/taxa/pkg/types"
)

// DatabaseFile is the file name of the database inside Config.DataDir.
const DatabaseFile = sqlite.DatabaseFile

// Option configures a backend.
type Option = sqlite.Option

// Backend options.
var (
	WithLogger     = sqlite.WithLogger
	WithRegisterer = sqlite.WithRegisterer
)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(ctx, types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".taxa-db",
//	})
//	defer backend.Detach()
func NewBackend(opts ...Option) types.Backend {
	return sqlite.NewBackend(opts...)
}
