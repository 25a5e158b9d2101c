//go:build cgo

package sqlite

import (
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mesh-intelligence/taxa/pkg/types"
)

func init() {
	dsnBuilders[types.DriverSQLite3] = mattnDSN
}

func mattnDSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on", path, busyTimeoutMillis)
}
