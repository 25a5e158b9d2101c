package sqlite

import (
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/taxa/pkg/types"
)

// busyTimeoutMillis bounds how long a writer waits on SQLite's lock.
const busyTimeoutMillis = 5000

// dsnBuilders maps a database/sql driver name to a function building its
// DSN. Pragmas go into the DSN so every pooled connection gets them.
// driver_cgo.go adds mattn/go-sqlite3 in cgo builds.
var dsnBuilders = map[string]func(path string) string{
	types.DriverSQLite: moderncDSN,
}

func moderncDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(ON)")
	return "file:" + path + "?" + q.Encode()
}
