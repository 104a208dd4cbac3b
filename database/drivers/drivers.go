// Package drivers registers the database/sql drivers for every supported
// dialect. Import it for side effects from binaries and integration tests.
package drivers

import (
	// PostgreSQL.
	_ "github.com/lib/pq"
	// libSQL / Turso.
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	// Pure Go SQLite.
	_ "modernc.org/sqlite"
)
