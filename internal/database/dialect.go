package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// dialect captures what differs between the supported engines: placeholder style,
// schema DDL, and how driver errors are classified.
type dialect struct {
	driver string
	schema string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite, "sqlite", "":
		return dialect{driver: DriverSQLite, schema: sqliteSchema}, nil
	case DriverPostgres, "postgresql":
		return dialect{driver: DriverPostgres, schema: postgresSchema}, nil
	}
	return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

// rebind rewrites '?' placeholders into $1..$n for PostgreSQL.
func (d dialect) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isTransient reports whether a failed call may succeed if retried unchanged.
func (d dialect) isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", // connection exception
			"40", // transaction rollback (serialization failure, deadlock)
			"53", // insufficient resources
			"57": // operator intervention
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
