package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/JonMunkholm/stockroom/internal/core"
)

// dialect captures the SQL differences between the supported drivers.
type dialect struct {
	driver string

	// autoID is the column definition of the implicit row identifier.
	autoID string

	listTables string

	// singleConn caps the pool at one connection (SQLite file locking).
	singleConn bool

	numbered bool
}

var dialects = map[string]dialect{
	"pgx": {
		driver: "pgx",
		autoID: "id SERIAL PRIMARY KEY",
		listTables: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		numbered: true,
	},
	"postgres": {
		driver: "postgres",
		autoID: "id SERIAL PRIMARY KEY",
		listTables: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		numbered: true,
	},
	"sqlite": {
		driver: "sqlite",
		autoID: "id INTEGER PRIMARY KEY AUTOINCREMENT",
		listTables: `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
			ORDER BY name`,
		singleConn: true,
	},
}

func lookupDialect(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
	return d, nil
}

// placeholder returns the bind marker for the n-th (1-based) argument.
func (d dialect) placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// quoteIdentifier quotes a table or column name for both PostgreSQL and SQLite.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Undefined-table and connection-class SQLSTATE codes shared by pgconn and pq.
const (
	sqlStateUndefinedTable  = "42P01"
	sqlStateConnectionClass = "08"
)

// classify maps driver errors onto the core sentinels. Unknown errors are
// returned unchanged.
func classify(err error, table string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	case errors.Is(err, driver.ErrBadConn):
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == sqlStateUndefinedTable:
			return fmt.Errorf("table %q: %w", table, core.ErrCategoryNotFound)
		case strings.HasPrefix(pgErr.Code, sqlStateConnectionClass):
			return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
		}
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case string(pqErr.Code) == sqlStateUndefinedTable:
			return fmt.Errorf("table %q: %w", table, core.ErrCategoryNotFound)
		case string(pqErr.Code.Class()) == sqlStateConnectionClass:
			return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}

	// modernc.org/sqlite reports missing tables only in the message
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("table %q: %w", table, core.ErrCategoryNotFound)
	}
	if strings.Contains(err.Error(), "unable to open database") {
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return err
}
