package store

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	// Drivers selectable through DB_DRIVER.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/stockroom/internal/core"
)

// idColumn is the auto-assigned row identifier present in every table. It is
// used as the row Ref and never exposed as a user column.
const idColumn = "id"

// RelationalConfig configures a database-backed store.
type RelationalConfig struct {
	Driver          string
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Relational stores one category per table. Each operation checks out a
// dedicated connection and returns it on every exit path.
type Relational struct {
	db      *sql.DB
	dialect dialect
}

// OpenRelational opens the pool. No connection is made until first use;
// call Ping to verify connectivity.
func OpenRelational(cfg RelationalConfig) (*Relational, error) {
	d, err := lookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}

	if d.singleConn {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}
	if cfg.MaxConnIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	}

	return &Relational{db: db, dialect: d}, nil
}

// NewRelational wraps an existing handle opened with one of the supported
// drivers.
func NewRelational(db *sql.DB, driver string) (*Relational, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}
	return &Relational{db: db, dialect: d}, nil
}

// Name implements core.Store.
func (r *Relational) Name() string { return "relational:" + r.dialect.driver }

// Ping verifies the database is reachable.
func (r *Relational) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return nil
}

// Close implements core.Store.
func (r *Relational) Close() error { return r.db.Close() }

// withConn checks out one connection for the duration of fn.
func (r *Relational) withConn(ctx context.Context, table string, fn func(conn *sql.Conn) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	defer conn.Close()

	return classify(fn(conn), table)
}

// ListCategories implements core.Store.
func (r *Relational) ListCategories(ctx context.Context) ([]string, error) {
	var names []string
	err := r.withConn(ctx, "", func(conn *sql.Conn) error {
		var err error
		names, err = r.listTables(ctx, conn)
		return err
	})
	return names, err
}

func (r *Relational) listTables(ctx context.Context, conn *sql.Conn) ([]string, error) {
	rows, err := conn.QueryContext(ctx, r.dialect.listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// LoadAll implements core.Store.
func (r *Relational) LoadAll(ctx context.Context) (*core.Snapshot, error) {
	var (
		names []string
		grids = make(map[string]core.Grid)
	)
	err := r.withConn(ctx, "", func(conn *sql.Conn) error {
		var err error
		names, err = r.listTables(ctx, conn)
		if err != nil {
			return err
		}
		for _, name := range names {
			g, err := r.scanTable(ctx, conn, name)
			if err != nil {
				return fmt.Errorf("load %q: %w", name, err)
			}
			grids[name] = g
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return core.NewSnapshot(r.Name(), names, grids), nil
}

// LoadOne implements core.Store.
func (r *Relational) LoadOne(ctx context.Context, category string) (core.Grid, error) {
	var g core.Grid
	err := r.withConn(ctx, category, func(conn *sql.Conn) error {
		var err error
		g, err = r.scanTable(ctx, conn, category)
		return err
	})
	return g, err
}

// scanTable reads a full table ordered by id. The header is every column
// except id; NULLs read as empty strings.
func (r *Relational) scanTable(ctx context.Context, conn *sql.Conn, table string) (core.Grid, error) {
	q := "SELECT * FROM " + quoteIdentifier(table)
	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return core.Grid{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return core.Grid{}, err
	}

	idIdx := -1
	header := make([]string, 0, len(cols))
	for i, c := range cols {
		if strings.EqualFold(c, idColumn) && idIdx < 0 {
			idIdx = i
			continue
		}
		header = append(header, c)
	}

	g := core.Grid{Header: header}
	for rows.Next() {
		raw := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return core.Grid{}, err
		}

		row := core.Row{Cells: make([]string, 0, len(header))}
		for i, v := range raw {
			if i == idIdx {
				row.Ref = v.String
				continue
			}
			row.Cells = append(row.Cells, v.String)
		}
		g.Rows = append(g.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return core.Grid{}, err
	}

	sortByRef(g.Rows)
	return g, nil
}

// sortByRef orders rows by numeric id so display order matches insertion.
// Tables without an id keep scan order.
func sortByRef(rows []core.Row) {
	key := func(r core.Row) int64 {
		n, _ := strconv.ParseInt(r.Ref, 10, 64)
		return n
	}
	slices.SortStableFunc(rows, func(a, b core.Row) int {
		return cmp.Compare(key(a), key(b))
	})
}

// userColumns returns the table's columns in order, minus id.
func (r *Relational) userColumns(ctx context.Context, conn *sql.Conn, table string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, "SELECT * FROM "+quoteIdentifier(table)+" LIMIT 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if !strings.EqualFold(c, idColumn) {
			out = append(out, c)
		}
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseID(ref string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q", core.ErrInvalidRowIndex, ref)
	}
	return id, nil
}

// UpdateRow implements core.Store.
func (r *Relational) UpdateRow(ctx context.Context, category string, header []string, ref string, cells []string) error {
	id, err := parseID(ref)
	if err != nil {
		return err
	}
	return r.withConn(ctx, category, func(conn *sql.Conn) error {
		cols, err := r.userColumns(ctx, conn, category)
		if err != nil {
			return err
		}
		if len(cols) != len(cells) {
			return fmt.Errorf("%w: table %q has %d columns, got %d values", core.ErrColumnMismatch, category, len(cols), len(cells))
		}

		sets := make([]string, len(cols))
		args := make([]any, 0, len(cols)+1)
		for i, c := range cols {
			sets[i] = quoteIdentifier(c) + " = " + r.dialect.placeholder(i+1)
			args = append(args, nullable(cells[i]))
		}
		args = append(args, id)

		q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
			quoteIdentifier(category), strings.Join(sets, ", "),
			quoteIdentifier(idColumn), r.dialect.placeholder(len(cols)+1))
		res, err := conn.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: id %d", core.ErrInvalidRowIndex, id)
		}
		return nil
	})
}

// AppendRow implements core.Store. A missing table is created with an id
// column plus one TEXT column per header label.
func (r *Relational) AppendRow(ctx context.Context, category string, header []string, cells []string) error {
	return r.withConn(ctx, category, func(conn *sql.Conn) error {
		cols, err := r.userColumns(ctx, conn, category)
		if err != nil {
			if !errors.Is(classify(err, category), core.ErrCategoryNotFound) {
				return err
			}
			if err := r.createTable(ctx, conn, category, header); err != nil {
				return err
			}
			if cols, err = r.userColumns(ctx, conn, category); err != nil {
				return err
			}
		}
		if len(cols) != len(cells) {
			return fmt.Errorf("%w: table %q has %d columns, got %d values", core.ErrColumnMismatch, category, len(cols), len(cells))
		}

		quoted := make([]string, len(cols))
		marks := make([]string, len(cols))
		args := make([]any, len(cols))
		for i, c := range cols {
			quoted[i] = quoteIdentifier(c)
			marks[i] = r.dialect.placeholder(i + 1)
			args[i] = nullable(cells[i])
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdentifier(category), strings.Join(quoted, ", "), strings.Join(marks, ", "))
		_, err = conn.ExecContext(ctx, q, args...)
		return err
	})
}

func (r *Relational) createTable(ctx context.Context, conn *sql.Conn, table string, header []string) error {
	defs := []string{r.dialect.autoID}
	for i, label := range header {
		name := strings.TrimSpace(label)
		if name == "" || strings.EqualFold(name, idColumn) {
			name = "column_" + strconv.Itoa(i+1)
		}
		defs = append(defs, quoteIdentifier(name)+" TEXT")
	}
	q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdentifier(table), strings.Join(defs, ", "))
	if _, err := conn.ExecContext(ctx, q); err != nil {
		return err
	}
	slog.Info("created table", "category", table, "columns", len(header))
	return nil
}

// DeleteRow implements core.Store.
func (r *Relational) DeleteRow(ctx context.Context, category string, ref string) error {
	id, err := parseID(ref)
	if err != nil {
		return err
	}
	return r.withConn(ctx, category, func(conn *sql.Conn) error {
		q := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
			quoteIdentifier(category), quoteIdentifier(idColumn), r.dialect.placeholder(1))
		res, err := conn.ExecContext(ctx, q, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: id %d", core.ErrItemNotFound, id)
		}
		return nil
	})
}

// DeleteAll implements core.Store.
func (r *Relational) DeleteAll(ctx context.Context, category string) error {
	return r.withConn(ctx, category, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, "DELETE FROM "+quoteIdentifier(category))
		return err
	})
}

// DeleteCategory implements core.Store.
func (r *Relational) DeleteCategory(ctx context.Context, category string) error {
	return r.withConn(ctx, category, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, "DROP TABLE "+quoteIdentifier(category))
		return err
	})
}
