package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/stockroom/internal/core"
)

// newTestRelational opens a SQLite database in a temp dir seeded with two
// inventory tables.
func newTestRelational(t *testing.T) *Relational {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.db")

	r, err := OpenRelational(RelationalConfig{Driver: "sqlite", URL: path})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	seed := []string{
		`CREATE TABLE "lab_items" (id INTEGER PRIMARY KEY AUTOINCREMENT, "S.No." TEXT, "Item Description" TEXT, "Stock" TEXT)`,
		`INSERT INTO "lab_items" ("S.No.", "Item Description", "Stock") VALUES ('1', 'Widget', '5'), ('2', 'Gadget', NULL)`,
		`CREATE TABLE "tools" (id INTEGER PRIMARY KEY AUTOINCREMENT, "sno" TEXT, "name" TEXT, "quantity" TEXT)`,
	}
	for _, q := range seed {
		_, err := r.db.Exec(q)
		require.NoError(t, err, q)
	}
	return r
}

func TestRelational_LoadAll(t *testing.T) {
	r := newTestRelational(t)

	snap, err := r.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"lab_items", "tools"}, snap.Names())

	_, g, ok := snap.Lookup("lab_items")
	require.True(t, ok)
	assert.Equal(t, []string{"S.No.", "Item Description", "Stock"}, g.Header, "id column is hidden")
	require.Len(t, g.Rows, 2)
	assert.Equal(t, "1", g.Rows[0].Ref)
	assert.Equal(t, []string{"2", "Gadget", ""}, g.Rows[1].Cells, "NULL reads as empty")

	_, tools, ok := snap.Lookup("tools")
	require.True(t, ok)
	assert.Equal(t, []string{"sno", "name", "quantity"}, tools.Header)
	assert.Empty(t, tools.Rows)
}

func TestRelational_LoadOneMissingTable(t *testing.T) {
	r := newTestRelational(t)

	_, err := r.LoadOne(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrCategoryNotFound)
}

func TestRelational_UpdateRow(t *testing.T) {
	r := newTestRelational(t)
	ctx := context.Background()

	require.NoError(t, r.UpdateRow(ctx, "lab_items", nil, "1", []string{"1", "Widget", "2"}))

	g, err := r.LoadOne(ctx, "lab_items")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "Widget", "2"}, g.Rows[0].Cells)

	err = r.UpdateRow(ctx, "lab_items", nil, "1", []string{"1", "Widget"})
	assert.ErrorIs(t, err, core.ErrColumnMismatch)

	err = r.UpdateRow(ctx, "lab_items", nil, "42", []string{"1", "Widget", "2"})
	assert.ErrorIs(t, err, core.ErrInvalidRowIndex)

	err = r.UpdateRow(ctx, "lab_items", nil, "x", []string{"1", "Widget", "2"})
	assert.ErrorIs(t, err, core.ErrInvalidRowIndex)
}

func TestRelational_AppendRow(t *testing.T) {
	r := newTestRelational(t)
	ctx := context.Background()

	require.NoError(t, r.AppendRow(ctx, "tools", nil, []string{"1", "Hammer", "12"}))

	g, err := r.LoadOne(ctx, "tools")
	require.NoError(t, err)
	require.Len(t, g.Rows, 1)
	assert.Equal(t, []string{"1", "Hammer", "12"}, g.Rows[0].Cells)
	assert.NotEmpty(t, g.Rows[0].Ref)
}

func TestRelational_AppendRowCreatesTable(t *testing.T) {
	r := newTestRelational(t)
	ctx := context.Background()

	header := []string{"S.No.", "Name", "Stock"}
	require.NoError(t, r.AppendRow(ctx, "paint", header, []string{"1", "Red", ""}))

	names, err := r.ListCategories(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "paint")

	g, err := r.LoadOne(ctx, "paint")
	require.NoError(t, err)
	assert.Equal(t, header, g.Header)
	require.Len(t, g.Rows, 1)
	assert.Equal(t, []string{"1", "Red", ""}, g.Rows[0].Cells)
}

func TestRelational_DeleteRow(t *testing.T) {
	r := newTestRelational(t)
	ctx := context.Background()

	require.NoError(t, r.DeleteRow(ctx, "lab_items", "1"))
	assert.ErrorIs(t, r.DeleteRow(ctx, "lab_items", "1"), core.ErrItemNotFound)

	g, err := r.LoadOne(ctx, "lab_items")
	require.NoError(t, err)
	require.Len(t, g.Rows, 1)
	assert.Equal(t, "Gadget", g.Rows[0].Cell(1))
}

func TestRelational_DeleteAllIsIdempotent(t *testing.T) {
	r := newTestRelational(t)
	ctx := context.Background()

	require.NoError(t, r.DeleteAll(ctx, "lab_items"))
	require.NoError(t, r.DeleteAll(ctx, "lab_items"))

	g, err := r.LoadOne(ctx, "lab_items")
	require.NoError(t, err)
	assert.Empty(t, g.Rows)
	assert.Len(t, g.Header, 3)

	assert.ErrorIs(t, r.DeleteAll(ctx, "nope"), core.ErrCategoryNotFound)
}

func TestRelational_DeleteCategory(t *testing.T) {
	r := newTestRelational(t)
	ctx := context.Background()

	require.NoError(t, r.DeleteCategory(ctx, "tools"))
	assert.ErrorIs(t, r.DeleteCategory(ctx, "tools"), core.ErrCategoryNotFound)

	names, err := r.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lab_items"}, names)
}

func TestRelational_ClosedIsUnavailable(t *testing.T) {
	r := newTestRelational(t)
	require.NoError(t, r.Close())

	_, err := r.LoadAll(context.Background())
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestRelational_UnsupportedDriver(t *testing.T) {
	_, err := OpenRelational(RelationalConfig{Driver: "mysql", URL: "x"})
	assert.Error(t, err)

	_, err = NewRelational(&sql.DB{}, "oracle")
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"pgx undefined table", &pgconn.PgError{Code: "42P01"}, core.ErrCategoryNotFound},
		{"pgx connection failure", &pgconn.PgError{Code: "08006"}, core.ErrStoreUnavailable},
		{"pq undefined table", &pq.Error{Code: "42P01"}, core.ErrCategoryNotFound},
		{"pq connection failure", &pq.Error{Code: "08001"}, core.ErrStoreUnavailable},
		{"sqlite missing table", errors.New("SQL logic error: no such table: tools (1)"), core.ErrCategoryNotFound},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), core.ErrStoreUnavailable},
		{"cancelled", context.Canceled, core.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, "tools")
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	other := errors.New("syntax error")
	assert.Same(t, other, classify(other, "tools"), "unknown errors pass through")
}

func TestPlaceholders(t *testing.T) {
	pg, err := lookupDialect("pgx")
	require.NoError(t, err)
	assert.Equal(t, "$3", pg.placeholder(3))

	lite, err := lookupDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "?", lite.placeholder(3))
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"Electronics, Lab"`, quoteIdentifier("Electronics, Lab"))
	assert.Equal(t, `"a""b"`, quoteIdentifier(`a"b`))
}
