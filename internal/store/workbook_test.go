package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/stockroom/internal/core"
)

// newTestWorkbook writes an .xlsx with the given sheets (in order) and
// returns a store over it.
func newTestWorkbook(t *testing.T, sheets []string, data map[string][][]any) *Workbook {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory_data.xlsx")

	f := excelize.NewFile()
	defer f.Close()
	for i, name := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range data[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(name, cell, &values))
		}
	}
	require.NoError(t, f.SaveAs(path))

	w, err := NewWorkbook(path, false)
	require.NoError(t, err)
	return w
}

func standardSheets() ([]string, map[string][][]any) {
	return []string{"Electronics, Lab", "Tools"}, map[string][][]any{
		"Electronics, Lab": {
			{"S.No.", "Item Description", "Stock"},
			{1, "Widget", 5},
			{2, "Gadget", ""},
		},
		"Tools": {
			{"Sl. No", "Equipment", "Quantity (in 2023-2024)"},
			{1, "Hammer", 12},
		},
	}
}

func TestWorkbook_LoadAll(t *testing.T) {
	sheets, data := standardSheets()
	w := newTestWorkbook(t, sheets, data)

	snap, err := w.LoadAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Electronics, Lab", "Tools"}, snap.Names())

	name, g, ok := snap.Lookup("Electronics__Lab")
	require.True(t, ok)
	assert.Equal(t, "Electronics, Lab", name)
	assert.Equal(t, []string{"S.No.", "Item Description", "Stock"}, g.Header)
	require.Len(t, g.Rows, 2)
	assert.Equal(t, "2", g.Rows[0].Ref)
	assert.Equal(t, []string{"1", "Widget", "5"}, g.Rows[0].Cells)
	assert.Equal(t, []string{"2", "Gadget", ""}, g.Rows[1].Cells, "short rows are padded")
}

func TestWorkbook_EmptySheetLoadsAsEmptyGrid(t *testing.T) {
	w := newTestWorkbook(t, []string{"Blank", "Tools"}, map[string][][]any{
		"Tools": {{"S.No.", "Name", "Stock"}},
	})

	snap, err := w.LoadAll(context.Background())
	require.NoError(t, err)

	_, g, ok := snap.Lookup("Blank")
	require.True(t, ok)
	assert.True(t, g.Empty())
	assert.Empty(t, g.Rows)
}

func TestWorkbook_MissingFileIsUnavailable(t *testing.T) {
	w, err := NewWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"), false)
	require.NoError(t, err)

	_, err = w.LoadAll(context.Background())
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestWorkbook_CreateWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "inventory_data.xlsx")
	w, err := NewWorkbook(path, true)
	require.NoError(t, err)

	names, err := w.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultSheet}, names)
}

func TestWorkbook_UpdateRowRoundTrip(t *testing.T) {
	sheets, data := standardSheets()
	w := newTestWorkbook(t, sheets, data)
	ctx := context.Background()

	header := []string{"S.No.", "Item Description", "Stock"}
	require.NoError(t, w.UpdateRow(ctx, "Electronics, Lab", header, "2", []string{"1", "Widget", "2"}))

	g, err := w.LoadOne(ctx, "Electronics, Lab")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "Widget", "2"}, g.Rows[0].Cells)
	assert.Equal(t, []string{"2", "Gadget", ""}, g.Rows[1].Cells, "other rows untouched")

	// No temp files left behind by the atomic save
	entries, err := os.ReadDir(filepath.Dir(w.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWorkbook_UpdateRowStoresDigitsAsNumbers(t *testing.T) {
	sheets, data := standardSheets()
	w := newTestWorkbook(t, sheets, data)
	ctx := context.Background()

	require.NoError(t, w.UpdateRow(ctx, "Tools", nil, "2", []string{"1", "Hammer", "7"}))

	f, err := excelize.OpenFile(w.Path())
	require.NoError(t, err)
	defer f.Close()

	typ, err := f.GetCellType("Tools", "C2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	assert.NotEqual(t, excelize.CellTypeInlineString, typ)

	name, err := f.GetCellType("Tools", "B2")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeSharedString, name)
}

func TestWorkbook_UpdateRowRejectsBadRef(t *testing.T) {
	sheets, data := standardSheets()
	w := newTestWorkbook(t, sheets, data)
	ctx := context.Background()

	for _, ref := range []string{"1", "0", "99", "abc"} {
		err := w.UpdateRow(ctx, "Tools", nil, ref, []string{"x"})
		assert.ErrorIs(t, err, core.ErrInvalidRowIndex, "ref %q", ref)
	}

	err := w.UpdateRow(ctx, "Nope", nil, "2", []string{"x"})
	assert.ErrorIs(t, err, core.ErrCategoryNotFound)
}

func TestWorkbook_AppendRow(t *testing.T) {
	sheets, data := standardSheets()
	w := newTestWorkbook(t, sheets, data)
	ctx := context.Background()

	require.NoError(t, w.AppendRow(ctx, "Tools", nil, []string{"2", "Saw", "4"}))

	g, err := w.LoadOne(ctx, "Tools")
	require.NoError(t, err)
	require.Len(t, g.Rows, 2)
	assert.Equal(t, "3", g.Rows[1].Ref)
	assert.Equal(t, []string{"2", "Saw", "4"}, g.Rows[1].Cells)
}

func TestWorkbook_AppendRowCreatesSheet(t *testing.T) {
	sheets, data := standardSheets()
	w := newTestWorkbook(t, sheets, data)
	ctx := context.Background()

	header := []string{"S.No.", "Name", "Stock"}
	require.NoError(t, w.AppendRow(ctx, "Paint", header, []string{"1", "Red", "3"}))

	snap, err := w.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Electronics, Lab", "Tools", "Paint"}, snap.Names())

	_, g, ok := snap.Lookup("Paint")
	require.True(t, ok)
	assert.Equal(t, header, g.Header)
	require.Len(t, g.Rows, 1)
	assert.Equal(t, "2", g.Rows[0].Ref)
}

func TestWorkbook_DeleteRow(t *testing.T) {
	sheets, data := standardSheets()
	w := newTestWorkbook(t, sheets, data)
	ctx := context.Background()

	require.NoError(t, w.DeleteRow(ctx, "Electronics, Lab", "2"))

	g, err := w.LoadOne(ctx, "Electronics, Lab")
	require.NoError(t, err)
	require.Len(t, g.Rows, 1)
	assert.Equal(t, "Gadget", g.Rows[0].Cell(1))
	assert.Equal(t, "2", g.Rows[0].Ref, "rows shift up")

	assert.ErrorIs(t, w.DeleteRow(ctx, "Electronics, Lab", "9"), core.ErrItemNotFound)
}

func TestWorkbook_DeleteAllIsIdempotent(t *testing.T) {
	sheets, data := standardSheets()
	w := newTestWorkbook(t, sheets, data)
	ctx := context.Background()

	require.NoError(t, w.DeleteAll(ctx, "Electronics, Lab"))
	require.NoError(t, w.DeleteAll(ctx, "Electronics, Lab"))

	g, err := w.LoadOne(ctx, "Electronics, Lab")
	require.NoError(t, err)
	assert.Equal(t, []string{"S.No.", "Item Description", "Stock"}, g.Header)
	assert.Empty(t, g.Rows)
}

func TestWorkbook_HeaderBelowBlankRows(t *testing.T) {
	w := newTestWorkbook(t, []string{"Stores"}, map[string][][]any{
		"Stores": {
			{"", "", ""},
			{"S.No.", "Item Description", "Stock"},
			{1, "Widget", 5},
			{2, "Gadget", 1},
		},
	})
	ctx := context.Background()

	// The header row is not a data row.
	assert.ErrorIs(t, w.UpdateRow(ctx, "Stores", nil, "2", []string{"x"}), core.ErrInvalidRowIndex)
	assert.ErrorIs(t, w.DeleteRow(ctx, "Stores", "2"), core.ErrItemNotFound)

	require.NoError(t, w.UpdateRow(ctx, "Stores", nil, "3", []string{"1", "Widget", "4"}))

	require.NoError(t, w.DeleteAll(ctx, "Stores"))
	g, err := w.LoadOne(ctx, "Stores")
	require.NoError(t, err)
	assert.Equal(t, []string{"S.No.", "Item Description", "Stock"}, g.Header)
	assert.Empty(t, g.Rows)

	require.NoError(t, w.AppendRow(ctx, "Stores", nil, []string{"3", "Bolt", "7"}))
	g, err = w.LoadOne(ctx, "Stores")
	require.NoError(t, err)
	assert.Equal(t, []string{"S.No.", "Item Description", "Stock"}, g.Header)
	require.Len(t, g.Rows, 1)
	assert.Equal(t, []string{"3", "Bolt", "7"}, g.Rows[0].Cells)
}

func TestHeaderRow(t *testing.T) {
	assert.Equal(t, 0, headerRow(nil))
	assert.Equal(t, 0, headerRow([][]string{{}, {"", ""}}))
	assert.Equal(t, 1, headerRow([][]string{{"S.No."}}))
	assert.Equal(t, 3, headerRow([][]string{{}, {""}, {"S.No.", "Stock"}}))
}

func TestWorkbook_DeleteCategory(t *testing.T) {
	sheets, data := standardSheets()
	w := newTestWorkbook(t, sheets, data)
	ctx := context.Background()

	require.NoError(t, w.DeleteCategory(ctx, "Tools"))
	assert.ErrorIs(t, w.DeleteCategory(ctx, "Tools"), core.ErrCategoryNotFound)

	names, err := w.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Electronics, Lab"}, names)

	assert.ErrorIs(t, w.DeleteCategory(ctx, "Electronics, Lab"), core.ErrLastCategory)
}

func TestWorkbook_CancelledContext(t *testing.T) {
	sheets, data := standardSheets()
	w := newTestWorkbook(t, sheets, data)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.AppendRow(ctx, "Tools", nil, []string{"3", "Drill", "1"})
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestGridFromRows(t *testing.T) {
	rows := [][]string{
		{},
		{"S.No.", "Item", "Stock"},
		{"1", "Bolt"},
		{"", "", ""},
		{"3", "Nut", "9", "extra"},
	}

	g := gridFromRows(rows)
	assert.Equal(t, []string{"S.No.", "Item", "Stock", ""}, g.Header)
	require.Len(t, g.Rows, 2)
	assert.Equal(t, "3", g.Rows[0].Ref)
	assert.Equal(t, []string{"1", "Bolt", "", ""}, g.Rows[0].Cells)
	assert.Equal(t, "5", g.Rows[1].Ref)
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"5", 5},
		{"0", 0},
		{"007", "007"},
		{"2.5", "2.5"},
		{"Widget", "Widget"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cellValue(tt.in), "cellValue(%q)", tt.in)
	}
}
