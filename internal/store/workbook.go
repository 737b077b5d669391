package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/stockroom/internal/core"
)

// DefaultSheet is the sheet a freshly created workbook starts with.
const DefaultSheet = "Inventory"

// Workbook stores one category per sheet of a single .xlsx file. The first
// non-blank row of a sheet is the header; data rows follow it.
//
// Every write loads the whole file, applies one change and saves the whole
// file back through a temp file and rename. Writes are serialized by a
// process-level mutex; nothing protects the file from other processes.
type Workbook struct {
	path string
	mu   sync.RWMutex
}

// NewWorkbook opens the store at path. With create set a missing file is
// created with a single empty sheet; otherwise it is reported as
// unavailable on first use, not here.
func NewWorkbook(path string, create bool) (*Workbook, error) {
	w := &Workbook{path: path}
	if create {
		if err := w.ensure(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Name implements core.Store.
func (w *Workbook) Name() string { return "workbook:" + filepath.Base(w.path) }

// Path returns the backing file path.
func (w *Workbook) Path() string { return w.path }

// Close implements core.Store. The file is never held open between calls.
func (w *Workbook) Close() error { return nil }

func (w *Workbook) ensure() error {
	if _, err := os.Stat(w.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("%w: create data directory: %w", core.ErrStoreUnavailable, err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), DefaultSheet); err != nil {
		return fmt.Errorf("name default sheet: %w", err)
	}
	if err := w.save(f); err != nil {
		return err
	}
	slog.Info("created empty workbook", "path", w.path)
	return nil
}

// open loads the whole workbook. The caller must Close it.
func (w *Workbook) open(ctx context.Context) (*excelize.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", core.ErrStoreUnavailable, w.path, err)
	}
	return f, nil
}

// save writes f next to the target and renames it into place, so readers
// only ever see a complete file.
func (w *Workbook) save(f *excelize.File) error {
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".inventory-*.xlsx.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", core.ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("%w: replace workbook: %w", core.ErrStoreUnavailable, err)
	}
	return nil
}

// modify runs one load-change-save cycle under the write lock.
func (w *Workbook) modify(ctx context.Context, fn func(f *excelize.File) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := fn(f); err != nil {
		return err
	}
	return w.save(f)
}

// ListCategories implements core.Store.
func (w *Workbook) ListCategories(ctx context.Context) ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	f, err := w.open(ctx)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// LoadAll implements core.Store.
func (w *Workbook) LoadAll(ctx context.Context) (*core.Snapshot, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	f, err := w.open(ctx)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := f.GetSheetList()
	grids := make(map[string]core.Grid, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		grids[name] = gridFromRows(rows)
	}
	return core.NewSnapshot(w.Name(), names, grids), nil
}

// LoadOne implements core.Store.
func (w *Workbook) LoadOne(ctx context.Context, category string) (core.Grid, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	f, err := w.open(ctx)
	if err != nil {
		return core.Grid{}, err
	}
	defer f.Close()

	if !hasSheet(f, category) {
		return core.Grid{}, fmt.Errorf("sheet %q: %w", category, core.ErrCategoryNotFound)
	}
	rows, err := f.GetRows(category)
	if err != nil {
		return core.Grid{}, fmt.Errorf("read sheet %q: %w", category, err)
	}
	return gridFromRows(rows), nil
}

// gridFromRows turns raw sheet rows into a grid. Blank rows are skipped;
// the first non-blank row is the header. Every row, header included, is
// padded to the widest row. Refs are 1-based sheet row numbers.
func gridFromRows(rows [][]string) core.Grid {
	width := 0
	for _, r := range rows {
		if !blank(r) {
			width = max(width, len(r))
		}
	}

	var g core.Grid
	for i, r := range rows {
		if blank(r) {
			continue
		}
		cells := make([]string, width)
		copy(cells, r)
		if g.Header == nil {
			g.Header = cells
			continue
		}
		g.Rows = append(g.Rows, core.Row{Ref: strconv.Itoa(i + 1), Cells: cells})
	}
	return g
}

// headerRow returns the 1-based sheet row of the header, or 0 when every
// row is blank.
func headerRow(rows [][]string) int {
	for i, r := range rows {
		if !blank(r) {
			return i + 1
		}
	}
	return 0
}

func blank(r []string) bool {
	for _, c := range r {
		if c != "" {
			return false
		}
	}
	return true
}

func hasSheet(f *excelize.File, name string) bool {
	return slices.Contains(f.GetSheetList(), name)
}

// UpdateRow implements core.Store. ref must name a row below the header and
// within the used range.
func (w *Workbook) UpdateRow(ctx context.Context, category string, header []string, ref string, cells []string) error {
	return w.modify(ctx, func(f *excelize.File) error {
		if !hasSheet(f, category) {
			return fmt.Errorf("sheet %q: %w", category, core.ErrCategoryNotFound)
		}
		rows, err := f.GetRows(category)
		if err != nil {
			return fmt.Errorf("read sheet %q: %w", category, err)
		}
		row, err := parseRowRef(ref, headerRow(rows), len(rows))
		if err != nil {
			return err
		}

		// Clear anything past the new values so the overwrite is wholesale.
		width := max(len(cells), len(rows[row-1]))
		return writeRow(f, category, row, cells, width)
	})
}

// AppendRow implements core.Store.
func (w *Workbook) AppendRow(ctx context.Context, category string, header []string, cells []string) error {
	return w.modify(ctx, func(f *excelize.File) error {
		if !hasSheet(f, category) {
			if _, err := f.NewSheet(category); err != nil {
				return fmt.Errorf("create sheet %q: %w", category, err)
			}
			slog.Info("created sheet", "category", category)
		}

		rows, err := f.GetRows(category)
		if err != nil {
			return fmt.Errorf("read sheet %q: %w", category, err)
		}
		if headerRow(rows) == 0 {
			if err := writeRow(f, category, 1, header, len(header)); err != nil {
				return err
			}
		}
		next := max(len(rows)+1, 2)
		return writeRow(f, category, next, cells, len(cells))
	})
}

// DeleteRow implements core.Store. Rows below ref shift up by one.
func (w *Workbook) DeleteRow(ctx context.Context, category string, ref string) error {
	return w.modify(ctx, func(f *excelize.File) error {
		if !hasSheet(f, category) {
			return fmt.Errorf("sheet %q: %w", category, core.ErrCategoryNotFound)
		}
		rows, err := f.GetRows(category)
		if err != nil {
			return fmt.Errorf("read sheet %q: %w", category, err)
		}
		row, err := parseRowRef(ref, headerRow(rows), len(rows))
		if err != nil {
			return fmt.Errorf("%w: %w", core.ErrItemNotFound, err)
		}
		return f.RemoveRow(category, row)
	})
}

// DeleteAll implements core.Store. The header row and any blank rows above
// it are kept.
func (w *Workbook) DeleteAll(ctx context.Context, category string) error {
	return w.modify(ctx, func(f *excelize.File) error {
		if !hasSheet(f, category) {
			return fmt.Errorf("sheet %q: %w", category, core.ErrCategoryNotFound)
		}
		rows, err := f.GetRows(category)
		if err != nil {
			return fmt.Errorf("read sheet %q: %w", category, err)
		}
		header := headerRow(rows)
		for r := len(rows); r > header; r-- {
			if err := f.RemoveRow(category, r); err != nil {
				return fmt.Errorf("remove row %d: %w", r, err)
			}
		}
		return nil
	})
}

// DeleteCategory implements core.Store. A workbook keeps at least one sheet.
func (w *Workbook) DeleteCategory(ctx context.Context, category string) error {
	return w.modify(ctx, func(f *excelize.File) error {
		sheets := f.GetSheetList()
		if !slices.Contains(sheets, category) {
			return fmt.Errorf("sheet %q: %w", category, core.ErrCategoryNotFound)
		}
		if len(sheets) == 1 {
			return core.ErrLastCategory
		}
		if err := f.DeleteSheet(category); err != nil {
			return fmt.Errorf("delete sheet %q: %w", category, err)
		}
		f.SetActiveSheet(0)
		return nil
	})
}

// parseRowRef validates a sheet row reference against the data rows, which
// lie between the header row and lastRow.
func parseRowRef(ref string, header, lastRow int) (int, error) {
	row, err := strconv.Atoi(ref)
	if err != nil || row <= max(header, 1) || row > lastRow {
		return 0, fmt.Errorf("%w: row %q", core.ErrInvalidRowIndex, ref)
	}
	return row, nil
}

// writeRow writes cells at row starting in column A and blanks the columns
// after them up to width.
func writeRow(f *excelize.File, sheet string, row int, cells []string, width int) error {
	values := make([]any, max(width, len(cells)))
	for i := range values {
		if i < len(cells) {
			values[i] = cellValue(cells[i])
		}
	}
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, start, &values); err != nil {
		return fmt.Errorf("write row %d of %q: %w", row, sheet, err)
	}
	return nil
}

// cellValue stores digit-only values as numbers so stock columns stay
// numeric in spreadsheet tools. Identifiers with leading zeros stay text.
func cellValue(s string) any {
	if s == "" {
		return nil
	}
	if core.StockValue(s) == 0 && s != "0" {
		return s
	}
	if len(s) > 1 && s[0] == '0' {
		return s
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	return n
}
