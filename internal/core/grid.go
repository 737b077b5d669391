package core

import (
	"strings"
	"time"
)

// Row is one data row of a category. Ref locates the row in its store: the
// sheet row number for workbooks, the id column for tables. It is never part
// of the user-visible cells.
type Row struct {
	Ref   string   `json:"ref"`
	Cells []string `json:"cells"`
}

// Cell returns the value at column i, or "" past the end of a short row.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// Grid is a category's header row plus its data rows. A category with no
// content has an empty header and no rows.
type Grid struct {
	Header []string `json:"header"`
	Rows   []Row    `json:"rows"`
}

// Empty reports whether the grid has no header.
func (g Grid) Empty() bool { return len(g.Header) == 0 }

// Values renders the grid the way clients consume it: row 0 is the header,
// every data row is padded to the header width.
func (g Grid) Values() [][]string {
	if g.Empty() && len(g.Rows) == 0 {
		return [][]string{}
	}
	out := make([][]string, 0, len(g.Rows)+1)
	out = append(out, append([]string(nil), g.Header...))
	width := len(g.Header)
	for _, r := range g.Rows {
		cells := make([]string, max(width, len(r.Cells)))
		copy(cells, r.Cells)
		out = append(out, cells)
	}
	return out
}

// findByID returns the index of the first row whose identifier cell equals
// id after trimming, or -1.
func (g Grid) findByID(col int, id string) int {
	id = strings.TrimSpace(id)
	for i, r := range g.Rows {
		if strings.TrimSpace(r.Cell(col)) == id {
			return i
		}
	}
	return -1
}

// clone returns a deep copy so transactions never mutate a published snapshot.
func (g Grid) clone() Grid {
	c := Grid{Header: append([]string(nil), g.Header...), Rows: make([]Row, len(g.Rows))}
	for i, r := range g.Rows {
		c.Rows[i] = Row{Ref: r.Ref, Cells: append([]string(nil), r.Cells...)}
	}
	return c
}

// Snapshot is a full load of every category at one point in time. It is never
// modified after construction; a reload replaces it.
type Snapshot struct {
	names    []string
	grids    map[string]Grid
	LoadedAt time.Time
	Source   string
}

// NewSnapshot builds a snapshot. names fixes the category order; a name with
// no entry in grids loads as an empty grid.
func NewSnapshot(source string, names []string, grids map[string]Grid) *Snapshot {
	s := &Snapshot{
		names:    append([]string(nil), names...),
		grids:    make(map[string]Grid, len(names)),
		LoadedAt: time.Now().UTC(),
		Source:   source,
	}
	for _, n := range names {
		s.grids[n] = grids[n]
	}
	return s
}

// EmptySnapshot is what readers see when the store could not be loaded.
func EmptySnapshot(source string) *Snapshot {
	return NewSnapshot(source, nil, nil)
}

// Names returns category names in store order.
func (s *Snapshot) Names() []string {
	return append([]string(nil), s.names...)
}

// Categories lists every category as a sanitized/original pair.
func (s *Snapshot) Categories() []CategoryRef {
	return Refs(s.names)
}

// Lookup finds a category by sanitized token, falling back to an exact
// original name. It returns the original name and its grid.
func (s *Snapshot) Lookup(name string) (string, Grid, bool) {
	if original, err := Resolve(name, s.names); err == nil {
		return original, s.grids[original], true
	}
	if g, ok := s.grids[name]; ok {
		return name, g, true
	}
	return "", Grid{}, false
}

// Len returns the number of categories.
func (s *Snapshot) Len() int { return len(s.names) }
