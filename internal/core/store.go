package core

import "context"

// Store is the persistence boundary for category grids. Workbook and
// relational adapters implement it; the engine never knows which one it has.
//
// Every mutating call persists exactly one change before returning. Callers
// reload afterwards to observe the result.
type Store interface {
	// Name identifies the backend in logs and status output.
	Name() string

	ListCategories(ctx context.Context) ([]string, error)
	LoadAll(ctx context.Context) (*Snapshot, error)
	LoadOne(ctx context.Context, category string) (Grid, error)

	// UpdateRow overwrites the row at ref with cells.
	UpdateRow(ctx context.Context, category string, header []string, ref string, cells []string) error

	// AppendRow adds a row after the last one, creating the category with
	// header when it does not exist yet.
	AppendRow(ctx context.Context, category string, header []string, cells []string) error

	DeleteRow(ctx context.Context, category string, ref string) error

	// DeleteAll removes every data row and keeps the category. Deleting from
	// an already empty category succeeds.
	DeleteAll(ctx context.Context, category string) error

	DeleteCategory(ctx context.Context, category string) error
	Close() error
}
