package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/stockroom/internal/logging"
)

// UnknownItemName is reported when a category has no name column.
const UnknownItemName = "Unknown"

// Result is the only output of a mutating call. Expected failures come back
// as Success=false with a message; they are never returned as errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`

	// Err carries the classified cause of a rejection for transports that
	// map it to a status code.
	Err error `json:"-"`
}

// stockError reports an oversell with the quantity on hand.
type stockError struct {
	available int
}

func (e *stockError) Error() string {
	return fmt.Sprintf("Not enough stock (Available: %d).", e.available)
}

func (e *stockError) Unwrap() error { return ErrInsufficientStock }

// operation describes one transaction for run.
type operation struct {
	action   JournalAction
	category string
	itemID   string
	quantity int

	// failure is reported for unexpected errors and panics.
	failure string

	// create lets an unknown category through to apply with an empty grid.
	create bool
}

// txn is the state handed to an apply step.
type txn struct {
	category string
	grid     Grid
	exists   bool

	// Filled in by the apply step for the journal.
	action   JournalAction
	oldValue string
	newValue string
}

// run drives Resolve, Validate, Locate, Apply, Persist and Reload for one
// transaction. Apply returns the success message after persisting; any
// error short-circuits to a rejected Result. Panics are recovered into the
// operation's generic failure message.
func (s *Service) run(ctx context.Context, op operation, apply func(ctx context.Context, t *txn) (string, error)) (res Result) {
	start := time.Now()
	logger := logging.WithFields(ctx,
		"op", string(op.action),
		"category", op.category,
		"store", s.store.Name(),
	)
	t := &txn{category: op.category, action: op.action}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in transaction", "panic", r)
			res = Result{Success: false, Message: op.failure, Code: defaultMessage.Code, Err: fmt.Errorf("panic: %v", r)}
		}
		s.record(ctx, op, t, res, time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	// Resolve
	name, grid, ok := s.Snapshot(ctx).Lookup(op.category)
	if !ok && !op.create {
		return s.reject(logger, op, ErrCategoryNotFound)
	}
	if ok {
		t.category = name
	}

	if s.locks != nil {
		release, err := s.locks.Acquire(ctx, t.category)
		if err != nil {
			return s.reject(logger, op, err)
		}
		defer release()

		// Another writer may have finished while we waited; its reload is
		// complete, so re-read before locating.
		_, grid, ok = s.Snapshot(ctx).Lookup(t.category)
		if !ok && !op.create {
			return s.reject(logger, op, ErrCategoryNotFound)
		}
	}

	if ok {
		t.grid = grid.clone()
		t.exists = true
	}

	msg, err := apply(ctx, t)
	if err != nil {
		return s.reject(logger, op, err)
	}

	// Reload
	if err := s.Reload(ctx); err != nil {
		logger.Warn("persisted but reload failed; snapshot marked stale", "error", err)
	}

	logger.Info("transaction applied",
		"item_id", op.itemID,
		"quantity", op.quantity,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Result{Success: true, Message: msg}
}

// reject builds a failed Result. Known errors carry their own message;
// anything else gets the operation's generic failure message.
func (s *Service) reject(logger *slog.Logger, op operation, err error) Result {
	um := MapError(err)
	msg := um.Message

	var se *stockError
	switch {
	case errors.As(err, &se):
		msg = se.Error()
	case !IsUserFacing(err):
		msg = op.failure
	}

	if errors.Is(err, ErrStoreUnavailable) || !IsUserFacing(err) {
		logger.Error("transaction failed", "item_id", op.itemID, "error", err)
	} else {
		logger.Info("transaction rejected", "item_id", op.itemID, "reason", msg)
	}
	return Result{Success: false, Message: msg, Code: um.Code, Err: err}
}

func (s *Service) record(ctx context.Context, op operation, t *txn, res Result, d time.Duration) {
	s.journal.Record(ctx, JournalEntry{
		Action:   t.action,
		Category: t.category,
		ItemID:   op.itemID,
		Quantity: op.quantity,
		OldValue: t.oldValue,
		NewValue: t.newValue,
		Success:  res.Success,
		Message:  res.Message,
		Code:     res.Code,
		Duration: d,
	})
}

// rowCells copies a row padded to width so the write covers every column.
func rowCells(r Row, width int) []string {
	cells := make([]string, max(width, len(r.Cells)))
	copy(cells, r.Cells)
	return cells
}

func itemName(roles Roles, r Row) string {
	if !roles.HasItemName() {
		return UnknownItemName
	}
	return r.Cell(roles.ItemName)
}

// ApplySale removes quantity units of itemID from category. The sale is
// rejected when stock on hand is lower than quantity, so stock never goes
// negative.
func (s *Service) ApplySale(ctx context.Context, category, itemID string, quantity int) Result {
	op := operation{action: ActionSale, category: category, itemID: itemID, quantity: quantity, failure: "Error processing sale"}
	return s.run(ctx, op, func(ctx context.Context, t *txn) (string, error) {
		return s.adjustStock(ctx, t, itemID, quantity, func(current int) (int, error) {
			if current < quantity {
				return 0, &stockError{available: current}
			}
			return current - quantity, nil
		}, "Sold %d of %s.")
	})
}

// ApplyRestock adds quantity units of itemID to category. Non-numeric
// current stock counts as zero.
func (s *Service) ApplyRestock(ctx context.Context, category, itemID string, quantity int) Result {
	op := operation{action: ActionRestock, category: category, itemID: itemID, quantity: quantity, failure: "Error processing restock"}
	return s.run(ctx, op, func(ctx context.Context, t *txn) (string, error) {
		return s.adjustStock(ctx, t, itemID, quantity, func(current int) (int, error) {
			return addStock(current, quantity)
		}, "Restocked %d of %s.")
	})
}

// addStock sums two non-negative stock values, rejecting totals that do not
// fit in an int.
func addStock(current, quantity int) (int, error) {
	if quantity > math.MaxInt-current {
		return 0, fmt.Errorf("%w: stock of %d cannot take %d more", ErrInvalidQuantity, current, quantity)
	}
	return current + quantity, nil
}

func (s *Service) adjustStock(ctx context.Context, t *txn, itemID string, quantity int, next func(int) (int, error), format string) (string, error) {
	if quantity <= 0 {
		return "", fmt.Errorf("%w: must be greater than zero", ErrInvalidQuantity)
	}

	// Validate
	roles, err := InferRoles(t.grid.Header)
	if err != nil {
		return "", err
	}

	// Locate
	idx := t.grid.findByID(roles.Identifier, itemID)
	if idx < 0 {
		return "", ErrItemNotFound
	}
	row := t.grid.Rows[idx]

	// Apply
	current := StockValue(row.Cell(roles.Stock))
	updated, err := next(current)
	if err != nil {
		return "", err
	}
	cells := rowCells(row, len(t.grid.Header))
	cells[roles.Stock] = strconv.Itoa(updated)
	t.oldValue, t.newValue = row.Cell(roles.Stock), cells[roles.Stock]

	// Persist
	if err := s.store.UpdateRow(ctx, t.category, t.grid.Header, row.Ref, cells); err != nil {
		return "", err
	}
	return fmt.Sprintf(format, quantity, itemName(roles, row)), nil
}

// EntryRequest adds, merges or overwrites one row.
type EntryRequest struct {
	Category string

	// Header names the columns when the category does not exist yet or has
	// no header row. Ignored when the category already has a header.
	Header []string

	// Values are aligned with the header.
	Values []string

	// RowIndex, when positive, selects the row to overwrite. It counts
	// rows as displayed: 1 is the header, 2 the first data row.
	RowIndex int
}

// ApplyEntry writes one row to a category.
//
// With RowIndex set the row at that position is overwritten wholesale.
// Otherwise the first row whose identifier matches, or whose item name
// matches ignoring case, has the new stock added to it; when nothing matches
// the values are appended. An unknown category is created from Header.
func (s *Service) ApplyEntry(ctx context.Context, req EntryRequest) Result {
	op := operation{action: ActionEntryAdd, category: req.Category, failure: "Error updating inventory", create: len(req.Header) > 0}
	return s.run(ctx, op, func(ctx context.Context, t *txn) (string, error) {
		header := t.grid.Header
		if len(header) == 0 {
			header = req.Header
		}

		roles, err := InferRoles(header)
		if err != nil {
			return "", err
		}
		if len(req.Values) != len(header) {
			return "", fmt.Errorf("%w: got %d values for %d columns", ErrColumnMismatch, len(req.Values), len(header))
		}
		values := append([]string(nil), req.Values...)

		if req.RowIndex > 0 {
			pos := req.RowIndex - 2
			if !t.exists || pos < 0 || pos >= len(t.grid.Rows) {
				return "", fmt.Errorf("%w: %d", ErrInvalidRowIndex, req.RowIndex)
			}
			t.action = ActionEntryUpdate
			row := t.grid.Rows[pos]
			t.oldValue, t.newValue = strings.Join(row.Cells, ","), strings.Join(values, ",")
			if err := s.store.UpdateRow(ctx, t.category, header, row.Ref, values); err != nil {
				return "", err
			}
			return "Entry updated successfully.", nil
		}

		if idx := matchEntry(t.grid, roles, values); idx >= 0 {
			row := t.grid.Rows[idx]
			merged, err := addStock(StockValue(row.Cell(roles.Stock)), StockValue(values[roles.Stock]))
			if err != nil {
				return "", err
			}
			cells := rowCells(row, len(header))
			cells[roles.Stock] = strconv.Itoa(merged)

			t.action = ActionEntryMerge
			t.oldValue, t.newValue = row.Cell(roles.Stock), cells[roles.Stock]
			if err := s.store.UpdateRow(ctx, t.category, header, row.Ref, cells); err != nil {
				return "", err
			}
			return "Stock updated successfully.", nil
		}

		t.newValue = strings.Join(values, ",")
		if err := s.store.AppendRow(ctx, t.category, header, values); err != nil {
			return "", err
		}
		return "Entry added successfully.", nil
	})
}

// matchEntry finds the row an added entry merges into: same identifier, or
// same item name ignoring case. Blank identifiers and names never match.
func matchEntry(g Grid, roles Roles, values []string) int {
	id := strings.TrimSpace(values[roles.Identifier])
	name := ""
	if roles.HasItemName() {
		name = strings.TrimSpace(values[roles.ItemName])
	}

	for i, r := range g.Rows {
		if id != "" && strings.TrimSpace(r.Cell(roles.Identifier)) == id {
			return i
		}
		if name != "" && strings.EqualFold(strings.TrimSpace(r.Cell(roles.ItemName)), name) {
			return i
		}
	}
	return -1
}

// DeleteEntry removes the row whose identifier equals itemID.
func (s *Service) DeleteEntry(ctx context.Context, category, itemID string) Result {
	op := operation{action: ActionEntryDelete, category: category, itemID: itemID, failure: "Error deleting entry"}
	return s.run(ctx, op, func(ctx context.Context, t *txn) (string, error) {
		roles, err := InferRoles(t.grid.Header)
		if err != nil {
			return "", err
		}
		idx := t.grid.findByID(roles.Identifier, itemID)
		if idx < 0 {
			return "", ErrItemNotFound
		}
		row := t.grid.Rows[idx]
		t.oldValue = strings.Join(row.Cells, ",")
		if err := s.store.DeleteRow(ctx, t.category, row.Ref); err != nil {
			return "", err
		}
		return "Entry deleted successfully.", nil
	})
}

// DeleteAll removes every data row of a category and keeps its header.
// Clearing an empty category succeeds.
func (s *Service) DeleteAll(ctx context.Context, category string) Result {
	op := operation{action: ActionDeleteAll, category: category, failure: "Error deleting entries"}
	return s.run(ctx, op, func(ctx context.Context, t *txn) (string, error) {
		t.oldValue = strconv.Itoa(len(t.grid.Rows)) + " rows"
		if err := s.store.DeleteAll(ctx, t.category); err != nil {
			return "", err
		}
		return fmt.Sprintf("All entries in '%s' deleted successfully.", t.category), nil
	})
}

// DeleteCategory removes a category with all of its rows.
func (s *Service) DeleteCategory(ctx context.Context, category string) Result {
	op := operation{action: ActionCategoryDelete, category: category, failure: "Error deleting category"}
	return s.run(ctx, op, func(ctx context.Context, t *txn) (string, error) {
		t.oldValue = strconv.Itoa(len(t.grid.Rows)) + " rows"
		if err := s.store.DeleteCategory(ctx, t.category); err != nil {
			return "", err
		}
		return "Category deleted successfully.", nil
	})
}

// ForceReload reloads the snapshot on request and records it in the journal.
func (s *Service) ForceReload(ctx context.Context) Result {
	start := time.Now()
	res := Result{Success: true, Message: "Inventory reloaded."}
	if err := s.Reload(ctx); err != nil {
		um := MapError(err)
		res = Result{Success: false, Message: um.Message, Code: um.Code, Err: err}
	}
	s.journal.Record(ctx, JournalEntry{
		Action:   ActionReload,
		Success:  res.Success,
		Message:  res.Message,
		Code:     res.Code,
		Duration: time.Since(start),
	})
	return res
}
