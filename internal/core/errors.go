package core

import "errors"

// Sentinel errors shared by the engine and the store adapters. Adapters wrap
// driver errors with %w so callers can classify with errors.Is.
var (
	ErrCategoryNotFound  = errors.New("category not found")
	ErrSchemaIncomplete  = errors.New("required columns not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidRowIndex   = errors.New("invalid row index")
	ErrColumnMismatch    = errors.New("data length does not match number of columns")
	ErrStoreUnavailable  = errors.New("inventory store unavailable")
	ErrLastCategory      = errors.New("cannot delete the last category")
	ErrWriteBusy         = errors.New("category is busy with another write")
)
