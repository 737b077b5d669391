package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Role keywords, matched as lowercase substrings of header labels.
var (
	identifierKeywords = []string{"s.no", "sno", "sl. no", "serial"}
	itemNameKeywords   = []string{"name", "item", "description", "equipment"}
	stockKeywords      = []string{"quantity", "stock", "list"}
)

// Roles holds the column index of each semantic role, or -1 when absent.
type Roles struct {
	Identifier int
	ItemName   int
	Stock      int
}

// HasItemName reports whether a name column was found.
func (r Roles) HasItemName() bool { return r.ItemName >= 0 }

// InferRoles classifies header columns. Each label is tested against the
// identifier, item-name and stock keyword sets in that order and joins the
// first set it matches; within a role the leftmost column wins.
// A header with no identifier or stock column yields ErrSchemaIncomplete.
func InferRoles(header []string) (Roles, error) {
	roles := Roles{Identifier: -1, ItemName: -1, Stock: -1}

	for i, label := range header {
		l := strings.ToLower(label)
		switch {
		case containsAny(l, identifierKeywords):
			if roles.Identifier < 0 {
				roles.Identifier = i
			}
		case containsAny(l, itemNameKeywords):
			if roles.ItemName < 0 {
				roles.ItemName = i
			}
		case containsAny(l, stockKeywords):
			if roles.Stock < 0 {
				roles.Stock = i
			}
		}
	}

	var missing []string
	if roles.Identifier < 0 {
		missing = append(missing, "identifier")
	}
	if roles.Stock < 0 {
		missing = append(missing, "stock")
	}
	if len(missing) > 0 {
		return roles, fmt.Errorf("%w: missing %s column", ErrSchemaIncomplete, strings.Join(missing, " and "))
	}
	return roles, nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// StockValue reads a stock cell. Only a non-empty run of ASCII digits counts;
// blanks, signs, decimals, padding and text all read as 0.
func StockValue(cell string) int {
	if cell == "" {
		return 0
	}
	for i := 0; i < len(cell); i++ {
		if cell[i] < '0' || cell[i] > '9' {
			return 0
		}
	}
	n, err := strconv.Atoi(cell)
	if err != nil {
		return 0
	}
	return n
}

// ParseQuantity parses a transaction quantity. Quantities must be positive
// integers; surrounding whitespace is tolerated.
func ParseQuantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: quantity is required", ErrInvalidQuantity)
	}
	q, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", ErrInvalidQuantity, raw)
	}
	if q <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidQuantity)
	}
	return q, nil
}
