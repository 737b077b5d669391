// Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When staff encounter errors, they can quote the error code to support
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Inventory Errors (INV001-INV099)
//
// Business-rule rejections raised by the transaction engine:
//
//	INV001 - Category not found: The category does not exist in the store
//	INV002 - Schema incomplete: No identifier or stock column could be found
//	INV003 - Item not found: No row carries the requested identifier
//	INV004 - Insufficient stock: A sale asked for more than is on hand
//	INV005 - Invalid quantity: Quantity is missing, non-numeric or not positive
//	INV006 - Invalid row index: Edit target is outside the data rows
//	INV007 - Column mismatch: Entry length differs from the category columns
//	INV008 - Last category: A workbook must keep at least one sheet
//	INV009 - Busy: Another write to the same category holds the lock
//
// # Store Errors (STO001-STO099)
//
//	STO001 - Store unavailable: The workbook or database cannot be reached
//	STO002 - Permission denied: The workbook cannot be written
//
// # Database Errors (DB004-DB007)
//
// Connection-level failures from the relational backend, matched by pattern.
//
// # Request Errors (REQ001-REQ002)
//
//	REQ001 - Request was cancelled ("context canceled")
//	REQ002 - Request timed out ("context deadline exceeded")
//
// # Rate Limiting (RATE001)
//
// # Default Error (ERR000)
//
// Fallback when no specific sentinel or pattern matches. Support staff should
// check application logs for the original technical error.
//
// # Matching
//
// Sentinel errors are matched first with errors.Is, so wrapped errors keep
// their code. Anything else is matched case-insensitively using
// strings.Contains against errorPatterns; the first matching pattern wins.

package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// sentinelMessage ties a sentinel error to its user message.
type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages is checked before errorPatterns. Order matters only when
// an error wraps more than one sentinel.
var sentinelMessages = []sentinelMessage{
	{ErrCategoryNotFound, UserMessage{
		Message: "Category not found",
		Action:  "Reload the category list and pick an existing category",
		Code:    "INV001",
	}},
	{ErrSchemaIncomplete, UserMessage{
		Message: "Required columns (S.No., Item Description, Stock) not found.",
		Action:  "Add a serial number and a stock column to the header row",
		Code:    "INV002",
	}},
	{ErrItemNotFound, UserMessage{
		Message: "Item not found.",
		Action:  "Check the item number against the category table",
		Code:    "INV003",
	}},
	{ErrInsufficientStock, UserMessage{
		Message: "Not enough stock",
		Action:  "Lower the quantity or restock first",
		Code:    "INV004",
	}},
	{ErrInvalidQuantity, UserMessage{
		Message: "Quantity must be a whole number greater than zero",
		Action:  "Enter a positive whole number",
		Code:    "INV005",
	}},
	{ErrInvalidRowIndex, UserMessage{
		Message: "Invalid row index.",
		Action:  "Reload the table and edit an existing row",
		Code:    "INV006",
	}},
	{ErrColumnMismatch, UserMessage{
		Message: "Data length does not match number of columns",
		Action:  "Provide one value for every column",
		Code:    "INV007",
	}},
	{ErrLastCategory, UserMessage{
		Message: "The last category cannot be deleted",
		Action:  "Create another category first",
		Code:    "INV008",
	}},
	{ErrWriteBusy, UserMessage{
		Message: "Another update to this category is in progress",
		Action:  "Please wait a moment and try again",
		Code:    "INV009",
	}},
	{ErrStoreUnavailable, UserMessage{
		Message: "Inventory store is unavailable",
		Action:  "Please try again in a few moments",
		Code:    "STO001",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Specific patterns must come before general ones ("context deadline exceeded"
// before "timeout").
var errorPatterns = []errorPattern{
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "The inventory file cannot be written",
			Action:  "Check file permissions and close the workbook in other programs",
			Code:    "STO002",
		},
	},

	// Database connection errors
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// Request errors
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},

	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Wrapped sentinels are recognized first; otherwise known patterns are
// searched case-insensitively. If nothing matches, a generic fallback
// message with code ERR000 is returned.
//
//	msg := MapError(fmt.Errorf("sheet %q: %w", name, ErrCategoryNotFound))
//	// msg.Code == "INV001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// Example output: "Item not found. (Code: INV003). Check the item number against the category table"
//
// This is the primary function for displaying errors to end users.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
// Use this to decide whether to show the raw error or the mapped user message.
//
// Example:
//
//	if IsUserFacing(err) {
//	    showToUser(FormatUserError(err))
//	} else {
//	    log.Error(err) // Log technical error
//	    showToUser("An error occurred. Please try again.")
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}
