// Package core provides the watchlist import/export pipeline.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Import Errors (IMP001-IMP099)
//
// Errors related to preview and commit batches:
//
//	IMP001 - Too many rows: The import exceeds the row limit
//	         Action: Split the file into smaller imports
//	         Patterns: "too many rows", "too many items"
//
//	IMP002 - System busy: Too many imports in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many imports"
//
//	IMP003 - Unknown source: The import source is not supported
//	         Action: Choose one of the listed import sources
//	         Patterns: "unknown import source"
//
//	IMP004 - Entry missing: The matched watchlist entry no longer exists
//	         Action: Run the preview again before importing
//	         Patterns: "entry not found"
//
//	IMP005 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	IMP006 - Request timeout: Request timed out
//	         Action: Try a smaller import or check your connection
//	         Patterns: "context deadline exceeded"
//
// # Catalog Errors (CAT001-CAT099)
//
// Errors from the title search provider:
//
//	CAT001 - Catalog unavailable: Title search is unavailable
//	         Action: Try again later or import without matching
//	         Patterns: "catalog unavailable"
//
//	CAT002 - No match: No catalog match was found for this title
//	         Action: Check the spelling or add the year
//	         Patterns: "no catalog match"
//
// # File Errors (FILE001-FILE099)
//
// Errors related to uploaded import files:
//
//	FILE001 - File too large: File exceeds the upload size limit
//	          Action: Split the file into smaller chunks
//	          Patterns: "request body too large"
//
//	FILE002 - Malformed file: File is not valid CSV or JSON
//	          Action: Export the file again from its source
//	          Patterns: "malformed import file"
//
//	FILE003 - Missing column: The file has no title column
//	          Action: Add a title column or choose the matching source
//	          Patterns: "missing title column"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a file to import
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The uploaded file has no rows
//	          Action: Please upload a file with data rows
//	          Patterns: "contains no rows"
//
// # Validation Errors (VAL001-VAL099)
//
// Errors related to row and request validation:
//
//	VAL001 - Out of range: A year, rating or confidence is out of range
//	         Action: Ratings run 0-10 and years 1800-2100
//	         Patterns: "out of range"
//
//	VAL002 - Invalid number: Invalid number format detected
//	         Action: Use plain digits for years and ratings
//	         Patterns: "invalid number"
//
//	VAL003 - Required field: Required field is empty
//	         Action: Ensure every row has a title
//	         Patterns: "required field"
//
//	VAL004 - Invalid enum: Value is not in the allowed list
//	         Action: Check the allowed values for this field
//	         Patterns: "invalid enum"
//
//	VAL005 - Too long: A text field is too long
//	         Action: Shorten titles to 500 and notes to 2000 characters
//	         Patterns: "must be at most"
//
//	VAL006 - Bad identifier: An owner or entry ID is not a valid UUID
//	         Action: Check the ID in the request URL
//	         Patterns: "invalid uuid"
//
//	VAL000 - Invalid request: Any other validation failure
//	         Action: Fix the listed fields and resend
//	         Patterns: "validation failed"
//
// # Database Errors (DB001-DB099)
//
// Errors related to database operations and constraints:
//
//	DB001 - Duplicate key: This title is already on the watchlist
//	        Action: Preview again so the duplicate can be resolved
//	        Patterns: "duplicate key"
//
//	DB002 - Unique constraint: This value must be unique but already exists
//	        Action: Preview again so the duplicate can be resolved
//	        Patterns: "unique constraint", "violates unique"
//
//	DB004 - Connection refused: Unable to connect to database
//	        Action: Please try again in a few moments
//	        Patterns: "connection refused"
//
//	DB005 - Connection reset: Database connection was interrupted
//	        Action: Please try again
//	        Patterns: "connection reset"
//
//	DB006 - Timeout: Operation timed out
//	        Action: Try a smaller import or try again later
//	        Patterns: "timeout"
//
//	DB007 - Deadlock: Database was busy with conflicting operations
//	        Action: Please try again
//	        Patterns: "deadlock"
//
// # Rate Limiting (RATE001-RATE099)
//
// Errors related to request throttling:
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones. Multiple patterns can map to the same code
// (e.g., DB002 matches both "unique constraint" and "violates unique").
//
// # For Support Staff
//
// When a user reports an error code:
//  1. Look up the code in this reference
//  2. Check the associated patterns to understand what triggered it
//  3. Review the suggested action to guide the user
//  4. If ERR000, check application logs for the original technical error
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Patterns are matched using strings.Contains, so partial matches work.
// The first matching pattern wins, so order matters:
//   - More specific patterns should come before general ones
//   - Multiple patterns can map to the same error code
//
// To add a new error pattern:
//  1. Choose the appropriate category and code range
//  2. Add the pattern in the correct position (specific before general)
//  3. Update the package documentation at the top of this file
var errorPatterns = []errorPattern{
	// =========================================================================
	// Import Errors (IMP001-IMP006)
	// These errors occur while previewing or committing a batch.
	// =========================================================================
	{
		pattern: "too many rows",
		msg: UserMessage{
			Message: "The import has too many rows",
			Action:  "Split the file into smaller imports",
			Code:    "IMP001",
		},
	},
	{
		pattern: "too many items",
		msg: UserMessage{
			Message: "The import has too many items",
			Action:  "Split the file into smaller imports",
			Code:    "IMP001",
		},
	},
	{
		pattern: "too many imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP002",
		},
	},
	{
		pattern: "unknown import source",
		msg: UserMessage{
			Message: "This import source is not supported",
			Action:  "Choose one of the listed import sources",
			Code:    "IMP003",
		},
	},
	{
		pattern: "entry not found",
		msg: UserMessage{
			Message: "The matched watchlist entry no longer exists",
			Action:  "Run the preview again before importing",
			Code:    "IMP004",
		},
	},

	// =========================================================================
	// Catalog Errors (CAT001-CAT002)
	// These errors come from the title search provider.
	// =========================================================================
	{
		pattern: "catalog unavailable",
		msg: UserMessage{
			Message: "Title search is unavailable right now",
			Action:  "Try again later or import without matching",
			Code:    "CAT001",
		},
	},
	{
		pattern: "no catalog match",
		msg: UserMessage{
			Message: "No catalog match was found for this title",
			Action:  "Check the spelling or add the release year",
			Code:    "CAT002",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// These errors occur when reading uploaded files.
	// =========================================================================
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the upload size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "malformed import file",
		msg: UserMessage{
			Message: "File is not valid CSV or JSON",
			Action:  "Export the file again from its source",
			Code:    "FILE002",
		},
	},
	{
		pattern: "missing title column",
		msg: UserMessage{
			Message: "The file has no title column",
			Action:  "Add a title column or choose the matching source",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to import",
			Code:    "FILE004",
		},
	},
	{
		pattern: "contains no rows",
		msg: UserMessage{
			Message: "The uploaded file has no rows",
			Action:  "Please upload a file with data rows",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Validation Errors (VAL000-VAL006)
	// These errors occur when rows or requests fail validation.
	// =========================================================================
	{
		pattern: "out of range",
		msg: UserMessage{
			Message: "A value is out of range",
			Action:  "Ratings run 0-10 and years 1800-2100",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Use plain digits for years and ratings",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Ensure every row has a title",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid enum",
		msg: UserMessage{
			Message: "Value is not in the allowed list",
			Action:  "Check the allowed values for this field",
			Code:    "VAL004",
		},
	},
	{
		pattern: "must be at most",
		msg: UserMessage{
			Message: "A text field is too long",
			Action:  "Shorten titles to 500 and notes to 2000 characters",
			Code:    "VAL005",
		},
	},
	{
		pattern: "invalid uuid",
		msg: UserMessage{
			Message: "The ID is not valid",
			Action:  "Check the ID in the request URL",
			Code:    "VAL006",
		},
	},
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "The request has invalid fields",
			Action:  "Fix the listed fields and resend",
			Code:    "VAL000",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB007)
	// These errors occur when storage rejects a write or is unreachable.
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "This title is already on the watchlist",
			Action:  "Preview again so the duplicate can be resolved",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Preview again so the duplicate can be resolved",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Preview again so the duplicate can be resolved",
			Code:    "DB002",
		},
	},
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
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller import or try again later",
			Code:    "DB006",
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

	// =========================================================================
	// Request Errors (IMP005-IMP006)
	// These errors occur when the caller cancels or the request times out.
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "IMP005",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller import or check your connection",
			Code:    "IMP006",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// These errors occur when request limits are exceeded.
	// =========================================================================
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
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := errors.New("duplicate key violation")
//	msg := MapError(err)
//	// msg.Code == "DB001"
//	// msg.Message == "This title is already on the watchlist"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
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
// Example output: "Title search is unavailable right now (Code: CAT001). Try again later or import without matching"
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

// WrapWithUserMessage wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// The returned UserError preserves the original technical error for logging via Unwrap(),
// while providing a clean user message via Error().
//
// Returns nil if err is nil.
//
// Example:
//
//	ue := NewUserError(dbErr)
//	log.Error(ue.Technical)          // Log original error
//	fmt.Println(ue.Error())           // Show "This title is already on the watchlist"
//	fmt.Println(ue.User.Code)         // Show "DB001"
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
