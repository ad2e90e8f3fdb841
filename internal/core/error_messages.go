// Package core provides the business logic for bulk lead imports.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
// Errors raised while an uploaded file is decoded. The session is untouched.
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Action: Split the file into smaller files
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Unsupported format: File type is not supported
//	          Action: Upload a .csv, .json or .xlsx file
//	          Patterns: "unsupported file format"
//
//	FILE003 - Malformed file: File could not be read
//	          Action: Check the file opens correctly and re-export it
//	          Patterns: "malformed", "nested values", "workbook", "unexpected end of input"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a file to upload
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The uploaded file has no data rows
//	          Action: Upload a file with a header row and at least one data row
//	          Patterns: "empty file", "no data rows"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Validation failed: Some rows have errors
//	         Action: Fix the mapping or the file and re-validate
//	         Patterns: "validation failed"
//
//	VAL002 - Unknown field: The chosen target field does not exist
//	         Action: Pick a field from the list or skip the column
//	         Patterns: "unknown field"
//
//	VAL003 - Unknown column: The column is not in the uploaded file
//	         Action: Check the column name matches the file header exactly
//	         Patterns: "unknown column"
//
//	VAL004 - Invalid mapping request: The mapping request was incomplete
//	         Action: Provide both sourceColumn and targetField
//	         Patterns: "invalid mapping request"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Session expired: Import session not found
//	         Action: The session may have expired. Please upload the file again
//	         Patterns: "import session not found"
//
//	IMP002 - Wrong step: This action is not available at the current step
//	         Action: Go back or forward to the right step first
//	         Patterns: "invalid stage transition"
//
//	IMP003 - System busy: Too many imports in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent imports"
//
//	IMP004 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	IMP005 - History unavailable: Import history is not configured
//	         Action: Configure a database to keep import history
//	         Patterns: "import history unavailable"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A lead with this ID already exists
//	DB002 - Unique constraint: A value must be unique but already exists
//	DB003 - Foreign key: Referenced record does not exist
//	DB004 - Connection refused: Unable to connect to database
//	DB005 - Connection reset: Database connection was interrupted
//	DB006 - Timeout: Operation timed out
//	DB007 - Deadlock: Database was busy with conflicting operations
//
// # Rate Limiting (RATE001-RATE099)
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
// defined before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}
	msgMalformed = UserMessage{
		Message: "File could not be read",
		Action:  "Check the file opens correctly and re-export it",
		Code:    "FILE003",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file has no data rows",
		Action:  "Upload a file with a header row and at least one data row",
		Code:    "FILE005",
	}
	msgUniqueConstraint = UserMessage{
		Message: "A value must be unique but already exists",
		Action:  "Check for duplicate entries in your file",
		Code:    "DB002",
	}
	msgForeignKey = UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Contact support; the import history may be inconsistent",
		Code:    "DB003",
	}
)

// errorPatterns maps technical error patterns (lowercase) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// File errors (FILE001-FILE005)
	{pattern: "file too large", msg: msgFileTooLarge},
	{pattern: "request body too large", msg: msgFileTooLarge},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "File type is not supported",
			Action:  "Upload a .csv, .json or .xlsx file",
			Code:    "FILE002",
		},
	},
	{pattern: "malformed", msg: msgMalformed},
	{pattern: "nested values", msg: msgMalformed},
	{pattern: "workbook", msg: msgMalformed},
	{pattern: "unexpected end of input", msg: msgMalformed},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},
	{pattern: "empty file", msg: msgEmptyFile},
	{pattern: "no data rows", msg: msgEmptyFile},

	// Validation errors (VAL001-VAL004)
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "Some rows have errors",
			Action:  "Fix the mapping or the file and re-validate",
			Code:    "VAL001",
		},
	},
	{
		pattern: "unknown field",
		msg: UserMessage{
			Message: "The chosen target field does not exist",
			Action:  "Pick a field from the list or skip the column",
			Code:    "VAL002",
		},
	},
	{
		pattern: "unknown column",
		msg: UserMessage{
			Message: "The column is not in the uploaded file",
			Action:  "Check the column name matches the file header exactly",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid mapping request",
		msg: UserMessage{
			Message: "The mapping request was incomplete",
			Action:  "Provide both sourceColumn and targetField",
			Code:    "VAL004",
		},
	},

	// Import errors (IMP001-IMP003, IMP005). IMP004 sits after the database
	// timeouts below.
	{
		pattern: "import session not found",
		msg: UserMessage{
			Message: "Import session not found",
			Action:  "The session may have expired. Please upload the file again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "invalid stage transition",
		msg: UserMessage{
			Message: "This action is not available at the current step",
			Action:  "Go back or forward to the right step first",
			Code:    "IMP002",
		},
	},
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "Too many imports in progress",
			Action:  "Please wait a moment and try again",
			Code:    "IMP003",
		},
	},
	{
		pattern: "import history unavailable",
		msg: UserMessage{
			Message: "Import history is not configured",
			Action:  "Configure a database to keep import history",
			Code:    "IMP005",
		},
	},

	// Database errors (DB001-DB007)
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A lead with this ID already exists",
			Action:  "Retry the import; a new ID is generated for every lead",
			Code:    "DB001",
		},
	},
	{pattern: "unique constraint", msg: msgUniqueConstraint},
	{pattern: "violates unique", msg: msgUniqueConstraint},
	{pattern: "foreign key constraint", msg: msgForeignKey},
	{pattern: "violates foreign key", msg: msgForeignKey},
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
			Action:  "Try importing a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try importing a smaller file or try again later",
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
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "IMP004",
		},
	},

	// Rate limiting (RATE001)
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
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first matching pattern's message, or ERR000.
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

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
