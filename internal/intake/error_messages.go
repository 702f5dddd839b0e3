// error_messages.go provides user-friendly error messages for intake operations.
//
// # Error Code Reference
//
// Session Errors (SES):
//
//	SES001 - Session not found: The intake session does not exist or has expired
//	         Patterns: "session not found"
//	         Action: Start a new intake session
//
//	SES002 - Too many sessions: The service is at its session capacity
//	         Patterns: "too many active sessions"
//	         Action: Please wait a moment and try again
//
//	SES003 - Request cancelled: The request was cancelled or timed out
//	         Patterns: "context canceled", "context deadline exceeded"
//	         Action: Please try again
//
// Section Errors (SEC):
//
//	SEC001 - Unknown section: Section must be bom, packaging or ancillary
//	SEC002 - Unknown transport mode: Mode must be road, rail, ship or air
//	SEC003 - Mode not enabled: Enable the mode before entering a distance
//	SEC004 - Unknown unit: The unit is not valid for this quantity
//	SEC005 - Row not found: The row was already removed
//	SEC006 - Energy entry not found: The entry was already removed
//
// Form Errors (FRM):
//
//	FRM001 - Unknown field: The field name is not part of the intake form
//	FRM002 - Invalid value: The value is not in the allowed list
//
// Submission Errors (SUB):
//
//	SUB001-SUB011 - One per submission-gate check, in gate order. The
//	message is the gate's own first-violation text.
//
// Import Errors (IMP):
//
//	IMP001 - Missing column: The CSV lacks a required column
//	IMP002 - Invalid CSV: The file could not be parsed as CSV
//	IMP003 - Empty file: The file has no header row
//	IMP004 - File too large: The upload exceeds the size limit
//	         Patterns: "file too large", "request body too large"
//
// Export Errors (EXP):
//
//	EXP001 - Spreadsheet loading: The spreadsheet writer is still starting
//	EXP002 - Spreadsheet unavailable: The spreadsheet writer could not be loaded
//	EXP003 - Unknown export format: Format must be json, csv, xlsx or pdf
//	EXP004 - Exports busy: Every export slot is taken
//
// Request Errors (REQ):
//
//	REQ001 - Invalid request body: The JSON body could not be decoded
//
// Auth Errors (AUTH), written by the API key middleware:
//
//	AUTH001 - Missing API key
//	AUTH002 - Invalid API key
//
// Rate Limiting (RATE):
//
//	RATE001 - Too many requests
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// A *SubmissionError is mapped first, by its own code. Everything else is
// matched case-insensitively using strings.Contains against the error text.
// The first matching pattern wins, so more specific patterns are defined
// before general ones.
package intake

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Session Errors (SES001-SES003)
	// =========================================================================
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Intake session not found",
			Action:  "The session may have expired. Please start a new intake",
			Code:    "SES001",
		},
	},
	{
		pattern: "too many active sessions",
		msg: UserMessage{
			Message: "The service is handling too many intakes",
			Action:  "Please wait a moment and try again",
			Code:    "SES002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "SES003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "SES003",
		},
	},

	// =========================================================================
	// Export Errors (EXP001-EXP003)
	// Listed before section errors: capability failures wrap loader errors
	// whose text is arbitrary.
	// =========================================================================
	{
		pattern: "spreadsheet capability is loading",
		msg: UserMessage{
			Message: "Spreadsheet export is still starting up",
			Action:  "Please try again in a few seconds",
			Code:    "EXP001",
		},
	},
	{
		pattern: "spreadsheet capability unavailable",
		msg: UserMessage{
			Message: "Spreadsheet export is unavailable",
			Action:  "Download JSON or the CSV bundle instead",
			Code:    "EXP002",
		},
	},
	{
		pattern: "unknown export format",
		msg: UserMessage{
			Message: "Unknown export format",
			Action:  "Use json, csv, xlsx or pdf",
			Code:    "EXP003",
		},
	},
	{
		pattern: "too many concurrent exports",
		msg: UserMessage{
			Message: "Too many exports are running",
			Action:  "Please wait a moment and try again",
			Code:    "EXP004",
		},
	},

	// =========================================================================
	// Import Errors (IMP001-IMP004)
	// =========================================================================
	// Size errors first: an oversized body also surfaces as a CSV read error.
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "IMP004",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from CSV",
			Action:  "Check that the header row contains component and the mass columns",
			Code:    "IMP001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with consistent columns",
			Code:    "IMP002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with a header row",
			Code:    "IMP003",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "IMP004",
		},
	},

	// =========================================================================
	// Request Errors (REQ001)
	// =========================================================================
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Send a valid JSON body",
			Code:    "REQ001",
		},
	},

	// =========================================================================
	// Section Errors (SEC001-SEC006)
	// =========================================================================
	{
		pattern: "unknown section",
		msg: UserMessage{
			Message: "Unknown material section",
			Action:  "Use bom, packaging or ancillary",
			Code:    "SEC001",
		},
	},
	{
		pattern: "unknown transport mode",
		msg: UserMessage{
			Message: "Unknown transport mode",
			Action:  "Use road, rail, ship or air",
			Code:    "SEC002",
		},
	},
	{
		pattern: "transport mode not enabled",
		msg: UserMessage{
			Message: "Transport mode is not enabled for this section",
			Action:  "Enable the mode before entering a distance",
			Code:    "SEC003",
		},
	},
	{
		pattern: "unknown unit",
		msg: UserMessage{
			Message: "Unit is not valid for this quantity",
			Action:  "Choose a unit from the list",
			Code:    "SEC004",
		},
	},
	{
		pattern: "row not found",
		msg: UserMessage{
			Message: "Row not found",
			Action:  "The row may already have been removed. Refresh and try again",
			Code:    "SEC005",
		},
	},
	{
		pattern: "energy entry not found",
		msg: UserMessage{
			Message: "Energy entry not found",
			Action:  "The entry may already have been removed. Refresh and try again",
			Code:    "SEC006",
		},
	},

	// =========================================================================
	// Form Errors (FRM001-FRM002)
	// =========================================================================
	{
		pattern: "unknown field",
		msg: UserMessage{
			Message: "Unknown form field",
			Action:  "Check the field name",
			Code:    "FRM001",
		},
	},
	{
		pattern: "invalid enum",
		msg: UserMessage{
			Message: "Value is not in the allowed list",
			Action:  "Check the allowed values for this field",
			Code:    "FRM002",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
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
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(fmt.Errorf("get: %w", ErrSessionNotFound))
//	// msg.Code == "SES001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var subErr *SubmissionError
	if errors.As(err, &subErr) {
		return UserMessage{
			Message: subErr.Message,
			Action:  "Fix the highlighted field and submit again",
			Code:    subErr.Code,
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
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
