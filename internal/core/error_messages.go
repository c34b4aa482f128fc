// Package core provides the business logic for bill document generation.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// Codes appear in batch reports and HTTP error bodies so operators can quote them.
//
// Error codes are grouped by category:
//
// # Schema Errors (SCH001-SCH099)
//
//	SCH001 - Sheet not found: A required sheet is missing from the workbook
//	         Action: Add the sheet or rename it (Title, Work Order)
//	         Patterns: "sheet not found"
//
//	SCH002 - Missing column: A required column could not be found on a sheet
//	         Action: Check the header row has Item No and Description columns
//	         Patterns: "missing required column"
//
//	SCH003 - Title layout: The title sheet is not laid out as key/value pairs
//	         Action: Put field names in one column and values in the next
//	         Patterns: "key/value sheet"
//
//	SCH004 - Schema failure: The sheet could not be mapped
//	         Patterns: "schema resolution failed"
//
// # Template Errors (TPL001-TPL099)
//
//	TPL001 - Missing title field: A document references a title field that is absent
//	         Action: Add the field (e.g. Contractor) to the title sheet
//	         Patterns: "references title."
//
//	TPL002 - Template failure: A document template could not be rendered
//	         Patterns: "template "
//
// # Render Errors (RND001-RND099)
//
//	RND001 - No engines: No paginated render engine is configured
//	         Patterns: "no render engines"
//
//	RND002 - Engine failure: A render engine failed; fallbacks were used
//	         Patterns: "render engine"
//
// # Bundle Errors (BND001-BND099)
//
//	BND001 - Bundle failure: Documents could not be merged
//	         Patterns: "bundle"
//
// # Batch Errors (BAT001-BAT099)
//
//	BAT001 - No input: No workbook files in the input directory
//	BAT002 - Output directory: The output directory cannot be created or written
//	BAT003 - System busy: Too many batches in progress
//	BAT004 - Batch not found: Unknown batch id
//	BAT005 - Cancelled: The batch was cancelled before the file started
//	BAT006 - Invalid mode: Batch mode is neither sequential nor parallel
//	BAT007 - Still running: The report was requested before the batch finished
//	BAT008 - Bad request: The batch request body is not valid JSON
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Workbook not found
//	FILE002 - Not a workbook: The file is not a valid .xlsx/.xlsm workbook
//	FILE003 - Password protected workbook
//	FILE004 - Permission denied
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check application logs for the
// original technical error.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are listed
// before general ones.
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

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Schema Errors (SCH001-SCH004)
	// =========================================================================
	{
		pattern: "sheet not found",
		msg: UserMessage{
			Message: "A required sheet is missing from the workbook",
			Action:  "Add the sheet or rename it to match (Title, Work Order)",
			Code:    "SCH001",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "A required column could not be found",
			Action:  "Check that the header row has Item No and Description columns",
			Code:    "SCH002",
		},
	},
	{
		pattern: "key/value sheet",
		msg: UserMessage{
			Message: "The title sheet is not laid out as field/value pairs",
			Action:  "Put field names in one column and their values in the next",
			Code:    "SCH003",
		},
	},
	{
		pattern: "schema resolution failed",
		msg: UserMessage{
			Message: "A sheet could not be mapped to the expected layout",
			Action:  "Compare the workbook with the sample workbook",
			Code:    "SCH004",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE004)
	// =========================================================================
	{
		pattern: "workbook not found",
		msg: UserMessage{
			Message: "The workbook file does not exist",
			Action:  "Check the input path",
			Code:    "FILE001",
		},
	},
	{
		pattern: "not a valid zip",
		msg: UserMessage{
			Message: "The file is not a valid workbook",
			Action:  "Save the file as .xlsx from your spreadsheet application",
			Code:    "FILE002",
		},
	},
	{
		pattern: "unsupported workbook",
		msg: UserMessage{
			Message: "The file is not a valid workbook",
			Action:  "Save the file as .xlsx from your spreadsheet application",
			Code:    "FILE002",
		},
	},
	{
		pattern: "password",
		msg: UserMessage{
			Message: "The workbook is password protected",
			Action:  "Remove the password and try again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "Permission denied",
			Action:  "Check file and directory permissions",
			Code:    "FILE004",
		},
	},

	// =========================================================================
	// Template Errors (TPL001-TPL002)
	// =========================================================================
	{
		pattern: "references title.",
		msg: UserMessage{
			Message: "A document needs a title field that is missing",
			Action:  "Add the field named in the error to the title sheet",
			Code:    "TPL001",
		},
	},
	{
		pattern: "template ",
		msg: UserMessage{
			Message: "A document template could not be rendered",
			Action:  "Check the workbook data for the named document",
			Code:    "TPL002",
		},
	},

	// =========================================================================
	// Render and Bundle Errors (RND001-RND002, BND001)
	// =========================================================================
	{
		pattern: "no render engines",
		msg: UserMessage{
			Message: "No render engine is configured",
			Action:  "Set RENDER_ENGINES to at least one of chrome, wkhtmltopdf, fpdf",
			Code:    "RND001",
		},
	},
	{
		pattern: "render engine",
		msg: UserMessage{
			Message: "A render engine failed",
			Action:  "Output was produced by a fallback engine; check engine installation",
			Code:    "RND002",
		},
	},
	{
		pattern: "bundle",
		msg: UserMessage{
			Message: "Documents could not be merged",
			Action:  "Individual documents are still available",
			Code:    "BND001",
		},
	},

	// =========================================================================
	// Batch Errors (BAT001-BAT008)
	// =========================================================================
	{
		pattern: "no input files",
		msg: UserMessage{
			Message: "No workbook files were found",
			Action:  "Check the input directory and BATCH_EXTENSIONS",
			Code:    "BAT001",
		},
	},
	{
		pattern: "output directory",
		msg: UserMessage{
			Message: "The output directory cannot be written",
			Action:  "Check the output path and its permissions",
			Code:    "BAT002",
		},
	},
	{
		pattern: "too many batches",
		msg: UserMessage{
			Message: "System is busy processing other batches",
			Action:  "Please wait a moment and try again",
			Code:    "BAT003",
		},
	},
	{
		pattern: "batch not found",
		msg: UserMessage{
			Message: "Batch not found",
			Action:  "Check the batch id",
			Code:    "BAT004",
		},
	},
	{
		pattern: "invalid batch mode",
		msg: UserMessage{
			Message: "Unknown batch mode",
			Action:  "Use sequential or parallel",
			Code:    "BAT006",
		},
	},
	{
		pattern: "still running",
		msg: UserMessage{
			Message: "The batch has not finished yet",
			Action:  "Poll the batch status and fetch the report once it completes",
			Code:    "BAT007",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Send a JSON body with inputDir and outputDir",
			Code:    "BAT008",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Processing was cancelled",
			Action:  "Start a new batch when ready",
			Code:    "BAT005",
		},
	},
	{
		pattern: "cancelled",
		msg: UserMessage{
			Message: "Processing was cancelled",
			Action:  "Start a new batch when ready",
			Code:    "BAT005",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := errors.New(`schema resolution failed for sheet "Work Order": sheet not found in workbook`)
//	msg := MapError(err)
//	// msg.Code == "SCH001"
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
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
