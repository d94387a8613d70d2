package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// Known sentinel errors are matched first with errors.Is; anything else falls
// back to case-insensitive pattern matching on the error text.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Not enough lines: File has no data row below the header
//	         Action: Add at least one user row below the header line
//	IMP002 - Missing columns: Required columns are missing from the header
//	         Action: Download the template and compare the header line
//	IMP003 - Invalid row: One or more rows failed validation
//	         Action: Fix the listed rows and import them again
//
// # User Errors (USR001-USR099)
//
//	USR001 - User not found
//	USR002 - Duplicate email: Another user already uses this email
//	USR003 - Invalid request: Request body failed validation
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Not a CSV file
//	FILE004 - No file selected
//	FILE005 - Empty file
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many uploads in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key       Patterns: "duplicate key", "unique constraint"
//	DB004 - Connection refused  Patterns: "connection refused"
//	DB005 - Connection reset    Patterns: "connection reset"
//	DB006 - Timeout             Patterns: "timeout"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests  Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check application
// logs for the original error when users report ERR000.

import (
	"context"
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

// sentinelMessages are checked in order with errors.Is.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrNotEnoughLines, UserMessage{"The file has no data rows", "Add at least one user row below the header line", "IMP001"}},
	{ErrMissingColumns, UserMessage{"Required columns are missing from the CSV header", "Download the template and compare the header line", "IMP002"}},
	{ErrUserNotFound, UserMessage{"User not found", "Check the user ID or email", "USR001"}},
	{ErrDuplicateEmail, UserMessage{"Another user already uses this email", "Use a different email or update the existing user", "USR002"}},
	{ErrInvalidInput, UserMessage{"The request contains invalid values", "Correct the listed fields and try again", "USR003"}},
	{ErrFileTooLarge, UserMessage{"File exceeds maximum size limit", "Split the file into smaller files", "FILE001"}},
	{ErrNotCSV, UserMessage{"Only CSV files are accepted", "Save the spreadsheet as CSV (UTF-8)", "FILE002"}},
	{ErrNoFile, UserMessage{"No file was selected", "Please select a CSV file to upload", "FILE004"}},
	{ErrEmptyFile, UserMessage{"The uploaded file is empty", "Please upload a CSV file with data rows", "FILE005"}},
	{ErrTooManyUploads, UserMessage{"System is busy processing other uploads", "Please wait a moment and try again", "UPL002"}},
	{context.Canceled, UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{context.DeadlineExceeded, UserMessage{"Request timed out", "Try a smaller file or check your connection", "UPL005"}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is the text fallback for errors from drivers and the
// network. The first matching pattern wins; specific before general.
var errorPatterns = []errorPattern{
	{"duplicate key", UserMessage{"A user with this email already exists", "Check for duplicate emails in your CSV", "DB001"}},
	{"unique constraint", UserMessage{"A user with this email already exists", "Check for duplicate emails in your CSV", "DB001"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB006"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var rowMessage = UserMessage{"One or more rows failed validation", "Fix the listed rows and import them again", "IMP003"}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	var rowErr *RowError
	if errors.As(err, &rowErr) {
		return rowMessage
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
