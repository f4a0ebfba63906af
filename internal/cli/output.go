package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/roach88/docql/internal/doc"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failure (conflict, duplicate key, incomplete import, etc.)
	ExitCommandError = 2 // Command error (bad config, unreadable file, database not found, etc.)
)

// Error codes reported in CLIError.Code.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeConfig       = "E002" // Configuration could not be loaded
	ErrCodeOpenFailed   = "E003" // Database could not be opened
	ErrCodeNotFound     = "E004" // Collection or document not found
	ErrCodeConflict     = "E005" // Revision conflict or duplicate key
	ErrCodeInvalidInput = "E006" // Unreadable or malformed input file
	ErrCodeQueryFailed  = "E007" // Query could not be folded, translated or executed
	ErrCodeImportFailed = "E008" // Bulk import failed
	ErrCodeTestFailed   = "E009" // One or more scenarios failed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.GetErrWriter(), "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.GetErrWriter(), "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns it as an
// ExitError carrying exitCode.
func (f *OutputFormatter) Fail(exitCode int, code, message string, err error) error {
	text := message
	if err != nil {
		text = fmt.Sprintf("%s: %v", message, err)
	}
	_ = f.Error(code, text, nil)
	return WrapExitError(exitCode, message, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Table renders rows under header as a text table.
func (f *OutputFormatter) Table(header []string, rows [][]string) {
	tw := tablewriter.NewWriter(f.Writer)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeader(header)
	tw.AppendBulk(rows)
	tw.Render()
}

// Values renders query results. Results that are all objects become a
// table with one column per attribute; anything else is printed as one
// JSON value per line.
func (f *OutputFormatter) Values(values []doc.Value) error {
	if f.Format == "json" {
		return f.Success(values)
	}
	if len(values) == 0 {
		fmt.Fprintln(f.Writer, "(no results)")
		return nil
	}

	header, ok := objectColumns(values)
	if !ok {
		for _, v := range values {
			text, err := formatCell(v)
			if err != nil {
				return err
			}
			fmt.Fprintln(f.Writer, text)
		}
		return nil
	}

	rows := make([][]string, len(values))
	for i, v := range values {
		obj := v.(doc.Object)
		row := make([]string, len(header))
		for j, col := range header {
			cell, present := obj[col]
			if !present {
				continue
			}
			text, err := formatCell(cell)
			if err != nil {
				return err
			}
			row[j] = text
		}
		rows[i] = row
	}
	f.Table(header, rows)
	return nil
}

// objectColumns returns the sorted union of attribute names, or false if
// any value is not an object.
func objectColumns(values []doc.Value) ([]string, bool) {
	seen := make(map[string]bool)
	for _, v := range values {
		obj, ok := v.(doc.Object)
		if !ok {
			return nil, false
		}
		for k := range obj {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols, true
}

// formatCell prints strings bare and everything else as canonical JSON.
func formatCell(v doc.Value) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := doc.MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
