// Package parsererror holds the typed errors returned while turning an uploaded
// statement into candidate transactions.
package parsererror

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoValidRows is returned when a file has data rows but none of them parsed.
var ErrNoValidRows = errors.New("no valid rows in file")

// ParseError represents a failure to parse one field of a row.
type ParseError struct {
	Parser string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse %s='%s': %v",
		e.Parser, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatDetectionError means no registered layout recognised the file, or the
// caller hinted at a layout that does not exist.
type FormatDetectionError struct {
	Hint    string
	Snippet string
	Known   []string
}

func (e *FormatDetectionError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("unknown format %q (known: %s)", e.Hint, strings.Join(e.Known, ", "))
	}
	if e.Snippet != "" {
		return fmt.Sprintf("unrecognised file layout, first line: '%s'", e.Snippet)
	}
	return "unrecognised file layout"
}

// RowParseError aborts a strict import at the first malformed row.
type RowParseError struct {
	Row    int
	Reason string
	Err    error
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

func (e *RowParseError) Unwrap() error {
	return e.Err
}
