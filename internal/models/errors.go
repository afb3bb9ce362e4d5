package models

import (
	"errors"
	"fmt"
)

// ErrNoOverlap is reported when the wastewater and positivity date spans do
// not intersect, so no window can show both series
var ErrNoOverlap = errors.New("wastewater and positivity date spans do not overlap")

// DataLoadError represents a missing or malformed source table.
// It is fatal at startup.
type DataLoadError struct {
	Source  string
	Path    string
	Line    int
	Column  string
	Message string
	Err     error
}

func (e *DataLoadError) Error() string {
	msg := "load " + e.Source
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// DateParseError represents a UI date that is not in DateLayout
type DateParseError struct {
	Field string
	Value string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("invalid %s %q, expected YYYY-MM-DD", e.Field, e.Value)
}

func (e *DateParseError) Unwrap() error {
	return e.Err
}
