package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks every failure to read a part or decode a typed column.
	ErrParse = errors.New("parse error")
	// ErrMissingColumn marks queries over a column the table does not carry.
	ErrMissingColumn = errors.New("missing column")
)

// ParseError reports a malformed CSV part or an undecodable cell.
// Line is 1-based within the part; zero when unknown.
type ParseError struct {
	Part   string
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parse " + quoteOr(e.Part, "input")
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	return msg + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// MissingColumnError is returned when a typed view is requested for an absent column.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Column)
}

func (e *MissingColumnError) Is(target error) bool { return target == ErrMissingColumn }

func quoteOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return fmt.Sprintf("%q", s)
}
