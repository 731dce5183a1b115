package classfile

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when the input ends before a structure does.
	ErrTruncated = errors.New("unexpected end of class data")

	// ErrMalformed is returned for structurally invalid class data.
	ErrMalformed = errors.New("malformed class data")

	// ErrUnsupported is returned for constructs the decoder does not know,
	// such as reserved opcodes or constant pool tags.
	ErrUnsupported = errors.New("unsupported class data")

	// ErrExcluded is returned for classes that never take part in cohesion
	// analysis: interfaces, enums, annotations, modules and generated
	// anonymous or closure classes.
	ErrExcluded = errors.New("class excluded from analysis")
)

// ParseError describes where and why decoding failed.
type ParseError struct {
	Offset int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("classfile: offset %d: %s: %v", e.Offset, e.Reason, e.Err)
}

// Unwrap returns the sentinel cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErr(offset int, err error, format string, args ...any) *ParseError {
	return &ParseError{Offset: offset, Reason: fmt.Sprintf(format, args...), Err: err}
}
