package labtrend

import (
	"errors"
	"fmt"
)

// ErrFileNotFound indicates the input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrUndecodable indicates the buffer could not be decoded as a spreadsheet.
var ErrUndecodable = errors.New("undecodable spreadsheet")

// ErrNoDateColumns indicates no header cell parsed as a date.
var ErrNoDateColumns = errors.New("no valid date columns")

// ErrNoParameters indicates no body row named a parameter.
var ErrNoParameters = errors.New("no valid parameters")

// ErrInvalidCategoryTable indicates a category table document could not be loaded.
var ErrInvalidCategoryTable = errors.New("invalid category table")

// MalformedInputError reports an upload that cannot be normalized.
type MalformedInputError struct {
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input: %s: %v", e.Reason, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// NewMalformedInputError wraps cause under one of the sentinel errors.
// cause may be nil.
func NewMalformedInputError(reason string, sentinel, cause error) *MalformedInputError {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &MalformedInputError{
		Reason: reason,
		Err:    err,
	}
}
