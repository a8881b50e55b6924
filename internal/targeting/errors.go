package targeting

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrDuplicateID   = errors.New("duplicate contact id")
	ErrDuplicateName = errors.New("saved list name already exists")
	ErrEmptyName     = errors.New("saved list name is required")
	ErrParse         = errors.New("unable to parse import file")
	ErrListNotFound  = errors.New("saved list not found")
)

// ValidationError describes a rejected field value. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// DuplicateIDError lists every id that collided while adding a batch.
type DuplicateIDError struct {
	IDs []string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate contact id(s): %s", strings.Join(e.IDs, ", "))
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// ParseError wraps the failure to read an import file as a whole.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("parse error: %v", e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }
