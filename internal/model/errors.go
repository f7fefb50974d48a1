package model

import (
	"errors"
	"fmt"
)

// Error kinds shared across packages.
// Callers match them with errors.Is; the typed errors below carry details.
var (
	// ErrContentRead is returned when a document cannot be read.
	// It is recoverable: the document is skipped and the rest continues.
	ErrContentRead = errors.New("cannot read document")

	// ErrPersistence is returned when the saved state cannot be loaded or saved.
	ErrPersistence = errors.New("cannot access saved state")
)

// ContentReadError reports a failed read of a single document.
type ContentReadError struct {
	Path string
	Err  error
}

// Error implements error.
func (e *ContentReadError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrContentRead.Error(), e.Path, e.Err)
}

// Unwrap returns both the kind and the cause so errors.Is matches either.
func (e *ContentReadError) Unwrap() []error {
	return []error{ErrContentRead, e.Err}
}

// PersistenceError reports a failed load or save of the state.
type PersistenceError struct {
	// Op is "open", "load" or "save".
	Op  string
	Err error
}

// Error implements error.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s (%s): %v", ErrPersistence.Error(), e.Op, e.Err)
}

// Unwrap returns both the kind and the cause so errors.Is matches either.
func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}
