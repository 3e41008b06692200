package core

import (
	"errors"
	"fmt"

	"github.com/kilupskalvis/envstash/internal/database"
	"github.com/kilupskalvis/envstash/internal/registry"
	"github.com/kilupskalvis/envstash/internal/shell"
)

var (
	// ErrInvalidName is returned for names that are not a safe path segment.
	ErrInvalidName = registry.ErrInvalidName
	// ErrNotFound is returned when the entry does not exist.
	ErrNotFound = registry.ErrNotFound
	// ErrUnsupportedDriver is a fatal configuration error.
	ErrUnsupportedDriver = database.ErrUnsupportedDriver
	// ErrEntryExists is returned when creating over an existing entry.
	ErrEntryExists = errors.New("stash entry already exists")
	// ErrIncompleteEntry is returned when an entry lacks one of its artifacts.
	ErrIncompleteEntry = errors.New("stash entry is incomplete")
	// ErrDeclined is returned when the operator does not confirm.
	ErrDeclined = errors.New("declined by operator")
)

// PhaseError reports which pipeline phase failed. Completed phases are not
// rolled back.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	var cerr *shell.CommandError
	if errors.As(e.Err, &cerr) && cerr.Phase == e.Phase {
		return cerr.Error()
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// FailedPhase returns the phase name carried by err, if any.
func FailedPhase(err error) string {
	var perr *PhaseError
	if errors.As(err, &perr) {
		return perr.Phase
	}
	return ""
}
