package intake

import (
	"errors"
	"fmt"

	"intake-go/internal/model"
)

// Error kinds. Every error returned by the service wraps exactly one of
// these so callers can classify failures with errors.Is instead of
// matching message text.
var (
	// ErrInvalidInput marks malformed or unknown caller input: unknown
	// project names, bad enum values, oversized archives.
	ErrInvalidInput = errors.New("invalid input")

	// ErrWrongState marks an operation that is not legal for the
	// upload's current status.
	ErrWrongState = errors.New("wrong upload state")

	// ErrConflict marks a concurrent modification detected by the
	// status compare-and-swap.
	ErrConflict = errors.New("conflicting update")

	// ErrNotFound marks a missing upload, user, or project.
	ErrNotFound = errors.New("not found")
)

// StatusError reports an operation attempted at the wrong upload status.
// It carries the current state so callers can resynchronize.
type StatusError struct {
	UploadID string
	Status   model.UploadStatus
	Wanted   model.UploadStatus
}

func (e *StatusError) Error() string {
	if e.Status.Terminal() {
		return fmt.Sprintf("upload %s is %s and accepts no further submissions", e.UploadID, e.Status)
	}
	return fmt.Sprintf("upload %s is %s, operation requires %s", e.UploadID, e.Status, e.Wanted)
}

func (e *StatusError) Is(target error) bool { return target == ErrWrongState }

// UnknownNameError reports a submission referencing a project name the
// upload does not know, or that is not pending the submitted stage.
type UnknownNameError struct {
	UploadID string
	Name     string
	Reason   string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("upload %s: project %q %s", e.UploadID, e.Name, e.Reason)
}

func (e *UnknownNameError) Is(target error) bool { return target == ErrInvalidInput }

// FingerprintError reports a project directory that could not be
// fingerprinted because one or more files were unreadable. The project
// fails closed: it is reported and excluded, never half-hashed.
type FingerprintError struct {
	Project    string
	Unreadable []string
}

func (e *FingerprintError) Error() string {
	return fmt.Sprintf("project %q has %d unreadable file(s): %v", e.Project, len(e.Unreadable), e.Unreadable)
}

func inputErrf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}

func notFoundErrf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}
