package sequence

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable marks transient persistence failures (connection loss,
	// timeouts, overload, lock contention). Callers may retry the whole operation.
	ErrStorageUnavailable = errors.New("sequence storage unavailable")
	// ErrStorageError marks non-transient persistence failures such as constraint
	// violations or a corrupt counter record.
	ErrStorageError = errors.New("sequence storage error")
	// ErrInvalidSequenceName is returned for an empty sequence name.
	ErrInvalidSequenceName = errors.New("sequence name must not be empty")
)

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

func storageError(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageError, err)
}

// IsUnavailable reports whether err is a transient storage failure.
func IsUnavailable(err error) bool { return errors.Is(err, ErrStorageUnavailable) }

// failureKind is the metrics label for a failed allocation.
func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrStorageUnavailable):
		return "unavailable"
	case errors.Is(err, ErrInvalidSequenceName):
		return "invalid"
	default:
		return "error"
	}
}
