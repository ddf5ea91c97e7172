package sqlio

import (
	"errors"
	"fmt"
)

var (
	// ErrUsage marks errors caused by the caller: a missing table, an
	// empty insert, an unfiltered update/delete, a bad page size or a
	// statement that cannot be bound.
	ErrUsage = errors.New("sqlio: invalid usage")

	ErrParamMissing     = errors.New("sqlio: missing parameter")
	ErrSliceEmpty       = errors.New("sqlio: empty slice")
	ErrTooManyParams    = errors.New("sqlio: too many parameters")
	ErrParamNameTooLong = errors.New("sqlio: parameter name too long")
	ErrBuilderReleased  = errors.New("sqlio: builder already released; call Write() on *SQLIO for a new statement")
)

// DatabaseError wraps a failure reported by the connection with the
// executor operation and the table it was running against.
type DatabaseError struct {
	Op    string
	Table string
	Err   error
}

func (e *DatabaseError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("sqlio: database error in %s on %s: %s", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("sqlio: database error in %s: %s", e.Op, e.Err)
}

// Unwrap returns the driver error so callers can inspect it with
// errors.Is / errors.As.
func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// IsDatabaseError reports whether err wraps a *DatabaseError.
func IsDatabaseError(err error) bool {
	var dbErr *DatabaseError
	return errors.As(err, &dbErr)
}

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// asUsage tags a binder error as a usage error, keeping the original
// sentinel reachable through errors.Is.
func asUsage(err error) error {
	if err == nil || errors.Is(err, ErrUsage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUsage, err)
}
