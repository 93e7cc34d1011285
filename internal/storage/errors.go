package storage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound reports an update or fetch against a missing id.
	ErrNotFound = errors.New("record not found")

	// ErrConstraint reports operations blocked by a database
	// constraint, most importantly deleting a store that sales still
	// reference. Callers turn this into the "reassign or delete the
	// dependent records first" message.
	ErrConstraint = errors.New("constraint violation")
)

// classify wraps driver errors so callers can distinguish constraint
// failures from everything else. SQLite surfaces these only as message
// text, so the match is on the error string.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "FOREIGN KEY constraint") ||
		strings.Contains(msg, "constraint failed") {
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	return err
}

// IsConstraint reports whether err is a classified constraint failure.
func IsConstraint(err error) bool {
	return errors.Is(err, ErrConstraint)
}

// IsNotFound reports whether err is a missing-record failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
