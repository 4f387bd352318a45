package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvariantViolation marks a required value that was empty or missing.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrUnsupportedKind is returned when an entity outside the known
	// provider/directory user/department shapes is translated.
	ErrUnsupportedKind = errors.New("unsupported entity kind")

	// ErrNoAuthoritativeID is returned when a multi-valued directory ID attribute
	// holds no value carrying the provider namespace.
	ErrNoAuthoritativeID = fmt.Errorf("%w: no namespaced identifier", ErrInvariantViolation)
)

func invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}
