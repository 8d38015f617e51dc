// ABOUTME: Typed validation errors for inbound payloads
// ABOUTME: InvalidInputError names the offending field and matches ErrInvalidInput

package roster

import (
	"errors"
	"fmt"
)

// ErrInvalidInput matches every *InvalidInputError with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports a payload of the wrong shape or a field of the
// wrong type. Field is empty when the payload as a whole was rejected.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: field %q %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidInput) match.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidField(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
