package errors

import (
	"fmt"
	"strings"
)

// FieldError pins a validation problem to a single configuration field so a
// builder UI can render every problem at once.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors aggregates all field-level problems found in one validation
// pass. It is surfaced whole, never one error at a time.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e FieldErrors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ToValidationError wraps the aggregate into the shared API error shape,
// carrying the individual field errors in the details payload.
func (e FieldErrors) ToValidationError() *Error {
	return ErrValidation.WithCause(e).WithDetail("fields", []FieldError(e))
}
