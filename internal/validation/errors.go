package validation

import (
	"errors"
	"strings"

	"github.com/Amund211/lana/internal/domain"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error lists every invalid field of a request
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.Field+": "+field.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *Error) Unwrap() error {
	return domain.ErrValidation
}

func fieldError(field string, message string) *Error {
	return &Error{Fields: []FieldError{{Field: field, Message: message}}}
}

// Join merges the field errors of errs, ignoring nils
//
// Returns nil if every error is nil.
func Join(errs ...error) error {
	var fields []FieldError
	var other []error
	for _, err := range errs {
		if err == nil {
			continue
		}
		var validationErr *Error
		if errors.As(err, &validationErr) {
			fields = append(fields, validationErr.Fields...)
			continue
		}
		other = append(other, err)
	}

	if len(other) > 0 {
		return errors.Join(other...)
	}
	if len(fields) == 0 {
		return nil
	}
	return &Error{Fields: fields}
}
