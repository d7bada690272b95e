package ports

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Amund211/lana/internal/logging"
	"github.com/Amund211/lana/internal/validation"
)

const maxRequestBodyBytes = 64 * 1024

type validationErrorResponse struct {
	Error   string                  `json:"error"`
	Message string                  `json:"message"`
	Details []validation.FieldError `json:"details"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var errInvalidBody = errors.New("invalid request body")

// decodeBody reads a JSON request body into target
func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON object", errInvalidBody)
	}
	return nil
}

func writeInvalidBody(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	statusCode := http.StatusUnprocessableEntity
	logging.FromContext(ctx).InfoContext(ctx, "Invalid request body. Returning error", "statusCode", statusCode, "reason", "invalid body", "error", err.Error())

	writeJSON(w, r, statusCode, validationErrorResponse{
		Error:   "Validation Error",
		Message: "Request body must be a valid JSON object",
		Details: []validation.FieldError{{Field: "body", Message: "Invalid JSON"}},
	})
}

// writeValidationError responds 422 with the invalid fields of err
func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	statusCode := http.StatusUnprocessableEntity

	details := []validation.FieldError{}
	var validationErr *validation.Error
	if errors.As(err, &validationErr) {
		details = validationErr.Fields
	}

	logging.FromContext(ctx).InfoContext(ctx, "Invalid request. Returning error", "statusCode", statusCode, "reason", "validation failed", "error", err.Error())

	writeJSON(w, r, statusCode, validationErrorResponse{
		Error:   "Validation Error",
		Message: "Invalid input data",
		Details: details,
	})
}
