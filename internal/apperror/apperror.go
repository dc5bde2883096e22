package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound uses the message the front-end already shows for a missing document.
// The resource and id are kept on the error for logs.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%s %s: %w", resource, id, ErrNotFound),
		Message: "Document does not exist",
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// MissingFields builds the validation error for one or more absent required fields.
// The message lists every required field, the way the API has always phrased it:
//
//	MissingFields([]string{"code", "language", "description"}, []string{"code"})
//	→ "Missing fields code, language and description" (Field: "code")
func MissingFields(required, missing []string) *AppError {
	var field string
	if len(missing) == 1 {
		field = missing[0]
	}
	return &AppError{
		Err:     ErrValidation,
		Message: "Missing " + noun(len(required)) + " " + joinEnglish(required),
		Field:   field,
	}
}

// InvalidOperation is returned for a tag operation other than add/remove.
func InvalidOperation(op string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: fmt.Sprintf("operation %s is an invalid operation", op),
		Field:   "operation",
	}
}

func noun(n int) string {
	if n == 1 {
		return "field"
	}
	return "fields"
}

func joinEnglish(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
