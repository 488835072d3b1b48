package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced to callers.
const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeConfigError       = "CONFIG_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInternal          = "INTERNAL_ERROR"
)

// FieldError points at the offending request field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Fields     []FieldError
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewValidationError reports malformed input with field paths. Always a
// 422-equivalent.
func NewValidationError(message string, fields []FieldError) error {
	return &DomainError{
		Code:       CodeValidationFailed,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Fields:     fields,
	}
}

// NewNotFound reports a missing or out-of-tenant-scope resource.
func NewNotFound(resource string) error {
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewInvalidTransition reports an illegal status change. The ticket is
// left unchanged.
func NewInvalidTransition(message string) error {
	return &DomainError{
		Code:       CodeInvalidTransition,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewConfigError reports a malformed SLA policy. Fatal for that
// policy's evaluation only; the affected ticket is treated as having no
// SLA commitment.
func NewConfigError(message string) error {
	return &DomainError{
		Code:       CodeConfigError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func NewUnauthorized(message string) error {
	return &DomainError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

func NewForbidden(message string) error {
	return &DomainError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err is a DomainError carrying the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// IsNotFound reports whether err represents a missing resource.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// IsConfigError reports whether err represents a malformed policy.
func IsConfigError(err error) bool {
	return IsCode(err, CodeConfigError)
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		de := NewNotFound("resource")
		var converted *DomainError
		errors.As(de, &converted)
		return converted
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
