package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by every layer.
const (
	CodeNotFound             = "NOT_FOUND"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeStorageFailure       = "STORAGE_FAILURE"
	CodeConversionFailure    = "CONVERSION_FAILURE"
	CodeConversionInProgress = "CONVERSION_IN_PROGRESS"
	CodeInternal             = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
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

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewInvalidInput reports a malformed numeric, priority or duration argument.
func NewInvalidInput(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidInput, message, http.StatusBadRequest, details)
}

// NewStorageFailure wraps a backend I/O, connection or constraint error.
func NewStorageFailure(op string, err error) error {
	return &DomainError{
		Code:       CodeStorageFailure,
		Message:    "storage failure during " + op,
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"op": op},
		Err:        err,
	}
}

// NewConversionFailure marks a fatal, partially applied conversion.
func NewConversionFailure(from, to string, err error) error {
	return &DomainError{
		Code:       CodeConversionFailure,
		Message:    fmt.Sprintf("conversion from %s to %s failed", from, to),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"from": from, "to": to},
		Err:        err,
	}
}

// NewConversionInProgress rejects a mutation while the store is being converted.
func NewConversionInProgress() error {
	return NewDomainError(CodeConversionInProgress, "ticket operations are suspended during conversion", http.StatusServiceUnavailable, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
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
	if errors.Is(err, sql.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func hasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

func IsNotFound(err error) bool          { return hasCode(err, CodeNotFound) }
func IsInvalidInput(err error) bool      { return hasCode(err, CodeInvalidInput) }
func IsStorageFailure(err error) bool    { return hasCode(err, CodeStorageFailure) }
func IsConversionFailure(err error) bool { return hasCode(err, CodeConversionFailure) }

// IsConversionInProgress reports whether err is a gate rejection.
func IsConversionInProgress(err error) bool { return hasCode(err, CodeConversionInProgress) }
