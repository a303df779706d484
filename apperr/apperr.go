// Package apperr defines the typed, status-aware errors used across plateful.
package apperr

import (
	"errors"
	"net/http"
)

// Error represents a typed, status-aware application error.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message,omitempty"`
	Status  int            `json:"-"`
	Fields  map[string]any `json:"fields,omitempty"`
	Err     error          `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return "error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches err to a copy of base, optionally overriding the message.
func Wrap(err error, base *Error, message string) *Error {
	if err == nil {
		return nil
	}
	if base == nil {
		base = ErrInternal
	}
	copy := *base
	if message != "" {
		copy.Message = message
	}
	copy.Err = err
	return &copy
}

// WithMessage returns a copy of base carrying message.
func WithMessage(base *Error, message string) *Error {
	if base == nil {
		return nil
	}
	copy := *base
	copy.Message = message
	return &copy
}

// WithFields returns a copy of base carrying per-field details.
func WithFields(base *Error, fields map[string]any) *Error {
	if base == nil {
		return nil
	}
	copy := *base
	copy.Fields = fields
	return &copy
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the same code as base.
func Is(err error, base *Error) bool {
	if base == nil {
		return false
	}
	if e, ok := As(err); ok {
		return e.Code == base.Code
	}
	return false
}

func Status(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

func Code(err error) string {
	if e, ok := As(err); ok && e.Code != "" {
		return e.Code
	}
	return "internal_error"
}

func Message(err error) string {
	if e, ok := As(err); ok {
		if e.Message != "" {
			return e.Message
		}
		if e.Err != nil {
			return e.Err.Error()
		}
		return e.Code
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// Payload renders err as the JSON body returned to clients.
func Payload(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	if e, ok := As(err); ok {
		payload := map[string]any{
			"code":    Code(e),
			"message": Message(e),
		}
		if len(e.Fields) > 0 {
			payload["fields"] = e.Fields
		}
		return payload
	}
	return map[string]any{
		"code":    "internal_error",
		"message": err.Error(),
	}
}

var (
	ErrValidation           = New("validation_error", http.StatusBadRequest, "")
	ErrEmptyBody            = New("empty_body", http.StatusBadRequest, "request body is empty")
	ErrDuplicateSave        = New("duplicate_save", http.StatusBadRequest, "recipe already saved")
	ErrInvalidReorder       = New("invalid_reorder", http.StatusBadRequest, "")
	ErrUnauthorized         = New("unauthorized", http.StatusUnauthorized, "")
	ErrNotFound             = New("not_found", http.StatusNotFound, "")
	ErrOwnerNotFound        = New("owner_not_found", http.StatusNotFound, "user not found")
	ErrRateLimited          = New("rate_limited", http.StatusTooManyRequests, "too many requests, please slow down")
	ErrNoCredentials        = New("no_credentials_configured", http.StatusInternalServerError, "no upstream api keys configured")
	ErrCredentialsExhausted = New("credentials_exhausted", http.StatusInternalServerError, "all upstream api keys exhausted")
	ErrUpstream             = New("upstream_error", http.StatusInternalServerError, "recipe service unavailable")
	ErrUpstreamNotFound     = New("upstream_error", http.StatusNotFound, "recipe not found")
	ErrDatabase             = New("database_error", http.StatusInternalServerError, "")
	ErrInternal             = New("internal_error", http.StatusInternalServerError, "")
)
