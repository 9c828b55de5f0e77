package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type Code string

const (
	CodeTransport    Code = "transport"
	CodeValidation   Code = "validation"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal"
)

// ErrLoginRequired is returned when a request is attempted with no stored
// access token. Callers should direct the operator to `ptc login`.
var ErrLoginRequired = &Error{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: "login required"}

type Error struct {
	Code    Code
	Status  int
	Message string
	Err     error
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
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func CodeOf(err error) Code {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return CodeInternal
}

func MessageOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func codeForStatus(status int) Code {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CodeUnauthorized
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status >= 400 && status < 500:
		return CodeValidation
	default:
		return CodeInternal
	}
}

// ExtractMessage mines a human-readable message out of an error body. The
// backend is not consistent about its error shape, so several keys are tried
// in order before falling back to the raw body.
func ExtractMessage(raw []byte, status int) string {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range []string{"detail", "message", "error", "title"} {
			if value, ok := obj[key].(string); ok && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value)
			}
		}
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" && !json.Valid(raw) {
		return msg
	}
	return http.StatusText(status)
}

func newHTTPError(status int, raw []byte) *Error {
	return &Error{
		Code:    codeForStatus(status),
		Status:  status,
		Message: ExtractMessage(raw, status),
	}
}
