// Package errors defines web typed application errors.
package errors

import (
	stderrors "errors"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/ocfweb/internal/platform/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies application failures for consistent HTTP mapping.
type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindInvalidInput Kind = "invalid_input"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindUnavailable  Kind = "unavailable"
	KindNotFound     Kind = "not_found"
	KindRateLimited  Kind = "rate_limited"
	KindInternal     Kind = "internal"
)

// Error is a typed web application failure. Message is safe to show users;
// Cause is logged only.
type Error struct {
	Kind    Kind
	Key     string
	Message string
	Cause   error
}

// Error renders the human-readable message.
func (e Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the cause.
func (e Error) Unwrap() error {
	return e.Cause
}

// E builds a typed Error.
func E(kind Kind, message string) error {
	return Error{Kind: kind, Message: message}
}

// EK builds a typed Error with a localization key.
func EK(kind Kind, key string, message string) error {
	return Error{Kind: kind, Key: strings.TrimSpace(key), Message: message}
}

// Internal wraps cause as an internal failure with an operator-facing message.
func Internal(message string, cause error) error {
	return Error{Kind: KindInternal, Key: "core.error.internal", Message: message, Cause: cause}
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var appErr Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// LocalizationKey returns the structured localization key when available.
func LocalizationKey(err error) string {
	if err == nil {
		return ""
	}
	var appErr Error
	if stderrors.As(err, &appErr) {
		if key := strings.TrimSpace(appErr.Key); key != "" {
			return key
		}
		return kindKey(appErr.Kind)
	}
	return kindKey(kindForStatus(HTTPStatus(err)))
}

// HTTPStatus maps an error to an HTTP status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var appErr Error
	if stderrors.As(err, &appErr) {
		return kindStatus(appErr.Kind)
	}
	if status, ok := domainErrorHTTPStatus(err); ok {
		return status
	}
	return grpcErrorHTTPStatus(err, http.StatusInternalServerError)
}

func kindStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindInvalidInput
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusServiceUnavailable:
		return KindUnavailable
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindInternal
	}
}

func kindKey(kind Kind) string {
	switch kind {
	case KindInvalidInput:
		return "core.error.invalid_input"
	case KindUnauthorized:
		return "core.error.unauthorized"
	case KindForbidden:
		return "core.error.forbidden"
	case KindNotFound:
		return "core.error.not_found"
	case KindUnavailable:
		return "core.error.unavailable"
	case KindRateLimited:
		return "core.error.rate_limited"
	default:
		return "core.error.internal"
	}
}

func domainErrorHTTPStatus(err error) (int, bool) {
	var domainErr *apperrors.Error
	if !stderrors.As(err, &domainErr) {
		return 0, false
	}
	switch domainErr.Code {
	case apperrors.CodeInvalidInput, apperrors.CodeCredentialInvalid:
		return http.StatusBadRequest, true
	case apperrors.CodeNotFound:
		return http.StatusNotFound, true
	case apperrors.CodeAlreadyExists:
		return http.StatusConflict, true
	case apperrors.CodeUnavailable:
		return http.StatusServiceUnavailable, true
	default:
		return http.StatusInternalServerError, true
	}
}

func grpcErrorHTTPStatus(err error, fallback int) int {
	st, ok := status.FromError(err)
	if !ok {
		return fallback
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return fallback
	}
}
