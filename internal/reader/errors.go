package reader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType tags every failure surfaced by the pipeline. The set is closed:
// extractor internals map their failures onto one of these at the boundary.
type ErrorType string

// Failure tags carried in API error bodies.
const (
	ErrNetwork    ErrorType = "NETWORK_ERROR"
	ErrParse      ErrorType = "PARSE_ERROR"
	ErrDiffbot    ErrorType = "DIFFBOT_ERROR"
	ErrRateLimit  ErrorType = "RATE_LIMIT_ERROR"
	ErrPaywall    ErrorType = "PAYWALL_ERROR"
	ErrProxy      ErrorType = "PROXY_ERROR"
	ErrTimeout    ErrorType = "TIMEOUT_ERROR"
	ErrValidation ErrorType = "VALIDATION_ERROR"
	ErrUnknown    ErrorType = "UNKNOWN_ERROR"
)

// AppError is the single error shape crossing component boundaries. Status is
// the HTTP-equivalent code; the remaining fields are type-specific.
type AppError struct {
	Type    ErrorType
	Message string
	Status  int

	// RetryAfter applies to ErrRateLimit, in seconds.
	RetryAfter int
	// Hostname, SiteName and Category apply to ErrPaywall.
	Hostname string
	SiteName string
	Category string
	// Source identifies the extractor for ErrParse.
	Source string
	// Upstream carries the upstream service message for ErrNetwork/ErrDiffbot.
	Upstream string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Retryable reports whether a client may usefully retry the request.
func (e *AppError) Retryable() bool {
	switch e.Type {
	case ErrNetwork, ErrTimeout, ErrRateLimit:
		return true
	}
	return false
}

// NewNetworkError builds a NETWORK_ERROR. status may be zero when the
// failure happened before any response arrived.
func NewNetworkError(msg string, status int) *AppError {
	if status == 0 {
		status = http.StatusBadGateway
	}
	return &AppError{Type: ErrNetwork, Message: msg, Status: status}
}

// NewParseError builds a PARSE_ERROR attributed to one extractor.
func NewParseError(source, msg string) *AppError {
	return &AppError{Type: ErrParse, Message: msg, Status: http.StatusInternalServerError, Source: source}
}

// NewDiffbotError builds a DIFFBOT_ERROR for a managed-extraction failure.
func NewDiffbotError(msg, upstream string) *AppError {
	return &AppError{Type: ErrDiffbot, Message: msg, Status: http.StatusBadGateway, Upstream: upstream}
}

// NewRateLimitError builds a RATE_LIMIT_ERROR with a retry hint in seconds.
func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Type:       ErrRateLimit,
		Message:    "too many requests",
		Status:     http.StatusTooManyRequests,
		RetryAfter: retryAfter,
	}
}

// NewPaywallError builds a PAYWALL_ERROR for a blocklisted hostname.
func NewPaywallError(hostname, siteName, category, msg string) *AppError {
	return &AppError{
		Type:     ErrPaywall,
		Message:  msg,
		Status:   http.StatusForbidden,
		Hostname: hostname,
		SiteName: siteName,
		Category: category,
	}
}

// NewProxyError builds a PROXY_ERROR.
func NewProxyError(msg string) *AppError {
	return &AppError{Type: ErrProxy, Message: msg, Status: http.StatusBadGateway}
}

// NewTimeoutError builds a TIMEOUT_ERROR with status 408.
func NewTimeoutError(msg string) *AppError {
	return &AppError{Type: ErrTimeout, Message: msg, Status: http.StatusRequestTimeout}
}

// NewValidationError builds a VALIDATION_ERROR.
func NewValidationError(msg string) *AppError {
	return &AppError{Type: ErrValidation, Message: msg, Status: http.StatusBadRequest}
}

// NewUnknownError wraps a message nothing else claimed.
func NewUnknownError(msg string) *AppError {
	return &AppError{Type: ErrUnknown, Message: msg, Status: http.StatusInternalServerError}
}

// AsAppError coerces any error into the closed union. Context deadline
// failures become TIMEOUT_ERROR; everything unrecognized becomes
// UNKNOWN_ERROR so callers always see exactly one tag.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("operation timed out")
	}
	return NewUnknownError(err.Error())
}
