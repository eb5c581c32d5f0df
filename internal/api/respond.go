package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/pagelens/reader/internal/reader"
)

// errorBody is the failure envelope: a stable type tag, a human-readable
// message, and the type-specific fields.
type errorBody struct {
	Error      string           `json:"error"`
	Type       reader.ErrorType `json:"type"`
	Retryable  bool             `json:"retryable"`
	RetryAfter int              `json:"retryAfter,omitempty"`
	Hostname   string           `json:"hostname,omitempty"`
	SiteName   string           `json:"siteName,omitempty"`
	Category   string           `json:"category,omitempty"`
	Source     string           `json:"source,omitempty"`
}

func writeAppError(w http.ResponseWriter, appErr *reader.AppError) {
	if appErr.Type == reader.ErrRateLimit && appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}
	status := appErr.Status
	if status < 400 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorBody{
		Error:      appErr.Message,
		Type:       appErr.Type,
		Retryable:  appErr.Retryable(),
		RetryAfter: appErr.RetryAfter,
		Hostname:   appErr.Hostname,
		SiteName:   appErr.SiteName,
		Category:   appErr.Category,
		Source:     appErr.Source,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}
