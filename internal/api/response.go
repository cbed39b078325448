// internal/api/response.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	custom_errors "github-repo-search/internal/errors"
)

// envelope is the body of every response.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   string     `json:"error,omitempty"`
	ResetAt *time.Time `json:"resetAt,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode JSON response", "status", status, "error", err)
	}
}

func respondWithData(w http.ResponseWriter, logger *slog.Logger, data any) {
	respondWithJSON(w, logger, http.StatusOK, envelope{Success: true, Data: data})
}

func respondWithMessage(w http.ResponseWriter, logger *slog.Logger, status int, kind, message string) {
	respondWithJSON(w, logger, status, envelope{Success: status < 400, Error: kind, Message: message})
}

// respondWithError maps err onto a status code and error kind, and logs server-side failures.
func (h *Handler) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	body := envelope{Error: kind, Message: err.Error()}

	var rateErr *custom_errors.ErrRateLimited
	if errors.As(err, &rateErr) {
		if !rateErr.ResetAt.IsZero() {
			resetAt := rateErr.ResetAt.UTC()
			body.ResetAt = &resetAt
		}
		setRetryAfter(w, rateErr.RetryAfter(time.Now()))
	}

	logger := h.logger.With("method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("Request failed")
	case status == http.StatusTooManyRequests:
		logger.Warn("Request rate limited")
	default:
		logger.Info("Request rejected")
	}

	switch kind {
	case "store_unavailable":
		body.Message = "The repository store is temporarily unavailable"
	case "internal_error":
		body.Message = "An internal error occurred"
	}
	respondWithJSON(w, h.logger, status, body)
}

func classify(err error) (int, string) {
	var (
		invalidInput *custom_errors.ErrInvalidInput
		notFound     *custom_errors.ErrNotFound
		invalidQuery *custom_errors.ErrInvalidQuery
		rateLimited  *custom_errors.ErrRateLimited
		timeout      *custom_errors.ErrTimeout
		network      *custom_errors.ErrNetworkFailure
		provider     *custom_errors.ErrProvider
		unavailable  *custom_errors.ErrStoreUnavailable
	)
	switch {
	case errors.As(err, &invalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.As(err, &notFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &invalidQuery):
		return http.StatusUnprocessableEntity, "invalid_query"
	case errors.As(err, &rateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.As(err, &network):
		return http.StatusBadGateway, "network_failure"
	case errors.As(err, &provider):
		return http.StatusBadGateway, "provider_error"
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}

// setRetryAfter writes the delay in whole seconds, rounded up.
func setRetryAfter(w http.ResponseWriter, d time.Duration) {
	if d <= 0 {
		return
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
}
