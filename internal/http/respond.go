package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fjod/go_kitchen/internal/catalog"
	"github.com/fjod/go_kitchen/internal/inquiry"
	"github.com/fjod/go_kitchen/internal/session"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts domain errors to HTTP status codes.
func handleError(w http.ResponseWriter, err error) {
	var (
		httpStatus int
		code       string
	)

	switch {
	case errors.Is(err, session.ErrSignInRequired):
		httpStatus, code = http.StatusUnauthorized, "sign_in_required"
	case errors.Is(err, session.ErrInvalidItem):
		httpStatus, code = http.StatusBadRequest, "invalid_item"
	case errors.Is(err, inquiry.ErrInvalidRequest):
		httpStatus, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, catalog.ErrDishNotFound):
		httpStatus, code = http.StatusNotFound, "dish_not_found"
	case errors.Is(err, inquiry.ErrNotFound):
		httpStatus, code = http.StatusNotFound, "not_found"
	case errors.Is(err, session.ErrNotOrderable):
		httpStatus, code = http.StatusConflict, "not_orderable"
	case errors.Is(err, inquiry.ErrInvalidTransition), errors.Is(err, inquiry.ErrStatusConflict):
		httpStatus, code = http.StatusConflict, "status_conflict"
	case errors.Is(err, session.ErrRateLimited), errors.Is(err, inquiry.ErrRateLimited):
		httpStatus, code = http.StatusTooManyRequests, "rate_limit_exceeded"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus, code = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		httpStatus, code = http.StatusRequestTimeout, "canceled"
	default:
		slog.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v interface{}) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
