package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/food-storefront/internal/backend"
	"github.com/fjod/food-storefront/internal/payment"
	"github.com/fjod/food-storefront/internal/storefront"
	"github.com/fjod/food-storefront/pkg/logger"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	respondJSON(ctx, w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError converts domain and backend errors to HTTP status codes.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var httpStatus int
	var code string
	message := err.Error()

	var statusErr *backend.StatusError
	switch {
	case errors.Is(err, storefront.ErrProductNotFound):
		httpStatus = http.StatusNotFound
		code = "product_not_found"
	case errors.Is(err, storefront.ErrReviewNotFound):
		httpStatus = http.StatusNotFound
		code = "review_not_found"
	case errors.Is(err, storefront.ErrInvalidReview):
		httpStatus = http.StatusBadRequest
		code = "invalid_review"
	case errors.Is(err, payment.ErrMissingSession):
		httpStatus = http.StatusBadRequest
		code = "missing_session"
	case errors.Is(err, backend.ErrUnavailable):
		httpStatus = http.StatusServiceUnavailable
		code = "service_unavailable"
		message = "backend temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
		message = "request timed out"
	case errors.As(err, &statusErr):
		httpStatus = http.StatusBadGateway
		code = "backend_error"
	default:
		httpStatus = http.StatusInternalServerError
		code = "internal_error"
		message = "internal server error"
	}

	if httpStatus >= http.StatusInternalServerError {
		logger.FromContext(ctx).Error().Err(err).Int("status", httpStatus).Msg("request failed")
	}
	respondError(ctx, w, httpStatus, code, message)
}
