package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/repository"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/service"
	"go.uber.org/zap"
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
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps domain errors to HTTP status codes. Internal
// failures are logged and hidden from the client.
func handleServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, domain.ErrInvalidPayment), errors.Is(err, service.ErrInvalidCartLine):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrPaymentRejected):
		status, code = http.StatusBadRequest, "payment_rejected"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrRecordNotFound):
		status, code = http.StatusNotFound, "payment_not_found"
	case errors.Is(err, repository.ErrCartLineNotFound):
		status, code = http.StatusNotFound, "cart_line_not_found"
	case errors.Is(err, domain.ErrCartLineReserved):
		status, code = http.StatusConflict, "cart_line_reserved"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		status, code = http.StatusInternalServerError, "upstream_timeout"
	case errors.Is(err, domain.ErrUpstreamPayment):
		status, code = http.StatusInternalServerError, "upstream_payment_error"
	default:
		logger.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, status, code, err.Error())
}
