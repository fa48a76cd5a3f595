package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PaymentHandler serves the card-intent flow and payment history.
type PaymentHandler struct {
	intents IntentPayments
	history PaymentHistory
	timeout time.Duration
	logger  *zap.Logger
}

func NewPaymentHandler(intents IntentPayments, history PaymentHistory, timeout time.Duration, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{intents: intents, history: history, timeout: timeout, logger: logger}
}

type CreateIntentRequestDTO struct {
	Price json.RawMessage `json:"price"`
}

type CreateIntentResponseDTO struct {
	ClientSecret string `json:"clientSecret"`
}

type ConfirmPaymentRequestDTO struct {
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	Price         json.RawMessage `json:"price"`
	TransactionID string          `json:"transactionId"`
	CartIDs       []string        `json:"cartIds"`
	MenuItemIDs   []string        `json:"menuItemIds"`
}

type DeleteResultDTO struct {
	DeletedCount int64 `json:"deletedCount"`
}

type ConfirmPaymentResponseDTO struct {
	PaymentResult *domain.PaymentRecord `json:"paymentResult"`
	DeleteResult  DeleteResultDTO       `json:"deleteResult"`
	Duplicate     bool                  `json:"duplicate,omitempty"`
}

// POST /create-payment-intent
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateIntentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	intent, err := h.intents.CreateIntent(ctx, req.Price)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, CreateIntentResponseDTO{ClientSecret: intent.ClientSecret})
}

// POST /payments
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ConfirmPaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	res, err := h.intents.ConfirmIntentPayment(ctx, service.ConfirmIntentRequest{
		OwnerEmail:    req.Email,
		PayerName:     req.Name,
		Amount:        req.Price,
		TransactionID: req.TransactionID,
		CartLineIDs:   req.CartIDs,
		MenuItemIDs:   req.MenuItemIDs,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, ConfirmPaymentResponseDTO{
		PaymentResult: res.Record,
		DeleteResult:  DeleteResultDTO{DeletedCount: res.Purged},
		Duplicate:     !res.Created,
	})
}

// GET /payments/{email}
func (h *PaymentHandler) ListForOwner(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	email := chi.URLParam(r, "email")
	if email != getEmailFromContext(r.Context()) {
		respondError(w, http.StatusForbidden, "forbidden", "forbidden access")
		return
	}

	records, err := h.history.ForOwner(ctx, email)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, records)
}

// GET /ssl
func (h *PaymentHandler) ListRedirects(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	records, err := h.history.Redirects(ctx)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, records)
}
