package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/service"
	"go.uber.org/zap"
)

// RedirectHandler serves the hosted-page flow: session creation and the
// gateway's success, fail and cancel callbacks.
type RedirectHandler struct {
	payments    RedirectPayments
	cartViewURL string
	timeout     time.Duration
	logger      *zap.Logger
}

func NewRedirectHandler(payments RedirectPayments, cartViewURL string, timeout time.Duration, logger *zap.Logger) *RedirectHandler {
	return &RedirectHandler{payments: payments, cartViewURL: cartViewURL, timeout: timeout, logger: logger}
}

type CreatePaymentRequestDTO struct {
	Amount      json.RawMessage `json:"amount"`
	Currency    string          `json:"currency"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	CartIDs     []string        `json:"cartIds"`
	MenuItemIDs []string        `json:"menuItemIds"`
}

type CreatePaymentResponseDTO struct {
	PaymentURL string `json:"paymentUrl"`
	PaymentID  string `json:"paymentId"`
}

// POST /create-payment
func (h *RedirectHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreatePaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	reg, err := h.payments.RegisterPendingPayment(ctx, service.RegisterRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		PayerName:   req.Name,
		PayerEmail:  req.Email,
		CartLineIDs: req.CartIDs,
		MenuItemIDs: req.MenuItemIDs,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, CreatePaymentResponseDTO{PaymentURL: reg.RedirectURL, PaymentID: reg.PaymentID})
}

type callbackFunc func(context.Context, service.CallbackPayload) (*service.TransitionResult, error)

// POST /success-payment
func (h *RedirectHandler) Success(w http.ResponseWriter, r *http.Request) {
	h.callback(w, r, "success", h.payments.HandleSuccessCallback)
}

// POST /fail
func (h *RedirectHandler) Fail(w http.ResponseWriter, r *http.Request) {
	h.callback(w, r, "fail", h.payments.HandleFailureCallback)
}

// POST /cancle
func (h *RedirectHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.callback(w, r, "cancel", h.payments.HandleCancelCallback)
}

func (h *RedirectHandler) callback(w http.ResponseWriter, r *http.Request, kind string, handle callbackFunc) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid form body")
		return
	}
	payload := service.CallbackPayload{
		Status: r.PostForm.Get("status"),
		TranID: r.PostForm.Get("tran_id"),
		ValID:  r.PostForm.Get("val_id"),
	}

	res, err := handle(ctx, payload)
	recordCallback(kind, err == nil && res.Applied, err)
	if err != nil {
		h.logger.Warn("gateway callback failed",
			zap.String("kind", kind),
			zap.String("tran_id", payload.TranID),
			zap.String("request_id", getRequestID(r.Context())),
			zap.Error(err))
		handleServiceError(w, h.logger, err)
		return
	}

	http.Redirect(w, r, h.cartViewURL, http.StatusSeeOther)
}
