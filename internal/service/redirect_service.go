package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/gateway"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const callbackStatusValid = "VALID"

type RegisterRequest struct {
	Amount      json.RawMessage
	Currency    string
	PayerName   string
	PayerEmail  string
	CartLineIDs []string
	MenuItemIDs []string
}

type Registration struct {
	PaymentID   string
	RedirectURL string
}

// CallbackPayload is the subset of the gateway's form post the service reads.
type CallbackPayload struct {
	Status string
	TranID string
	ValID  string
}

type RedirectService struct {
	gateway          RedirectGateway
	ledger           RedirectLedger
	reconciler       *Reconciler
	validateCallback bool
	logger           *zap.Logger
}

func NewRedirectService(gw RedirectGateway, ledger RedirectLedger, reconciler *Reconciler, validateCallback bool, logger *zap.Logger) *RedirectService {
	return &RedirectService{
		gateway:          gw,
		ledger:           ledger,
		reconciler:       reconciler,
		validateCallback: validateCallback,
		logger:           logger,
	}
}

// RegisterPendingPayment opens a hosted payment session and, only once the
// gateway accepted it, stores a pending record keyed by the new payment id.
func (s *RedirectService) RegisterPendingPayment(ctx context.Context, req RegisterRequest) (*Registration, error) {
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", domain.ErrInvalidPayment)
	}
	email := strings.TrimSpace(req.PayerEmail)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid payer email", domain.ErrInvalidPayment)
	}
	lineIDs, err := normalizeIDs(req.CartLineIDs)
	if err != nil {
		return nil, err
	}
	if len(lineIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one cart line is required", domain.ErrInvalidPayment)
	}

	claimed, err := s.ledger.ActiveClaims(ctx, lineIDs)
	if err != nil {
		return nil, err
	}
	if len(claimed) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrCartLineReserved, strings.Join(claimed, ","))
	}

	paymentID := uuid.NewString()
	session, err := s.gateway.Initiate(ctx, gateway.InitRequest{
		TranID:        paymentID,
		Amount:        amount,
		Currency:      currency,
		CustomerName:  strings.TrimSpace(req.PayerName),
		CustomerEmail: email,
		ItemCount:     len(lineIDs),
	})
	if err != nil {
		s.logger.Error("gateway session failed", zap.String("payment_id", paymentID), zap.Error(err))
		return nil, err
	}

	rec := &domain.PaymentRecord{
		ID:          paymentID,
		Flow:        domain.PaymentFlowRedirect,
		OwnerEmail:  email,
		PayerName:   strings.TrimSpace(req.PayerName),
		Amount:      amount,
		Currency:    currency,
		Status:      domain.PaymentStatusPending,
		ExternalRef: session.SessionKey,
		CartLineIDs: lineIDs,
		MenuItemIDs: nonNil(req.MenuItemIDs),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.ledger.CreatePending(ctx, rec); err != nil {
		s.logger.Error("pending payment not stored, gateway session abandoned",
			zap.String("payment_id", paymentID),
			zap.String("session_key", session.SessionKey),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("pending payment registered", zap.String("payment_id", paymentID))
	return &Registration{PaymentID: paymentID, RedirectURL: session.RedirectURL}, nil
}

// HandleSuccessCallback settles a payment the gateway reports as VALID and
// purges its cart lines.
func (s *RedirectService) HandleSuccessCallback(ctx context.Context, p CallbackPayload) (*TransitionResult, error) {
	rec, err := s.lookup(ctx, p.TranID)
	if err != nil {
		return nil, err
	}
	if p.Status != callbackStatusValid {
		s.logger.Warn("success callback rejected",
			zap.String("payment_id", rec.ID),
			zap.String("gateway_status", p.Status))
		return nil, fmt.Errorf("%w: gateway status %q", domain.ErrPaymentRejected, p.Status)
	}
	if rec.Status.IsTerminal() {
		return &TransitionResult{Record: rec}, nil
	}
	if err := s.verify(ctx, rec, p.ValID); err != nil {
		return nil, err
	}

	return s.reconciler.ApplyTerminalTransition(ctx, rec.ID, domain.PaymentStatusSuccess, true)
}

func (s *RedirectService) HandleFailureCallback(ctx context.Context, p CallbackPayload) (*TransitionResult, error) {
	return s.settle(ctx, p, domain.PaymentStatusFailed)
}

func (s *RedirectService) HandleCancelCallback(ctx context.Context, p CallbackPayload) (*TransitionResult, error) {
	return s.settle(ctx, p, domain.PaymentStatusCancelled)
}

func (s *RedirectService) settle(ctx context.Context, p CallbackPayload, target domain.PaymentStatus) (*TransitionResult, error) {
	if strings.TrimSpace(p.TranID) == "" {
		return nil, fmt.Errorf("%w: missing tran_id", domain.ErrRecordNotFound)
	}
	return s.reconciler.ApplyTerminalTransition(ctx, strings.TrimSpace(p.TranID), target, false)
}

func (s *RedirectService) lookup(ctx context.Context, tranID string) (*domain.PaymentRecord, error) {
	tranID = strings.TrimSpace(tranID)
	if tranID == "" {
		return nil, fmt.Errorf("%w: missing tran_id", domain.ErrRecordNotFound)
	}
	return s.ledger.GetByID(ctx, tranID)
}

// verify cross-checks a callback against the gateway's validation API when a
// val_id is present.
func (s *RedirectService) verify(ctx context.Context, rec *domain.PaymentRecord, valID string) error {
	if !s.validateCallback || valID == "" {
		return nil
	}

	v, err := s.gateway.Validate(ctx, valID)
	if err != nil {
		return err
	}
	if !v.Valid() || v.TranID != rec.ID {
		return fmt.Errorf("%w: validation status %q for tran_id %q", domain.ErrPaymentRejected, v.Status, v.TranID)
	}
	if !v.Amount.IsZero() && !v.Amount.Equal(rec.Amount) {
		return fmt.Errorf("%w: validated amount %s does not match %s", domain.ErrPaymentRejected, v.Amount, rec.Amount)
	}
	return nil
}
