package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/processor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type IntentService struct {
	processor  CardProcessor
	ledger     IntentLedger
	reconciler *Reconciler
	currency   string
	logger     *zap.Logger
}

func NewIntentService(p CardProcessor, ledger IntentLedger, reconciler *Reconciler, currency string, logger *zap.Logger) *IntentService {
	return &IntentService{
		processor:  p,
		ledger:     ledger,
		reconciler: reconciler,
		currency:   currency,
		logger:     logger,
	}
}

// CreateIntent validates the amount and opens a card payment intent. Nothing
// is stored locally.
func (s *IntentService) CreateIntent(ctx context.Context, rawAmount json.RawMessage) (*processor.Intent, error) {
	amount, err := domain.ParseAmount(rawAmount)
	if err != nil {
		return nil, err
	}

	minor := domain.ToMinorUnits(amount)
	intent, err := s.processor.CreatePaymentIntent(ctx, minor)
	if err != nil {
		s.logger.Error("create payment intent failed", zap.Int64("amount_minor", minor), zap.Error(err))
		return nil, err
	}

	s.logger.Info("payment intent created", zap.String("intent_id", intent.ID), zap.Int64("amount_minor", minor))
	return intent, nil
}

type ConfirmIntentRequest struct {
	OwnerEmail    string
	PayerName     string
	Amount        json.RawMessage
	TransactionID string
	CartLineIDs   []string
	MenuItemIDs   []string
}

type ConfirmResult struct {
	Record  *domain.PaymentRecord
	Created bool
	Purged  int64
}

// ConfirmIntentPayment records a card payment the client already completed
// and purges the cart lines it paid for. A repeated confirmation carrying the
// same transaction id returns the first record and touches nothing.
func (s *IntentService) ConfirmIntentPayment(ctx context.Context, req ConfirmIntentRequest) (*ConfirmResult, error) {
	email := strings.TrimSpace(req.OwnerEmail)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidPayment)
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	lineIDs, err := normalizeIDs(req.CartLineIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &domain.PaymentRecord{
		ID:          uuid.NewString(),
		Flow:        domain.PaymentFlowIntent,
		OwnerEmail:  email,
		PayerName:   strings.TrimSpace(req.PayerName),
		Amount:      amount,
		Currency:    s.currency,
		Status:      domain.PaymentStatusSuccess,
		ExternalRef: strings.TrimSpace(req.TransactionID),
		CartLineIDs: lineIDs,
		MenuItemIDs: nonNil(req.MenuItemIDs),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// The card charge has already been captured, so lines held by a pending
	// redirect payment are still recorded and purged. The overlap is logged
	// for manual refund review.
	s.warnOnActiveClaims(ctx, rec)

	stored, created, err := s.ledger.CreateCompleted(ctx, rec)
	if err != nil {
		return nil, err
	}
	result := &ConfirmResult{Record: stored, Created: created}
	if !created {
		s.logger.Info("duplicate intent confirmation ignored",
			zap.String("payment_id", stored.ID),
			zap.String("transaction_id", rec.ExternalRef))
		return result, nil
	}

	result.Purged = s.reconciler.purgeBestEffort(ctx, stored)
	return result, nil
}

func (s *IntentService) warnOnActiveClaims(ctx context.Context, rec *domain.PaymentRecord) {
	if len(rec.CartLineIDs) == 0 {
		return
	}
	claimed, err := s.ledger.ActiveClaims(ctx, rec.CartLineIDs)
	if err != nil {
		s.logger.Warn("cart line claim lookup failed",
			zap.String("payment_id", rec.ID),
			zap.Error(err))
		return
	}
	if len(claimed) > 0 {
		s.logger.Warn("card payment covers cart lines held by a pending redirect payment",
			zap.String("payment_id", rec.ID),
			zap.String("transaction_id", rec.ExternalRef),
			zap.Strings("cart_line_ids", claimed))
	}
}

func normalizeIDs(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: empty cart line id", domain.ErrInvalidPayment)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
