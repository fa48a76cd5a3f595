package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"go.uber.org/zap"
)

type TransitionResult struct {
	Record  *domain.PaymentRecord
	Applied bool
	Purged  int64
}

// Reconciler applies terminal transitions to ledger records and purges the
// cart lines a successful payment consumed.
type Reconciler struct {
	ledger Ledger
	carts  CartPurger
	logger *zap.Logger
}

func NewReconciler(ledger Ledger, carts CartPurger, logger *zap.Logger) *Reconciler {
	return &Reconciler{ledger: ledger, carts: carts, logger: logger}
}

// ApplyTerminalTransition moves a pending record to target. A record that is
// already terminal is returned unchanged with Applied=false and no side
// effects. The receipt for an applied transition is queued by the ledger in
// the same write.
func (r *Reconciler) ApplyTerminalTransition(ctx context.Context, paymentID string, target domain.PaymentStatus, purgeOnSuccess bool) (*TransitionResult, error) {
	if !target.IsTerminal() {
		return nil, fmt.Errorf("%w: target %s is not terminal", domain.ErrIllegalTransition, target)
	}

	rec, applied, err := r.ledger.Transition(ctx, paymentID, target)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Record: rec, Applied: applied}
	if !applied {
		r.logger.Info("payment already settled",
			zap.String("payment_id", paymentID),
			zap.String("status", rec.Status.String()),
			zap.String("requested", target.String()))
		return result, nil
	}

	r.logger.Info("payment settled",
		zap.String("payment_id", paymentID),
		zap.String("status", rec.Status.String()))

	if target == domain.PaymentStatusSuccess && purgeOnSuccess {
		result.Purged = r.purgeBestEffort(ctx, rec)
	}
	return result, nil
}

// CompletePurge deletes the record's cart lines and stamps the record.
func (r *Reconciler) CompletePurge(ctx context.Context, rec *domain.PaymentRecord) (int64, error) {
	purged, err := r.carts.PurgeLines(ctx, rec.OwnerEmail, rec.CartLineIDs)
	if err != nil {
		return 0, fmt.Errorf("purge cart lines for payment %s: %w", rec.ID, err)
	}

	if err := r.ledger.MarkCartPurged(ctx, rec.ID); err != nil {
		return purged, fmt.Errorf("mark payment %s purged: %w", rec.ID, err)
	}
	now := time.Now().UTC()
	rec.CartPurgedAt = &now
	return purged, nil
}

// purgeBestEffort runs after the transition is committed. A failure leaves
// cart_purged_at unset so the outbox recovery sweep finishes the job.
func (r *Reconciler) purgeBestEffort(ctx context.Context, rec *domain.PaymentRecord) int64 {
	purged, err := r.CompletePurge(ctx, rec)
	if err != nil {
		r.logger.Warn("cart purge deferred to recovery",
			zap.String("payment_id", rec.ID),
			zap.Error(err))
		return purged
	}
	r.logger.Info("cart lines purged",
		zap.String("payment_id", rec.ID),
		zap.Int64("purged", purged),
		zap.Int("requested", len(rec.CartLineIDs)))
	return purged
}
