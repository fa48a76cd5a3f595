package service

import (
	"context"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
)

type History struct {
	ledger HistoryLedger
}

func NewHistory(ledger HistoryLedger) *History {
	return &History{ledger: ledger}
}

func (h *History) ForOwner(ctx context.Context, email string) ([]*domain.PaymentRecord, error) {
	return h.ledger.ListByOwner(ctx, email)
}

func (h *History) Redirects(ctx context.Context) ([]*domain.PaymentRecord, error) {
	return h.ledger.ListByFlow(ctx, domain.PaymentFlowRedirect)
}
