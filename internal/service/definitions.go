package service

import (
	"context"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/gateway"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/processor"
)

// Ledger is the part of the payment store the reconciliation engine needs.
// Transition must be an atomic compare-and-set from pending.
type Ledger interface {
	GetByID(ctx context.Context, id string) (*domain.PaymentRecord, error)
	Transition(ctx context.Context, id string, target domain.PaymentStatus) (*domain.PaymentRecord, bool, error)
	MarkCartPurged(ctx context.Context, id string) error
}

type RedirectLedger interface {
	Ledger
	CreatePending(ctx context.Context, rec *domain.PaymentRecord) error
	ActiveClaims(ctx context.Context, lineIDs []string) ([]string, error)
}

type IntentLedger interface {
	ActiveClaims(ctx context.Context, lineIDs []string) ([]string, error)
	CreateCompleted(ctx context.Context, rec *domain.PaymentRecord) (*domain.PaymentRecord, bool, error)
}

type HistoryLedger interface {
	ListByOwner(ctx context.Context, email string) ([]*domain.PaymentRecord, error)
	ListByFlow(ctx context.Context, flow domain.PaymentFlow) ([]*domain.PaymentRecord, error)
}

type CartPurger interface {
	PurgeLines(ctx context.Context, payerEmail string, ids []string) (int64, error)
}

type CardProcessor interface {
	CreatePaymentIntent(ctx context.Context, amountMinor int64) (*processor.Intent, error)
}

type RedirectGateway interface {
	Initiate(ctx context.Context, req gateway.InitRequest) (*gateway.Session, error)
	Validate(ctx context.Context, valID string) (*gateway.Validation, error)
}
