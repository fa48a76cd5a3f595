package http

import (
	"context"
	"encoding/json"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/processor"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/service"
)

type IntentPayments interface {
	CreateIntent(ctx context.Context, rawAmount json.RawMessage) (*processor.Intent, error)
	ConfirmIntentPayment(ctx context.Context, req service.ConfirmIntentRequest) (*service.ConfirmResult, error)
}

type RedirectPayments interface {
	RegisterPendingPayment(ctx context.Context, req service.RegisterRequest) (*service.Registration, error)
	HandleSuccessCallback(ctx context.Context, p service.CallbackPayload) (*service.TransitionResult, error)
	HandleFailureCallback(ctx context.Context, p service.CallbackPayload) (*service.TransitionResult, error)
	HandleCancelCallback(ctx context.Context, p service.CallbackPayload) (*service.TransitionResult, error)
}

type PaymentHistory interface {
	ForOwner(ctx context.Context, email string) ([]*domain.PaymentRecord, error)
	Redirects(ctx context.Context) ([]*domain.PaymentRecord, error)
}

type Carts interface {
	ListForOwner(ctx context.Context, email string) ([]domain.CartLine, error)
	AddLine(ctx context.Context, line *domain.CartLine) (string, error)
	RemoveLine(ctx context.Context, id string) error
}

type TokenService interface {
	Issue(email string) (string, error)
	Verify(token string) (string, error)
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}
