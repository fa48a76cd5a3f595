package service

import (
	"testing"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/gateway"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/processor"
	"go.uber.org/zap"
)

type fixture struct {
	ledger     *MockLedger
	carts      *MockCartRepository
	cache      *MockCache
	gateway    *MockGateway
	processor  *MockProcessor
	cartSvc    *CartService
	reconciler *Reconciler
	intent     *IntentService
	redirect   *RedirectService
}

func newFixture(t *testing.T, lines ...domain.CartLine) *fixture {
	t.Helper()
	logger := zap.NewNop()

	f := &fixture{
		ledger: NewMockLedger(),
		carts:  NewMockCartRepository(lines...),
		cache:  NewMockCache(),
		gateway: &MockGateway{
			Session: &gateway.Session{SessionKey: "SK1", RedirectURL: "https://pay.example/SK1"},
		},
		processor: &MockProcessor{
			Intent: &processor.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"},
		},
	}
	f.cartSvc = NewCartService(f.carts, f.cache, logger)
	f.reconciler = NewReconciler(f.ledger, f.cartSvc, logger)
	f.intent = NewIntentService(f.processor, f.ledger, f.reconciler, "usd", logger)
	f.redirect = NewRedirectService(f.gateway, f.ledger, f.reconciler, true, logger)
	return f
}

func line(id, email string) domain.CartLine {
	return domain.CartLine{ID: id, OwnerEmail: email, MenuItemID: "menu-" + id, Name: "Dish", Price: 10}
}
