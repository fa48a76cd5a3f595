package processor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Intent struct {
	ID           string
	ClientSecret string
}

// StripeProcessor creates card payment intents. It keeps no local state.
type StripeProcessor struct {
	api      *client.API
	currency string
	timeout  time.Duration
}

func NewStripeProcessor(secretKey, currency string, timeout time.Duration) *StripeProcessor {
	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return newStripeProcessor(client.New(secretKey, stripe.NewBackends(httpClient)), currency, timeout)
}

func newStripeProcessor(api *client.API, currency string, timeout time.Duration) *StripeProcessor {
	return &StripeProcessor{api: api, currency: currency, timeout: timeout}
}

func (p *StripeProcessor) CreatePaymentIntent(ctx context.Context, amountMinor int64) (*Intent, error) {
	if amountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidAmount)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountMinor),
		Currency:           stripe.String(p.currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, classify(ctx, err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func classify(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fmt.Errorf("%w: %s", domain.ErrUpstreamPayment, stripeErr.Msg)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamPayment, err)
}
