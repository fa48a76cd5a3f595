package notifier

import (
	"context"
	"testing"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestReceipt(t *testing.T) {
	tests := []struct {
		name        string
		status      domain.PaymentStatus
		currency    string
		wantSubject string
		wantBody    string
	}{
		{
			name:        "success in dollars",
			status:      domain.PaymentStatusSuccess,
			currency:    "usd",
			wantSubject: "Payment Confirmation",
			wantBody:    "Dear customer, your payment of $12.50 has been successfully processed. Thank you for your purchase!",
		},
		{
			name:        "failed in taka",
			status:      domain.PaymentStatusFailed,
			currency:    "BDT",
			wantSubject: "Payment Failed",
			wantBody:    "Dear customer, your payment of BDT 12.50 could not be completed. Your cart has been kept so you can try again.",
		},
		{
			name:        "cancelled",
			status:      domain.PaymentStatusCancelled,
			currency:    "BDT",
			wantSubject: "Payment Cancelled",
			wantBody:    "Dear customer, your payment of BDT 12.50 was cancelled. Your cart has been kept so you can try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := Receipt(domain.ReceiptEvent{
				Status:   tt.status,
				Currency: tt.currency,
				Amount:   decimal.RequireFromString("12.5"),
			})
			assert.Equal(t, tt.wantSubject, subject)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestSend_CancelledContext(t *testing.T) {
	m := NewMailer(Config{Host: "127.0.0.1", Port: 1, From: "noreply@example.com"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Send(ctx, "diner@example.com", "s", "b")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSend_UnreachableServer(t *testing.T) {
	m := NewMailer(Config{Host: "127.0.0.1", Port: 1, From: "noreply@example.com"})

	err := m.Send(context.Background(), "diner@example.com", "s", "b")
	assert.Error(t, err)
}
