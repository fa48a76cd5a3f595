package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentFlow string

const (
	// PaymentFlowIntent is a card payment confirmed synchronously by the client.
	PaymentFlowIntent PaymentFlow = "intent"
	// PaymentFlowRedirect is a hosted-page payment confirmed by gateway callback.
	PaymentFlowRedirect PaymentFlow = "redirect"
)

// PaymentRecord is one payment attempt in the ledger. CartLineIDs is a
// snapshot taken at creation and is never rewritten.
type PaymentRecord struct {
	ID           string          `json:"paymentId"`
	Flow         PaymentFlow     `json:"flow"`
	OwnerEmail   string          `json:"email"`
	PayerName    string          `json:"name,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Status       PaymentStatus   `json:"status"`
	ExternalRef  string          `json:"externalRef,omitempty"`
	CartLineIDs  []string        `json:"cartIds"`
	MenuItemIDs  []string        `json:"menuItemIds"`
	CartPurgedAt *time.Time      `json:"cartPurgedAt,omitempty"`
	CreatedAt    time.Time       `json:"date"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ReceiptEvent is the outbox payload emitted once per applied terminal transition.
type ReceiptEvent struct {
	PaymentID  string          `json:"payment_id"`
	Flow       PaymentFlow     `json:"flow"`
	OwnerEmail string          `json:"owner_email"`
	PayerName  string          `json:"payer_name,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Status     PaymentStatus   `json:"status"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewReceiptEvent(rec *PaymentRecord) ReceiptEvent {
	return ReceiptEvent{
		PaymentID:  rec.ID,
		Flow:       rec.Flow,
		OwnerEmail: rec.OwnerEmail,
		PayerName:  rec.PayerName,
		Amount:     rec.Amount,
		Currency:   rec.Currency,
		Status:     rec.Status,
		OccurredAt: rec.UpdatedAt,
	}
}

// EventType is the outbox event_type header for a receipt.
func (e ReceiptEvent) EventType() string {
	return "payment." + e.Status.String()
}
