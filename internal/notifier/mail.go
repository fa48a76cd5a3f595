package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"gopkg.in/mail.v2"
)

const senderName = "Bistro Boss"

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer delivers receipts over SMTP.
type Mailer struct {
	dialer *mail.Dialer
	from   string
}

func NewMailer(cfg Config) *Mailer {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	return &Mailer{dialer: d, from: cfg.From}
}

func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetAddressHeader("From", m.from, senderName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// Receipt renders the subject and body for a settled payment.
func Receipt(ev domain.ReceiptEvent) (subject, body string) {
	amount := formatAmount(ev)
	switch ev.Status {
	case domain.PaymentStatusSuccess:
		return "Payment Confirmation", fmt.Sprintf(
			"Dear customer, your payment of %s has been successfully processed. Thank you for your purchase!",
			amount)
	case domain.PaymentStatusFailed:
		return "Payment Failed", fmt.Sprintf(
			"Dear customer, your payment of %s could not be completed. Your cart has been kept so you can try again.",
			amount)
	default:
		return "Payment Cancelled", fmt.Sprintf(
			"Dear customer, your payment of %s was cancelled. Your cart has been kept so you can try again.",
			amount)
	}
}

func formatAmount(ev domain.ReceiptEvent) string {
	amount := ev.Amount.StringFixed(2)
	switch strings.ToUpper(ev.Currency) {
	case "USD":
		return "$" + amount
	case "":
		return amount
	default:
		return strings.ToUpper(ev.Currency) + " " + amount
	}
}
