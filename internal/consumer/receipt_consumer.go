package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/notifier"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ReceiptClaimer makes receipt delivery at-most-once across redeliveries.
type ReceiptClaimer interface {
	ClaimReceipt(ctx context.Context, paymentID string) (bool, error)
	ReleaseReceipt(ctx context.Context, paymentID string) error
}

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader MessageReader
	claims ReceiptClaimer
	sender Sender
	logger *zap.Logger
}

func NewKafkaReader(topic, groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewConsumer(reader MessageReader, claims ReceiptClaimer, sender Sender, logger *zap.Logger) *Consumer {
	return &Consumer{reader: reader, claims: claims, sender: sender, logger: logger}
}

func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info("receipt consumer started")
	for {
		if ctx.Err() != nil {
			c.logger.Info("receipt consumer stopped")
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Warn("error closing kafka reader", zap.Error(err))
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.logger.Error("error reading message", zap.Error(err))
		return
	}

	c.handle(ctx, m)
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	var event domain.ReceiptEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.logger.Error("error parsing receipt event", zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}
	if event.PaymentID == "" || strings.TrimSpace(event.OwnerEmail) == "" {
		c.logger.Warn("receipt event without payment id or recipient", zap.Int64("offset", m.Offset))
		return
	}
	if !event.Status.IsTerminal() {
		c.logger.Warn("receipt event for non-terminal payment",
			zap.String("payment_id", event.PaymentID),
			zap.String("status", event.Status.String()))
		return
	}

	claimed, err := c.claims.ClaimReceipt(ctx, event.PaymentID)
	if err != nil {
		// Without the claim store a redelivery could mail twice; receipts are best effort.
		c.logger.Error("receipt claim failed, skipping", zap.String("payment_id", event.PaymentID), zap.Error(err))
		return
	}
	if !claimed {
		c.logger.Info("receipt already sent, skipping", zap.String("payment_id", event.PaymentID))
		return
	}

	subject, body := notifier.Receipt(event)
	if err := c.sender.Send(ctx, event.OwnerEmail, subject, body); err != nil {
		c.logger.Error("receipt delivery failed",
			zap.String("payment_id", event.PaymentID),
			zap.Error(err))
		if errRelease := c.claims.ReleaseReceipt(context.Background(), event.PaymentID); errRelease != nil {
			c.logger.Warn("receipt claim release failed", zap.String("payment_id", event.PaymentID), zap.Error(errRelease))
		}
		return
	}

	c.logger.Info("receipt sent",
		zap.String("payment_id", event.PaymentID),
		zap.String("status", event.Status.String()))
}
