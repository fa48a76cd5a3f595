package publisher

import (
	"context"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	r "github.com/Naiemjoy1/bistro-restaurants-server/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	eventBatchSize    = 100
	recoveryBatchSize = 50
)

// OutboxStore is the part of the payment ledger the poller reads.
type OutboxStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*r.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	GetUnpurgedPayments(ctx context.Context, grace time.Duration, limit int) ([]*domain.PaymentRecord, error)
}

// PurgeCompleter finishes cart purges that failed after a payment settled.
type PurgeCompleter interface {
	CompletePurge(ctx context.Context, rec *domain.PaymentRecord) (int64, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	EventTick    time.Duration
	RecoveryTick time.Duration
	PurgeGrace   time.Duration
}

type OutboxPoller struct {
	cfg    Config
	repo   OutboxStore
	purger PurgeCompleter
	writer MessageWriter
	logger *zap.Logger
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}
}

func NewOutboxPoller(cfg Config, repo OutboxStore, purger PurgeCompleter, writer MessageWriter, logger *zap.Logger) *OutboxPoller {
	if cfg.EventTick <= 0 {
		cfg.EventTick = time.Second
	}
	if cfg.RecoveryTick <= 0 {
		cfg.RecoveryTick = 30 * time.Second
	}
	return &OutboxPoller{cfg: cfg, repo: repo, purger: purger, writer: writer, logger: logger}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.cfg.EventTick)
	recoveryTicker := time.NewTicker(p.cfg.RecoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()

	p.logger.Info("outbox poller started",
		zap.Duration("event_tick", p.cfg.EventTick),
		zap.Duration("recovery_tick", p.cfg.RecoveryTick))

	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverUnpurgedPayments(ctx)
		case <-ctx.Done():
			p.logger.Info("outbox poller stopped")
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, eventBatchSize)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			// Stop here so later receipts for the same payment keep their order.
			p.logger.Error("failed to publish outbox event",
				zap.Int64("event_id", event.ID),
				zap.String("payment_id", event.AggregateID),
				zap.Error(err))
			return
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.Error("failed to mark outbox event as processed",
				zap.Int64("event_id", event.ID),
				zap.Error(err))
			continue
		}
	}
}

// recoverUnpurgedPayments finishes cart purges for successful payments whose
// purge failed after the status change was committed.
func (p *OutboxPoller) recoverUnpurgedPayments(ctx context.Context) {
	records, err := p.repo.GetUnpurgedPayments(ctx, p.cfg.PurgeGrace, recoveryBatchSize)
	if err != nil {
		p.logger.Error("failed to get unpurged payments", zap.Error(err))
		return
	}

	for _, rec := range records {
		purged, err := p.purger.CompletePurge(ctx, rec)
		if err != nil {
			p.logger.Warn("purge recovery failed", zap.String("payment_id", rec.ID), zap.Error(err))
			continue
		}
		p.logger.Info("purge recovered", zap.String("payment_id", rec.ID), zap.Int64("purged", purged))
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *r.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // payment id keeps one payment on one partition
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}
