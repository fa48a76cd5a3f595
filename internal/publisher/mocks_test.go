package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	r "github.com/Naiemjoy1/bistro-restaurants-server/internal/repository"
	"github.com/segmentio/kafka-go"
)

type MockRepository struct {
	OutboxEvents   []*r.OutboxEvent
	GetEventsErr   error
	MarkErr        error
	ProcessedIDs   []int64
	Unpurged       []*domain.PaymentRecord
	GetUnpurgedErr error
	LastGrace      time.Duration
}

func (m *MockRepository) GetUnprocessedEvents(context.Context, int) ([]*r.OutboxEvent, error) {
	if m.GetEventsErr != nil {
		return nil, m.GetEventsErr
	}
	ev := m.OutboxEvents
	m.OutboxEvents = nil
	return ev, nil
}

func (m *MockRepository) MarkEventAsProcessed(_ context.Context, id int64) error {
	if m.MarkErr != nil {
		return m.MarkErr
	}
	m.ProcessedIDs = append(m.ProcessedIDs, id)
	return nil
}

func (m *MockRepository) GetUnpurgedPayments(_ context.Context, grace time.Duration, _ int) ([]*domain.PaymentRecord, error) {
	m.LastGrace = grace
	if m.GetUnpurgedErr != nil {
		return nil, m.GetUnpurgedErr
	}
	return m.Unpurged, nil
}

type MockPurger struct {
	FailFor   map[string]error
	Completed []string
}

func (m *MockPurger) CompletePurge(_ context.Context, rec *domain.PaymentRecord) (int64, error) {
	if err := m.FailFor[rec.ID]; err != nil {
		return 0, err
	}
	m.Completed = append(m.Completed, rec.ID)
	return int64(len(rec.CartLineIDs)), nil
}

type MockWriter struct {
	mu       sync.Mutex
	Messages []kafka.Message
	FailOn   map[string]error
	Closed   bool
}

func (m *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		if err := m.FailOn[string(msg.Key)]; err != nil {
			return err
		}
		m.Messages = append(m.Messages, msg)
	}
	return nil
}

func (m *MockWriter) Close() error {
	m.Closed = true
	return nil
}
