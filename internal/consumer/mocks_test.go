package consumer

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
)

// MockReader replays queued messages and then blocks until ctx is done.
type MockReader struct {
	mu       sync.Mutex
	Messages []kafka.Message
	Err      error
	Closed   bool
}

func (m *MockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if m.Err != nil {
		err := m.Err
		m.Err = nil
		m.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(m.Messages) > 0 {
		msg := m.Messages[0]
		m.Messages = m.Messages[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *MockReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

type sentMail struct {
	To, Subject, Body string
}

type MockSender struct {
	mu   sync.Mutex
	Sent []sentMail
	Err  error
}

func (m *MockSender) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *MockSender) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

type MockClaims struct {
	mu       sync.Mutex
	claimed  map[string]bool
	ClaimErr error
	Released []string
}

func NewMockClaims() *MockClaims {
	return &MockClaims{claimed: map[string]bool{}}
}

func (m *MockClaims) ClaimReceipt(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClaimErr != nil {
		return false, m.ClaimErr
	}
	if m.claimed[id] {
		return false, nil
	}
	m.claimed[id] = true
	return true, nil
}

func (m *MockClaims) ReleaseReceipt(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, id)
	m.Released = append(m.Released, id)
	return nil
}
