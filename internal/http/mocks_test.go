package http

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/processor"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/repository"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/service"
)

type MockIntents struct {
	Intent      *processor.Intent
	Result      *service.ConfirmResult
	Err         error
	LastAmount  json.RawMessage
	LastConfirm service.ConfirmIntentRequest
}

func (m *MockIntents) CreateIntent(_ context.Context, raw json.RawMessage) (*processor.Intent, error) {
	m.LastAmount = raw
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Intent, nil
}

func (m *MockIntents) ConfirmIntentPayment(_ context.Context, req service.ConfirmIntentRequest) (*service.ConfirmResult, error) {
	m.LastConfirm = req
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

type MockRedirects struct {
	Registration *service.Registration
	Err          error
	LastRegister service.RegisterRequest
	LastCallback service.CallbackPayload
	Calls        map[string]int
}

func NewMockRedirects() *MockRedirects {
	return &MockRedirects{Calls: map[string]int{}}
}

func (m *MockRedirects) RegisterPendingPayment(_ context.Context, req service.RegisterRequest) (*service.Registration, error) {
	m.LastRegister = req
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Registration, nil
}

func (m *MockRedirects) callback(kind string, p service.CallbackPayload) (*service.TransitionResult, error) {
	m.Calls[kind]++
	m.LastCallback = p
	if m.Err != nil {
		return nil, m.Err
	}
	return &service.TransitionResult{Record: &domain.PaymentRecord{ID: p.TranID}, Applied: true}, nil
}

func (m *MockRedirects) HandleSuccessCallback(_ context.Context, p service.CallbackPayload) (*service.TransitionResult, error) {
	return m.callback("success", p)
}

func (m *MockRedirects) HandleFailureCallback(_ context.Context, p service.CallbackPayload) (*service.TransitionResult, error) {
	return m.callback("fail", p)
}

func (m *MockRedirects) HandleCancelCallback(_ context.Context, p service.CallbackPayload) (*service.TransitionResult, error) {
	return m.callback("cancel", p)
}

type MockHistory struct {
	Records   []*domain.PaymentRecord
	Err       error
	LastOwner string
}

func (m *MockHistory) ForOwner(_ context.Context, email string) ([]*domain.PaymentRecord, error) {
	m.LastOwner = email
	return m.Records, m.Err
}

func (m *MockHistory) Redirects(context.Context) ([]*domain.PaymentRecord, error) {
	return m.Records, m.Err
}

type MockCarts struct {
	Lines    []domain.CartLine
	Err      error
	Added    *domain.CartLine
	Removed  []string
	NotFound bool
}

func (m *MockCarts) ListForOwner(context.Context, string) ([]domain.CartLine, error) {
	return m.Lines, m.Err
}

func (m *MockCarts) AddLine(_ context.Context, line *domain.CartLine) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.Added = line
	return "line-1", nil
}

func (m *MockCarts) RemoveLine(_ context.Context, id string) error {
	if m.NotFound {
		return repository.ErrCartLineNotFound
	}
	m.Removed = append(m.Removed, id)
	return m.Err
}

type MockAdmins struct {
	Admins map[string]bool
	Err    error
}

func (m *MockAdmins) IsAdmin(_ context.Context, email string) (bool, error) {
	return m.Admins[email], m.Err
}

type MockPinger struct{ Err error }

func (m MockPinger) Ping(context.Context) error { return m.Err }

var errBoom = errors.New("boom")
