package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/cache"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/gateway"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/processor"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/repository"
)

// MockLedger is an in-memory ledger with the same compare-and-set semantics as
// the Postgres implementation.
type MockLedger struct {
	mu       sync.Mutex
	records  map[string]*domain.PaymentRecord
	claims   map[string]string
	refs     map[string]string
	Receipts []domain.ReceiptEvent

	GetErr             error
	TransitionErr      error
	CreatePendingErr   error
	CreateCompletedErr error
	MarkPurgedErr      error
	ActiveClaimsErr    error

	CreatePendingCalls int
	MarkPurgedCalls    int
}

func NewMockLedger() *MockLedger {
	return &MockLedger{
		records: map[string]*domain.PaymentRecord{},
		claims:  map[string]string{},
		refs:    map[string]string{},
	}
}

func clone(rec *domain.PaymentRecord) *domain.PaymentRecord {
	c := *rec
	c.CartLineIDs = append([]string{}, rec.CartLineIDs...)
	c.MenuItemIDs = append([]string{}, rec.MenuItemIDs...)
	return &c
}

func (m *MockLedger) Seed(rec *domain.PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = clone(rec)
	if rec.Status == domain.PaymentStatusPending {
		for _, id := range rec.CartLineIDs {
			m.claims[id] = rec.ID
		}
	}
}

func (m *MockLedger) Record(id string) *domain.PaymentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil
	}
	return clone(rec)
}

func (m *MockLedger) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MockLedger) ReceiptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Receipts)
}

func (m *MockLedger) GetByID(_ context.Context, id string) (*domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return clone(rec), nil
}

func (m *MockLedger) Transition(_ context.Context, id string, target domain.PaymentStatus) (*domain.PaymentRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TransitionErr != nil {
		return nil, false, m.TransitionErr
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, false, domain.ErrRecordNotFound
	}
	if !rec.Status.CanTransitionTo(target) {
		return clone(rec), false, nil
	}
	rec.Status = target
	rec.UpdatedAt = rec.UpdatedAt.Add(1)
	for line, owner := range m.claims {
		if owner == id {
			delete(m.claims, line)
		}
	}
	m.Receipts = append(m.Receipts, domain.NewReceiptEvent(rec))
	return clone(rec), true, nil
}

func (m *MockLedger) MarkCartPurged(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkPurgedCalls++
	if m.MarkPurgedErr != nil {
		return m.MarkPurgedErr
	}
	if rec, ok := m.records[id]; ok && rec.CartPurgedAt == nil {
		t := rec.UpdatedAt
		rec.CartPurgedAt = &t
	}
	return nil
}

func (m *MockLedger) CreatePending(_ context.Context, rec *domain.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatePendingCalls++
	if m.CreatePendingErr != nil {
		return m.CreatePendingErr
	}
	for _, id := range rec.CartLineIDs {
		if _, held := m.claims[id]; held {
			return domain.ErrCartLineReserved
		}
	}
	for _, id := range rec.CartLineIDs {
		m.claims[id] = rec.ID
	}
	m.records[rec.ID] = clone(rec)
	return nil
}

func (m *MockLedger) ActiveClaims(_ context.Context, lineIDs []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ActiveClaimsErr != nil {
		return nil, m.ActiveClaimsErr
	}
	claimed := []string{}
	for _, id := range lineIDs {
		if _, held := m.claims[id]; held {
			claimed = append(claimed, id)
		}
	}
	sort.Strings(claimed)
	return claimed, nil
}

func (m *MockLedger) CreateCompleted(_ context.Context, rec *domain.PaymentRecord) (*domain.PaymentRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateCompletedErr != nil {
		return nil, false, m.CreateCompletedErr
	}
	if rec.ExternalRef != "" {
		key := string(rec.Flow) + "|" + rec.ExternalRef
		if id, ok := m.refs[key]; ok {
			return clone(m.records[id]), false, nil
		}
		m.refs[key] = rec.ID
	}
	m.records[rec.ID] = clone(rec)
	m.Receipts = append(m.Receipts, domain.NewReceiptEvent(rec))
	return clone(rec), true, nil
}

func (m *MockLedger) ListByOwner(_ context.Context, email string) ([]*domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.PaymentRecord{}
	for _, rec := range m.records {
		if rec.OwnerEmail == email {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

func (m *MockLedger) ListByFlow(_ context.Context, flow domain.PaymentFlow) ([]*domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.PaymentRecord{}
	for _, rec := range m.records {
		if rec.Flow == flow {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

// MockCartRepository implements repository.CartRepository in memory.
type MockCartRepository struct {
	mu    sync.Mutex
	lines map[string]domain.CartLine
	next  int

	FindErr       error
	FindByIDsErr  error
	DeleteManyErr error

	// AfterFind runs once FindByOwner has read the lines, outside the lock.
	AfterFind func()

	FindCalls       int
	DeleteManyCalls int
	DeletedTotal    int64
}

func NewMockCartRepository(lines ...domain.CartLine) *MockCartRepository {
	m := &MockCartRepository{lines: map[string]domain.CartLine{}}
	for _, l := range lines {
		m.lines[l.ID] = l
	}
	return m
}

func (m *MockCartRepository) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lines[id]
	return ok
}

func (m *MockCartRepository) FindByOwner(_ context.Context, email string) ([]domain.CartLine, error) {
	m.mu.Lock()
	m.FindCalls++
	if m.FindErr != nil {
		m.mu.Unlock()
		return nil, m.FindErr
	}
	out := []domain.CartLine{}
	for _, l := range m.lines {
		if l.OwnerEmail == email {
			out = append(out, l)
		}
	}
	hook := m.AfterFind
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *MockCartRepository) FindByIDs(_ context.Context, ids []string) ([]domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindByIDsErr != nil {
		return nil, m.FindByIDsErr
	}
	out := []domain.CartLine{}
	for _, id := range ids {
		if l, ok := m.lines[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MockCartRepository) Insert(_ context.Context, line *domain.CartLine) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	line.ID = fmt.Sprintf("line-new-%d", m.next)
	m.lines[line.ID] = *line
	return line.ID, nil
}

func (m *MockCartRepository) DeleteOne(_ context.Context, id string) (*domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lines[id]
	if !ok {
		return nil, repository.ErrCartLineNotFound
	}
	delete(m.lines, id)
	return &l, nil
}

func (m *MockCartRepository) DeleteMany(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteManyCalls++
	if m.DeleteManyErr != nil {
		return 0, m.DeleteManyErr
	}
	var n int64
	for _, id := range ids {
		if _, ok := m.lines[id]; ok {
			delete(m.lines, id)
			n++
		}
	}
	m.DeletedTotal += n
	return n, nil
}

// MockCache implements cache.CartCache in memory.
type MockCache struct {
	mu      sync.Mutex
	entries map[string][]domain.CartLine
	GetErr  error

	Deleted []string
}

func NewMockCache() *MockCache {
	return &MockCache{entries: map[string][]domain.CartLine{}}
}

func (m *MockCache) Get(_ context.Context, email string) ([]domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	lines, ok := m.entries[email]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return lines, nil
}

func (m *MockCache) Set(_ context.Context, email string, lines []domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[email] = lines
	return nil
}

func (m *MockCache) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, email)
	m.Deleted = append(m.Deleted, email)
	return nil
}

func (m *MockCache) DeletedFor(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Deleted {
		if e == email {
			n++
		}
	}
	return n
}

type MockProcessor struct {
	Intent     *processor.Intent
	Err        error
	Calls      int
	LastAmount int64
}

func (m *MockProcessor) CreatePaymentIntent(_ context.Context, amountMinor int64) (*processor.Intent, error) {
	m.Calls++
	m.LastAmount = amountMinor
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Intent, nil
}

type MockGateway struct {
	Session     *gateway.Session
	InitErr     error
	Validation  *gateway.Validation
	ValidateErr error

	InitCalls     int
	ValidateCalls int
	LastInit      gateway.InitRequest
}

func (m *MockGateway) Initiate(_ context.Context, req gateway.InitRequest) (*gateway.Session, error) {
	m.InitCalls++
	m.LastInit = req
	if m.InitErr != nil {
		return nil, m.InitErr
	}
	return m.Session, nil
}

func (m *MockGateway) Validate(_ context.Context, _ string) (*gateway.Validation, error) {
	m.ValidateCalls++
	if m.ValidateErr != nil {
		return nil, m.ValidateErr
	}
	return m.Validation, nil
}
