package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/pod-storefront/internal/infrastructure/store"
	"github.com/example/pod-storefront/internal/model"
)

// MockOrderRepository is an in-memory OrderRepository for testing. Its
// conditional updates hold the same guarantees as the SQL implementation.
type MockOrderRepository struct {
	mu     sync.Mutex
	orders map[int64]*model.Order
	nextID int64
	itemID int64

	// For tracking calls in tests
	CreateCalls     int
	TransitionCalls []TransitionCall
	CompleteCalls   int

	// Error injection
	CreateErr     error
	GetErr        error
	TransitionErr error
	CancelErr     error
	ClaimErr      error
	CompleteErr   error
}

// TransitionCall records parameters passed to Transition
type TransitionCall struct {
	ID   int64
	From []model.OrderStatus
	To   model.OrderStatus
}

// NewMockOrderRepository creates a new MockOrderRepository
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{orders: make(map[int64]*model.Order)}
}

// Count returns the number of stored orders.
func (m *MockOrderRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func cloneOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	if cp.Items == nil {
		cp.Items = []model.OrderItem{}
	}
	cp.ProviderOrderID = copyString(o.ProviderOrderID)
	cp.ProviderStatus = copyString(o.ProviderStatus)
	cp.TrackingNumber = copyString(o.TrackingNumber)
	return &cp
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func (m *MockOrderRepository) Create(ctx context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.nextID++
	now := time.Now()
	o.ID = m.nextID
	o.CreatedAt, o.UpdatedAt = now, now
	for i := range o.Items {
		m.itemID++
		o.Items[i].ID = m.itemID
	}
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *MockOrderRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, o := range m.orders {
		if o.ExternalID == externalID {
			return cloneOrder(o), nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MockOrderRepository) List(ctx context.Context, filter model.OrderFilter) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	list := make([]*model.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if len(filter.Statuses) > 0 && !containsOrderStatus(filter.Statuses, o.Status) {
			continue
		}
		if filter.Email != "" && !strings.EqualFold(o.Customer.Email, filter.Email) {
			continue
		}
		list = append(list, cloneOrder(o))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	if filter.Offset > 0 {
		if filter.Offset >= len(list) {
			return []*model.Order{}, nil
		}
		list = list[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(list) {
		list = list[:filter.Limit]
	}
	return list, nil
}

func containsOrderStatus(list []model.OrderStatus, s model.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (m *MockOrderRepository) Transition(ctx context.Context, id int64, from []model.OrderStatus, to model.OrderStatus, patch store.OrderPatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TransitionCalls = append(m.TransitionCalls, TransitionCall{ID: id, From: from, To: to})
	if m.TransitionErr != nil {
		return false, m.TransitionErr
	}
	o, ok := m.orders[id]
	if !ok || !containsOrderStatus(from, o.Status) {
		return false, nil
	}
	o.Status = to
	if patch.PaymentStatus != nil {
		o.PaymentStatus = *patch.PaymentStatus
	}
	if patch.PaymentReference != nil {
		o.PaymentReference = *patch.PaymentReference
	}
	if patch.ProviderStatus != nil {
		o.ProviderStatus = copyString(patch.ProviderStatus)
	}
	if patch.TrackingNumber != nil {
		o.TrackingNumber = copyString(patch.TrackingNumber)
	}
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockOrderRepository) CancelUnclaimed(ctx context.Context, id int64, from []model.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CancelErr != nil {
		return false, m.CancelErr
	}
	o, ok := m.orders[id]
	if !ok || !containsOrderStatus(from, o.Status) || o.SubmissionToken != "" || o.ProviderOrderID != nil {
		return false, nil
	}
	o.Status = model.OrderStatusCancelled
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockOrderRepository) ClaimSubmission(ctx context.Context, id int64, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClaimErr != nil {
		return false, m.ClaimErr
	}
	o, ok := m.orders[id]
	if !ok || o.Status != model.OrderStatusPaymentCompleted || o.ProviderOrderID != nil || o.SubmissionToken != "" {
		return false, nil
	}
	o.SubmissionToken = token
	return true, nil
}

func (m *MockOrderRepository) ReleaseSubmission(ctx context.Context, id int64, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.ProviderOrderID != nil || o.SubmissionToken == "" {
		return false, nil
	}
	if token != "" && o.SubmissionToken != token {
		return false, nil
	}
	o.SubmissionToken = ""
	return true, nil
}

func (m *MockOrderRepository) CompleteSubmission(ctx context.Context, id int64, token, shopID, providerOrderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalls++
	if m.CompleteErr != nil {
		return false, m.CompleteErr
	}
	o, ok := m.orders[id]
	if !ok || o.SubmissionToken != token || o.ProviderOrderID != nil || o.Status != model.OrderStatusPaymentCompleted {
		return false, nil
	}
	o.ProviderOrderID = &providerOrderID
	o.ProviderShopID = shopID
	o.Status = model.OrderStatusSubmittedToProduction
	o.SubmissionToken = ""
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockOrderRepository) MarkProductionRequested(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	o.ProductionRequested = true
	return nil
}

var _ store.OrderRepository = (*MockOrderRepository)(nil)
