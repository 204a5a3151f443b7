package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/pod-storefront/internal/infrastructure/store"
	"github.com/example/pod-storefront/internal/model"
)

// MockProductRepository is an in-memory ProductRepository for testing
type MockProductRepository struct {
	mu       sync.RWMutex
	products map[int64]*model.Product
	nextID   int64

	// For tracking calls in tests
	UpsertCalls      []*model.Product
	UpdatePriceCalls []UpdatePriceCall

	// Error injection
	GetErr         error
	ListErr        error
	CreateErr      error
	UpsertErr      error
	UpsertErrFor   map[string]error // provider product id -> error
	UpdatePriceErr error
	DeleteErr      error
}

// UpdatePriceCall records parameters passed to UpdatePrice
type UpdatePriceCall struct {
	ID    int64
	Price decimal.Decimal
}

// NewMockProductRepository creates a new MockProductRepository
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products:     make(map[int64]*model.Product),
		UpsertErrFor: make(map[string]error),
	}
}

// Seed stores p as-is, assigning an id when missing.
func (m *MockProductRepository) Seed(p *model.Product) *model.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		m.nextID++
		p.ID = m.nextID
	} else if p.ID > m.nextID {
		m.nextID = p.ID
	}
	if p.Status == "" {
		p.Status = model.ProductStatusActive
	}
	cp := clone(p)
	m.products[p.ID] = cp
	return clone(cp)
}

// Count returns the number of stored products.
func (m *MockProductRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products)
}

func clone(p *model.Product) *model.Product {
	cp := *p
	cp.ProviderData = append([]byte(nil), p.ProviderData...)
	return &cp
}

func (m *MockProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(p), nil
}

func (m *MockProductRepository) GetByProviderKey(ctx context.Context, shopID, providerProductID string) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if p := m.findByKey(shopID, providerProductID); p != nil {
		return clone(p), nil
	}
	return nil, store.ErrNotFound
}

func (m *MockProductRepository) findByKey(shopID, providerProductID string) *model.Product {
	for _, p := range m.products {
		if p.ProviderShopID == shopID && p.ProviderProductID == providerProductID {
			return p
		}
	}
	return nil
}

func (m *MockProductRepository) List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	out := make([]*model.Product, 0)
	for _, p := range m.sorted() {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, p.Status) {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.ShopID != "" && p.ProviderShopID != filter.ShopID {
			continue
		}
		out = append(out, clone(p))
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*model.Product{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MockProductRepository) sorted() []*model.Product {
	list := make([]*model.Product, 0, len(m.products))
	for _, p := range m.products {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func containsStatus(list []model.ProductStatus, s model.ProductStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (m *MockProductRepository) Categories(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range m.products {
		if !p.IsActive() || p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MockProductRepository) Create(ctx context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.nextID++
	now := time.Now()
	p.ID = m.nextID
	p.CreatedAt, p.UpdatedAt = now, now
	m.products[p.ID] = clone(p)
	return nil
}

func (m *MockProductRepository) Update(ctx context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.products[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Name = p.Name
	existing.Description = p.Description
	existing.Category = p.Category
	existing.ImageURL = p.ImageURL
	existing.Status = p.Status
	existing.UpdatedAt = time.Now()
	p.UpdatedAt = existing.UpdatedAt
	return nil
}

func (m *MockProductRepository) UpsertByProviderKey(ctx context.Context, p *model.Product) (*model.Product, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls = append(m.UpsertCalls, clone(p))
	if m.UpsertErr != nil {
		return nil, false, m.UpsertErr
	}
	if err, ok := m.UpsertErrFor[p.ProviderProductID]; ok {
		return nil, false, err
	}

	now := time.Now()
	if existing := m.findByKey(p.ProviderShopID, p.ProviderProductID); existing != nil {
		existing.Name = p.Name
		existing.Description = p.Description
		existing.Price = p.Price
		existing.ImageURL = p.ImageURL
		if existing.Category == "" {
			existing.Category = p.Category
		}
		existing.ProviderData = append([]byte(nil), p.ProviderData...)
		existing.UpdatedAt = now
		return clone(existing), false, nil
	}

	m.nextID++
	saved := clone(p)
	saved.ID = m.nextID
	saved.CreatedAt, saved.UpdatedAt = now, now
	m.products[saved.ID] = saved
	return clone(saved), true, nil
}

func (m *MockProductRepository) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdatePriceCalls = append(m.UpdatePriceCalls, UpdatePriceCall{ID: id, Price: price})
	if m.UpdatePriceErr != nil {
		return m.UpdatePriceErr
	}
	p, ok := m.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Price = price
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MockProductRepository) SetStatus(ctx context.Context, id int64, status model.ProductStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MockProductRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

var _ store.ProductRepository = (*MockProductRepository)(nil)
