package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/example/pod-storefront/internal/apperr"
)

// Simulated is an in-memory provider. It is selected with
// provider.driver=simulated and doubles as the test implementation of Client.
type Simulated struct {
	mu sync.Mutex

	// PageSize controls GetProducts paging. Zero returns one flat page.
	PageSize int
	// Configured flips Status between configured and not_configured.
	Configured bool

	shops    []Shop
	products map[string][]Product // shop id -> products in listing order
	orders   map[string]*Order
	nextID   int

	failures map[string]error // "<method>:<id>" -> error
	calls    []Call

	logger *zap.Logger
}

// Call records one invocation.
type Call struct {
	Method string
	ShopID string
	ID     string
}

// NewSimulated returns an empty configured provider.
func NewSimulated(logger *zap.Logger) *Simulated {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulated{
		Configured: true,
		products:   make(map[string][]Product),
		orders:     make(map[string]*Order),
		failures:   make(map[string]error),
		nextID:     1000,
		logger:     logger,
	}
}

// AddShop registers a shop.
func (s *Simulated) AddShop(shop Shop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shops = append(s.shops, shop)
}

// AddProduct appends p to the shop's catalog.
func (s *Simulated) AddProduct(shopID string, p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ShopID = ID(shopID)
	p.Raw = nil
	s.products[shopID] = append(s.products[shopID], p)
}

// FailOn makes the named method fail with err for the given product or order
// id. Method names match the Client method names.
func (s *Simulated) FailOn(method, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+":"+id] = err
}

// Calls returns a copy of the recorded invocations.
func (s *Simulated) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount counts invocations of method.
func (s *Simulated) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// OrderByID returns a stored provider order.
func (s *Simulated) OrderByID(id string) (*Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

// SetOrderStatus changes a stored order's status, optionally adding a shipment.
func (s *Simulated) SetOrderStatus(id, status string, shipments ...Shipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		o.Status = status
		o.Shipments = append(o.Shipments, shipments...)
	}
}

func (s *Simulated) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Configured {
		return StatusNotConfigured
	}
	return StatusConfigured
}

// enter records a call and returns an injected failure. Callers hold s.mu.
func (s *Simulated) enter(method, shopID, id string) error {
	s.calls = append(s.calls, Call{Method: method, ShopID: shopID, ID: id})
	if !s.Configured {
		return apperr.NotConfigured("provider api key")
	}
	if err, ok := s.failures[method+":"+id]; ok {
		return err
	}
	return nil
}

func (s *Simulated) GetShops(ctx context.Context) ([]Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetShops", "", ""); err != nil {
		return nil, err
	}
	return append([]Shop(nil), s.shops...), nil
}

func (s *Simulated) GetProducts(ctx context.Context, shopID, cursor string) (*Page[Product], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetProducts", shopID, cursor); err != nil {
		return nil, err
	}
	all := s.products[shopID]

	if s.PageSize <= 0 {
		return &Page[Product]{Items: s.copyProducts(all), Total: len(all)}, nil
	}

	page := 1
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 1 {
			return nil, apperr.Validation("invalid page cursor %q", cursor)
		}
		page = n
	}
	start := (page - 1) * s.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + s.PageSize
	if end > len(all) {
		end = len(all)
	}
	result := &Page[Product]{Items: s.copyProducts(all[start:end]), Total: len(all)}
	if end < len(all) {
		result.HasNext = true
		result.NextCursor = strconv.Itoa(page + 1)
	}
	return result, nil
}

func (s *Simulated) GetProduct(ctx context.Context, shopID, productID string) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetProduct", shopID, productID); err != nil {
		return nil, err
	}
	p, _, ok := s.find(shopID, productID)
	if !ok {
		return nil, apperr.NewProviderError(404, "product not found")
	}
	return s.withRaw(*p), nil
}

func (s *Simulated) CreateProduct(ctx context.Context, shopID string, in ProductInput) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateProduct", shopID, ""); err != nil {
		return nil, err
	}
	s.nextID++
	p := Product{
		ID:          ID(strconv.Itoa(s.nextID)),
		ShopID:      ID(shopID),
		Title:       in.Title,
		Description: in.Description,
		Tags:        in.Tags,
	}
	for _, v := range in.Variants {
		enabled := v.IsEnabled == nil || *v.IsEnabled
		p.Variants = append(p.Variants, Variant{ID: v.ID, Price: v.Price, IsEnabled: enabled})
	}
	s.products[shopID] = append(s.products[shopID], p)
	return s.withRaw(p), nil
}

func (s *Simulated) UpdateProduct(ctx context.Context, shopID, productID string, in ProductInput) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateProduct", shopID, productID); err != nil {
		return nil, err
	}
	p, _, ok := s.find(shopID, productID)
	if !ok {
		return nil, apperr.NewProviderError(404, "product not found")
	}
	if in.Title != "" {
		p.Title = in.Title
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.Tags != nil {
		p.Tags = in.Tags
	}
	for _, vi := range in.Variants {
		for i := range p.Variants {
			if p.Variants[i].ID == vi.ID {
				p.Variants[i].Price = vi.Price
				if vi.IsEnabled != nil {
					p.Variants[i].IsEnabled = *vi.IsEnabled
				}
			}
		}
	}
	return s.withRaw(*p), nil
}

func (s *Simulated) Publish(ctx context.Context, shopID, productID string, in PublishInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Publish", shopID, productID); err != nil {
		return err
	}
	return s.setVisible(shopID, productID, true)
}

func (s *Simulated) Unpublish(ctx context.Context, shopID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Unpublish", shopID, productID); err != nil {
		return err
	}
	return s.setVisible(shopID, productID, false)
}

func (s *Simulated) HaltPublishing(ctx context.Context, shopID, productID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("HaltPublishing", shopID, productID); err != nil {
		return err
	}
	p, _, ok := s.find(shopID, productID)
	if !ok {
		return apperr.NewProviderError(404, "product not found")
	}
	p.IsLocked = false
	return nil
}

func (s *Simulated) ResetPublishingStatus(ctx context.Context, shopID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ResetPublishingStatus", shopID, productID); err != nil {
		return err
	}
	p, _, ok := s.find(shopID, productID)
	if !ok {
		return apperr.NewProviderError(404, "product not found")
	}
	p.IsLocked = false
	return nil
}

func (s *Simulated) CreateOrder(ctx context.Context, shopID string, in OrderInput) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateOrder", shopID, in.ExternalID); err != nil {
		return nil, err
	}
	if len(in.LineItems) == 0 {
		return nil, apperr.NewProviderError(400, "line_items is required")
	}
	s.nextID++
	o := &Order{
		ID:         ID(fmt.Sprintf("sim-%d", s.nextID)),
		ExternalID: in.ExternalID,
		Status:     "pending",
	}
	s.orders[string(o.ID)] = o
	s.logger.Debug("simulated provider order created",
		zap.String("order_id", string(o.ID)),
		zap.String("external_id", in.ExternalID))
	cp := *o
	return &cp, nil
}

func (s *Simulated) GetOrder(ctx context.Context, shopID, orderID string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetOrder", shopID, orderID); err != nil {
		return nil, err
	}
	o, ok := s.orders[orderID]
	if !ok {
		return nil, apperr.NewProviderError(404, "order not found")
	}
	cp := *o
	cp.Shipments = append([]Shipment(nil), o.Shipments...)
	return &cp, nil
}

// CalculateShipping charges a flat 4.00 for the first item plus 1.00 for each
// additional unit.
func (s *Simulated) CalculateShipping(ctx context.Context, shopID string, in ShippingInput) (*ShippingCost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CalculateShipping", shopID, ""); err != nil {
		return nil, err
	}
	units := 0
	for _, li := range in.LineItems {
		units += li.Quantity
	}
	if units == 0 {
		return nil, apperr.NewProviderError(400, "line_items is required")
	}
	minor := int64(400 + 100*(units-1))
	return &ShippingCost{Amount: ToMajor(minor), Express: ToMajor(minor * 2)}, nil
}

func (s *Simulated) SubmitOrderForProduction(ctx context.Context, shopID, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("SubmitOrderForProduction", shopID, orderID); err != nil {
		return err
	}
	o, ok := s.orders[orderID]
	if !ok {
		return apperr.NewProviderError(404, "order not found")
	}
	o.Status = "sending-to-production"
	return nil
}

func (s *Simulated) find(shopID, productID string) (*Product, int, bool) {
	list := s.products[shopID]
	for i := range list {
		if string(list[i].ID) == productID {
			return &list[i], i, true
		}
	}
	return nil, -1, false
}

func (s *Simulated) setVisible(shopID, productID string, visible bool) error {
	p, _, ok := s.find(shopID, productID)
	if !ok {
		return apperr.NewProviderError(404, "product not found")
	}
	p.Visible = visible
	return nil
}

func (s *Simulated) copyProducts(src []Product) []Product {
	out := make([]Product, 0, len(src))
	for _, p := range src {
		out = append(out, *s.withRaw(p))
	}
	return out
}

// withRaw returns a detached copy with Raw populated as the HTTP client would.
func (s *Simulated) withRaw(p Product) *Product {
	p.Tags = append([]string(nil), p.Tags...)
	p.Images = append([]Image(nil), p.Images...)
	p.Variants = append([]Variant(nil), p.Variants...)
	raw, _ := json.Marshal(p)
	p.Raw = raw
	return &p
}

// ProductIDs lists a shop's product ids in sorted order.
func (s *Simulated) ProductIDs(shopID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.products[shopID]))
	for _, p := range s.products[shopID] {
		ids = append(ids, string(p.ID))
	}
	sort.Strings(ids)
	return ids
}
