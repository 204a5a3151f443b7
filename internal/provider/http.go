package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/example/pod-storefront/internal/apperr"
	"github.com/example/pod-storefront/internal/infrastructure/metrics"
)

const (
	// maxResponseSize limits the response body size to prevent memory exhaustion
	maxResponseSize = 10 * 1024 * 1024
	defaultPageSize = 50
	userAgent       = "pod-storefront/1.0"
)

// HTTPConfig configures HTTPClient.
type HTTPConfig struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second; 0 disables the limiter
	Burst     int
	Policy    Policy
	PageSize  int
}

// HTTPClient calls the provider's REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	policy     Policy
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// HTTPOption customises an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) { h.httpClient = c }
}

// WithMetrics records every call on m.
func WithMetrics(m *metrics.Metrics) HTTPOption {
	return func(h *HTTPClient) { h.metrics = m }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) HTTPOption {
	return func(h *HTTPClient) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHTTPClient builds a client. A missing API key is allowed; every call
// then fails with a not-configured error instead of reaching the network.
func NewHTTPClient(cfg HTTPConfig, opts ...HTTPOption) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	c := &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timeout:    timeout,
		policy:     cfg.Policy,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	if c.policy == "" {
		c.policy = PolicyAuto
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status reports whether credentials are present.
func (c *HTTPClient) Status() Status {
	if c.apiKey == "" || c.baseURL == "" {
		return StatusNotConfigured
	}
	return StatusConfigured
}

func (c *HTTPClient) GetShops(ctx context.Context) ([]Shop, error) {
	var shops []Shop
	if _, err := c.do(ctx, "get_shops", http.MethodGet, "/shops", nil, nil, &shops); err != nil {
		return nil, err
	}
	return shops, nil
}

// GetProducts fetches one catalog page. cursor is "" for the first page, a
// page number for enveloped listings, or a Link header target. Link targets
// are returned absolute; relative ones are resolved against the request.
func (c *HTTPClient) GetProducts(ctx context.Context, shopID, cursor string) (*Page[Product], error) {
	path := "/shops/" + url.PathEscape(shopID) + "/products"
	query := url.Values{}
	requested := 1

	if cursor == "" {
		query.Set("page", "1")
		query.Set("limit", strconv.Itoa(c.pageSize))
	} else if n, err := strconv.Atoi(cursor); err == nil {
		if n < 1 {
			return nil, invalidCursor(cursor)
		}
		requested = n
		query.Set("page", cursor)
		query.Set("limit", strconv.Itoa(c.pageSize))
	} else {
		linked, err := c.linkPath(cursor)
		if err != nil {
			return nil, err
		}
		path, query, requested = linked, nil, 0
	}

	var raw json.RawMessage
	header, err := c.do(ctx, "get_products", http.MethodGet, path, query, nil, &raw)
	if err != nil {
		return nil, err
	}
	page, err := decodeProductPage(raw, header, c.policy, requested)
	if err != nil {
		return nil, err
	}
	if page.HasNext {
		if _, err := strconv.Atoi(page.NextCursor); err != nil {
			current := c.baseURL + path
			if len(query) > 0 {
				current += "?" + query.Encode()
			}
			next, err := resolveReference(current, page.NextCursor)
			if err != nil {
				return nil, err
			}
			page.NextCursor = next
		}
	}
	return page, nil
}

// linkPath turns a next-page link into a request path under the base URL.
func (c *HTTPClient) linkPath(link string) (string, error) {
	abs, err := resolveReference(c.baseURL+"/", link)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(abs, c.baseURL+"/") {
		return "", apperr.NewProviderError(http.StatusBadGateway, "next page link points outside the provider")
	}
	return strings.TrimPrefix(abs, c.baseURL), nil
}

func resolveReference(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", invalidCursor(ref)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", invalidCursor(ref)
	}
	return b.ResolveReference(r).String(), nil
}

func invalidCursor(cursor string) *apperr.ProviderError {
	return apperr.NewProviderError(http.StatusBadGateway, fmt.Sprintf("invalid page cursor %q", cursor))
}

func (c *HTTPClient) GetProduct(ctx context.Context, shopID, productID string) (*Product, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, "get_product", http.MethodGet, productPath(shopID, productID), nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeProduct(raw)
}

func (c *HTTPClient) CreateProduct(ctx context.Context, shopID string, in ProductInput) (*Product, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, "create_product", http.MethodPost, "/shops/"+url.PathEscape(shopID)+"/products", nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeProduct(raw)
}

func (c *HTTPClient) UpdateProduct(ctx context.Context, shopID, productID string, in ProductInput) (*Product, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, "update_product", http.MethodPut, productPath(shopID, productID), nil, in, &raw); err != nil {
		return nil, err
	}
	return decodeProduct(raw)
}

func (c *HTTPClient) Publish(ctx context.Context, shopID, productID string, in PublishInput) error {
	_, err := c.do(ctx, "publish", http.MethodPost, productPath(shopID, productID)+"/publish", nil, in, nil)
	return err
}

func (c *HTTPClient) Unpublish(ctx context.Context, shopID, productID string) error {
	_, err := c.do(ctx, "unpublish", http.MethodPost, productPath(shopID, productID)+"/unpublish", nil, nil, nil)
	return err
}

func (c *HTTPClient) HaltPublishing(ctx context.Context, shopID, productID, reason string) error {
	body := map[string]string{"reason": reason}
	_, err := c.do(ctx, "publishing_failed", http.MethodPost, productPath(shopID, productID)+"/publishing_failed", nil, body, nil)
	return err
}

func (c *HTTPClient) ResetPublishingStatus(ctx context.Context, shopID, productID string) error {
	_, err := c.do(ctx, "publishing_reset", http.MethodPost, productPath(shopID, productID)+"/publishing_reset", nil, nil, nil)
	return err
}

func (c *HTTPClient) CreateOrder(ctx context.Context, shopID string, in OrderInput) (*Order, error) {
	var order Order
	if _, err := c.do(ctx, "create_order", http.MethodPost, "/shops/"+url.PathEscape(shopID)+"/orders", nil, in, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, apperr.InvalidResponse()
	}
	return &order, nil
}

func (c *HTTPClient) GetOrder(ctx context.Context, shopID, orderID string) (*Order, error) {
	var order Order
	if _, err := c.do(ctx, "get_order", http.MethodGet, orderPath(shopID, orderID), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

type shippingResponse struct {
	ShippingCost *int64 `json:"shipping_cost"`
	Standard     *int64 `json:"standard"`
	Express      *int64 `json:"express"`
}

func (c *HTTPClient) CalculateShipping(ctx context.Context, shopID string, in ShippingInput) (*ShippingCost, error) {
	var resp shippingResponse
	if _, err := c.do(ctx, "calculate_shipping", http.MethodPost, "/shops/"+url.PathEscape(shopID)+"/calculate-shipping", nil, in, &resp); err != nil {
		return nil, err
	}
	cost := &ShippingCost{}
	switch {
	case resp.ShippingCost != nil:
		cost.Amount = ToMajor(*resp.ShippingCost)
	case resp.Standard != nil:
		cost.Amount = ToMajor(*resp.Standard)
	default:
		return nil, apperr.InvalidResponse()
	}
	if resp.Express != nil {
		cost.Express = ToMajor(*resp.Express)
	}
	return cost, nil
}

func (c *HTTPClient) SubmitOrderForProduction(ctx context.Context, shopID, orderID string) error {
	_, err := c.do(ctx, "submit_order", http.MethodPost, orderPath(shopID, orderID)+"/submit", nil, nil, nil)
	return err
}

// do performs one request. out, when non-nil, must receive a JSON body.
func (c *HTTPClient) do(ctx context.Context, endpoint, method, path string, query url.Values, body, out any) (http.Header, error) {
	if c.Status() != StatusConfigured {
		return nil, apperr.NotConfigured("provider api key")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperr.Timeout()
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("provider: encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("provider: build %s request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json;charset=utf-8")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveProviderCall(endpoint, 0, time.Since(start))
		c.logger.Warn("provider request failed",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		if isTimeout(ctx, err) {
			return nil, apperr.Timeout()
		}
		return nil, apperr.NewProviderError(http.StatusBadGateway, "request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	c.metrics.ObserveProviderCall(endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, apperr.Timeout()
		}
		return nil, apperr.NewProviderError(http.StatusBadGateway, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := normalizeError(resp.StatusCode, respBody)
		c.logger.Warn("provider returned error",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("message", perr.Message))
		return nil, perr
	}

	if out != nil {
		if len(bytes.TrimSpace(respBody)) == 0 || json.Unmarshal(respBody, out) != nil {
			return nil, apperr.InvalidResponse()
		}
	}
	return resp.Header, nil
}

// normalizeError parses a non-2xx body. Bodies that are not JSON are reported
// as an invalid response rather than passed through.
func normalizeError(status int, body []byte) *apperr.ProviderError {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return apperr.InvalidResponse()
	}
	for _, key := range []string{"message", "error", "errors", "detail"} {
		if msg := messageFrom(payload[key]); msg != "" {
			return apperr.NewProviderError(status, msg)
		}
	}
	return apperr.NewProviderError(status, http.StatusText(status))
}

func messageFrom(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if msg, ok := val["reason"].(string); ok {
			return msg
		}
		if msg, ok := val["message"].(string); ok {
			return msg
		}
		encoded, _ := json.Marshal(val)
		return string(encoded)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if msg := messageFrom(item); msg != "" {
				parts = append(parts, msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func decodeProduct(raw json.RawMessage) (*Product, error) {
	var p Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, apperr.InvalidResponse()
	}
	p.Raw = append(json.RawMessage(nil), raw...)
	return &p, nil
}

func productPath(shopID, productID string) string {
	return "/shops/" + url.PathEscape(shopID) + "/products/" + url.PathEscape(productID)
}

func orderPath(shopID, orderID string) string {
	return "/shops/" + url.PathEscape(shopID) + "/orders/" + url.PathEscape(orderID)
}
