package product

import (
	"time"

	"go.uber.org/zap"

	"github.com/example/pod-storefront/internal/events"
	"github.com/example/pod-storefront/internal/infrastructure/cache"
	"github.com/example/pod-storefront/internal/infrastructure/metrics"
)

type options struct {
	views       cache.ViewCache
	viewTTL     time.Duration
	publisher   events.Publisher
	metrics     *metrics.Metrics
	logger      *zap.Logger
	concurrency int
	maxPages    int
}

// Option configures the services in this package.
type Option func(*options)

// WithCache enables cached catalog views. Entries live for ttl.
func WithCache(views cache.ViewCache, ttl time.Duration) Option {
	return func(o *options) {
		o.views = views
		o.viewTTL = ttl
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithConcurrency bounds the number of items synced in parallel.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithMaxPages bounds catalog pagination.
func WithMaxPages(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPages = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		publisher:   events.NopPublisher{},
		logger:      zap.NewNop(),
		viewTTL:     5 * time.Minute,
		concurrency: 1,
		maxPages:    500,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
