package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/example/pod-storefront/internal/api"
	"github.com/example/pod-storefront/internal/auth"
	"github.com/example/pod-storefront/internal/config"
	"github.com/example/pod-storefront/internal/domain/order"
	"github.com/example/pod-storefront/internal/domain/product"
	"github.com/example/pod-storefront/internal/events"
	"github.com/example/pod-storefront/internal/infrastructure/cache"
	"github.com/example/pod-storefront/internal/infrastructure/kafka"
	"github.com/example/pod-storefront/internal/infrastructure/metrics"
	"github.com/example/pod-storefront/internal/infrastructure/store"
	"github.com/example/pod-storefront/internal/logger"
	"github.com/example/pod-storefront/internal/payment"
	"github.com/example/pod-storefront/internal/provider"
)

func main() {
	if len(os.Args) > 2 && os.Args[1] == "hash-password" {
		hash, err := auth.HashAdminPassword(os.Args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	admin, err := auth.NewAdmin(auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), cfg.Auth.AdminPasswordHash)
	if err != nil {
		return fmt.Errorf("auth.admin_password_hash: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting storefront api",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("provider_driver", cfg.Provider.Driver),
		zap.Bool("provider_configured", cfg.Provider.Configured()),
		zap.String("payment_driver", cfg.Payment.Driver),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Bool("kafka", cfg.Kafka.Enabled))

	db, err := store.ConnectPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	log.Info("connected to postgres")

	if cfg.Database.AutoMigrate {
		migrator, err := store.NewMigrator(db, log)
		if err != nil {
			return err
		}
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var views cache.ViewCache = cache.NewMemory()
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisCache.Close()
		views = redisCache
		log.Info("using redis view cache", zap.String("addr", cfg.Redis.Addr))
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer producer.Close()
		publisher = producer
		log.Info("publishing events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	client := newProviderClient(cfg.Provider, m, log)

	gateway, err := newPaymentGateway(cfg.Payment, log)
	if err != nil {
		return err
	}

	productOpts := []product.Option{
		product.WithCache(views, cfg.Cache.TTL),
		product.WithPublisher(publisher),
		product.WithMetrics(m),
		product.WithLogger(log),
		product.WithConcurrency(cfg.Sync.Concurrency),
		product.WithMaxPages(cfg.Provider.MaxPages),
	}
	products := store.NewPostgresProductRepository(db)
	orders := store.NewPostgresOrderRepository(db)

	handlers := api.NewHandlers(api.Deps{
		Products: product.NewService(products, client, productOpts...),
		Catalog:  product.NewSyncService(client, products, productOpts...),
		Prices:   product.NewPriceService(client, products, productOpts...),
		Orders: order.NewService(orders, products, client, gateway, order.Config{
			ShopID:           cfg.Provider.ShopID,
			Currency:         cfg.Order.Currency,
			TaxRate:          cfg.Order.TaxRate,
			FlatShipping:     cfg.Order.FlatShipping,
			ShippingMethod:   cfg.Provider.ShippingMethod,
			SendToProduction: cfg.Provider.SendToProduction,
		}, order.WithPublisher(publisher), order.WithMetrics(m), order.WithLogger(log)),
		Admin:         admin,
		Provider:      client,
		PaymentDriver: gateway.Name(),
		DB:            db,
		Logger:        log,
	})
	if cfg.Auth.JWTSecret == "" || cfg.Auth.AdminPasswordHash == "" {
		log.Warn("admin authentication is not configured; admin routes will answer 503")
	}

	server := &http.Server{
		Addr: ":" + cfg.App.Port,
		Handler: api.NewRouter(handlers, api.RouterConfig{
			RequestTimeout: cfg.App.RequestTimeout,
			Gatherer:       reg,
			Logger:         log.Named("http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newProviderClient(cfg config.ProviderConfig, m *metrics.Metrics, log *zap.Logger) provider.Client {
	if cfg.Driver == config.ProviderDriverSimulated {
		log.Warn("using simulated print provider")
		return provider.NewSimulated(log)
	}
	if !cfg.Configured() {
		log.Warn("provider api key missing; provider calls will report not configured")
	}
	return provider.NewHTTPClient(provider.HTTPConfig{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Burst,
		Policy:    provider.ParsePolicy(cfg.Pagination),
	}, provider.WithMetrics(m), provider.WithLogger(log))
}

func newPaymentGateway(cfg config.PaymentConfig, log *zap.Logger) (payment.Gateway, error) {
	if cfg.Driver == config.PaymentDriverStripe {
		return payment.NewStripe(payment.StripeConfig{
			SecretKey: cfg.StripeSecretKey,
			AccountID: cfg.StripeAccount,
		}, log)
	}
	log.Warn("using simulated payment gateway")
	return payment.NewSimulated(log), nil
}
