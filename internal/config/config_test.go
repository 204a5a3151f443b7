package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 60*time.Second, cfg.App.RequestTimeout)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, ProviderDriverHTTP, cfg.Provider.Driver)
	assert.Equal(t, "https://api.printify.com/v1", cfg.Provider.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, "auto", cfg.Provider.Pagination)
	assert.False(t, cfg.Provider.Configured())
	assert.Equal(t, 1, cfg.Sync.Concurrency)
	assert.Equal(t, "USD", cfg.Order.Currency)
	assert.True(t, cfg.Order.TaxRate.IsZero())
	assert.True(t, decimal.RequireFromString("4.99").Equal(cfg.Order.FlatShipping))
	assert.Equal(t, PaymentDriverSimulated, cfg.Payment.Driver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("POD_PROVIDER_API_KEY", "secret-key")
	t.Setenv("POD_PROVIDER_BASE_URL", "https://provider.test/v1/")
	t.Setenv("POD_SYNC_CONCURRENCY", "4")
	t.Setenv("POD_ORDER_TAX_RATE", "0.0825")
	t.Setenv("POD_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Provider.Configured())
	assert.Equal(t, "https://provider.test/v1", cfg.Provider.BaseURL)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.True(t, decimal.RequireFromString("0.0825").Equal(cfg.Order.TaxRate))
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_RejectsBadTaxRate(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("POD_ORDER_TAX_RATE", "eight percent")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Provider: ProviderConfig{Driver: ProviderDriverHTTP, Pagination: "auto", Timeout: time.Second, MaxPages: 10},
			Sync:     SyncConfig{Concurrency: 1},
			Order:    OrderConfig{Currency: "USD", TaxRate: decimal.Zero, FlatShipping: decimal.Zero},
			Payment:  PaymentConfig{Driver: PaymentDriverSimulated},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider driver", func(c *Config) { c.Provider.Driver = "ftp" }},
		{"unknown pagination", func(c *Config) { c.Provider.Pagination = "cursor" }},
		{"zero timeout", func(c *Config) { c.Provider.Timeout = 0 }},
		{"zero concurrency", func(c *Config) { c.Sync.Concurrency = 0 }},
		{"negative tax", func(c *Config) { c.Order.TaxRate = decimal.NewFromInt(-1) }},
		{"bad currency", func(c *Config) { c.Order.Currency = "DOLLAR" }},
		{"stripe without key", func(c *Config) { c.Payment.Driver = PaymentDriverStripe }},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_MissingAPIKeyIsNotAnError(t *testing.T) {
	cfg := &Config{
		Provider: ProviderConfig{Driver: ProviderDriverHTTP, Pagination: "flat", Timeout: time.Second, MaxPages: 1},
		Sync:     SyncConfig{Concurrency: 1},
		Order:    OrderConfig{Currency: "EUR"},
		Payment:  PaymentConfig{Driver: PaymentDriverSimulated},
	}
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.Provider.Configured())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
