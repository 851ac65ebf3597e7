package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBase(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoad_DefaultsFromMinimalFile(t *testing.T) {
	dir := writeBase(t, "app:\n  name: test\n")

	cfg, err := Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, DriverMemory, cfg.Idempotency.Driver)
	assert.Equal(t, "http://localhost:9999", cfg.Backend.APIRoot)
	assert.Equal(t, 800*time.Millisecond, cfg.Checkout.RedirectDelay)
	assert.Equal(t, "/orders", cfg.Checkout.OrdersPath)
	assert.Equal(t, "sid", cfg.Cookie.Name)
	assert.False(t, cfg.NeedsAWS())
}

func TestLoad_EnvOverlayWins(t *testing.T) {
	dir := writeBase(t, "backend:\n  base_url: http://file/api\nstorage:\n  driver: memory\n")
	t.Setenv("STOREFRONT_BACKEND__BASE_URL", "http://env/api")
	t.Setenv("STOREFRONT_STORAGE__DRIVER", "redis")
	t.Setenv("STOREFRONT_REDIS__ADDR", "localhost:6380")

	cfg, err := Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "http://env/api", cfg.Backend.BaseURL)
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
}

func TestLoad_OrdersPathAcceptsAbsoluteURL(t *testing.T) {
	dir := writeBase(t, "checkout:\n  orders_path: /orders\n")
	t.Setenv("STOREFRONT_CHECKOUT__ORDERS_PATH", "https://shop.example.com/orders")

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/orders", cfg.Checkout.OrdersPath)
}

func TestLoad_EnvironmentFileOverlay(t *testing.T) {
	dir := writeBase(t, "checkout:\n  redirect_delay: 800ms\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staging.yaml"), []byte("checkout:\n  redirect_delay: 2s\n"), 0o600))

	cfg, err := Load(dir, "staging")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Checkout.RedirectDelay)
}

func TestLoad_MissingBaseFile(t *testing.T) {
	_, err := Load(t.TempDir(), "")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()
	require.NoError(t, cfg.Validate())

	cfg.Storage.Driver = DriverDynamoDB
	cfg.Storage.Table = ""
	assert.Error(t, cfg.Validate())

	cfg.Storage.Table = "client-storage"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.NeedsAWS())

	cfg.Idempotency.Driver = DriverRedis
	cfg.Redis.Addr = ""
	assert.Error(t, cfg.Validate())

	cfg.Idempotency.Driver = "etcd"
	assert.Error(t, cfg.Validate())
}
