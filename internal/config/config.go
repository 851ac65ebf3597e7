package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// STOREFRONT_BACKEND__BASE_URL or STOREFRONT_STORAGE__DRIVER.
const EnvPrefix = "STOREFRONT_"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverDynamoDB = "dynamodb"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Env      string `koanf:"env"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	Backend struct {
		BaseURL string        `koanf:"base_url"` // e.g. http://localhost:9999/api
		APIRoot string        `koanf:"api_root"` // origin used to resolve relative image urls
		Timeout time.Duration `koanf:"timeout"`  // 0 means no client-side timeout
	} `koanf:"backend"`

	Storage struct {
		Driver string        `koanf:"driver"`
		Table  string        `koanf:"table"`
		TTL    time.Duration `koanf:"ttl"`
	} `koanf:"storage"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Idempotency struct {
		Driver string        `koanf:"driver"`
		Table  string        `koanf:"table"`
		TTL    time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Sessions struct {
		Table string `koanf:"table"`
	} `koanf:"sessions"`

	Events struct {
		QueueURL string `koanf:"queue_url"`
	} `koanf:"events"`

	Metrics struct {
		CloudWatchEnabled bool   `koanf:"cloudwatch_enabled"`
		Namespace         string `koanf:"namespace"`
	} `koanf:"metrics"`

	Checkout struct {
		OrderPath     string        `koanf:"order_path"`
		OrdersPath    string        `koanf:"orders_path"` // order list page, path or absolute URL
		RedirectDelay time.Duration `koanf:"redirect_delay"`
	} `koanf:"checkout"`

	Cookie struct {
		Name   string        `koanf:"name"`
		Secure bool          `koanf:"secure"`
		MaxAge time.Duration `koanf:"max_age"`
	} `koanf:"cookie"`
}

// Load reads <dir>/base.yaml, then the optional <dir>/<envName>.yaml, then
// STOREFRONT_ environment variables. A .env file in the working directory is
// loaded into the process environment first when present.
func Load(dir, envName string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if dir != "" {
		if err := k.Load(file.Provider(filepath.Join(dir, "base.yaml")), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load base: %w", err)
		}
		if envName != "" {
			// optional per-environment overlay
			_ = k.Load(file.Provider(filepath.Join(dir, envName+".yaml")), yaml.Parser())
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "storefront-api"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":8080"
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:9999/api"
	}
	if c.Backend.APIRoot == "" {
		c.Backend.APIRoot = strings.TrimSuffix(strings.TrimSuffix(c.Backend.BaseURL, "/"), "/api")
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.Idempotency.Driver == "" {
		c.Idempotency.Driver = c.Storage.Driver
	}
	if c.Idempotency.TTL == 0 {
		c.Idempotency.TTL = 48 * time.Hour
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "Storefront"
	}
	if c.Checkout.OrderPath == "" {
		c.Checkout.OrderPath = "/order"
	}
	if c.Checkout.OrdersPath == "" {
		c.Checkout.OrdersPath = "/orders"
	}
	if c.Checkout.RedirectDelay == 0 {
		c.Checkout.RedirectDelay = 800 * time.Millisecond
	}
	if c.Cookie.Name == "" {
		c.Cookie.Name = "sid"
	}
	if c.Cookie.MaxAge == 0 {
		c.Cookie.MaxAge = 365 * 24 * time.Hour
	}
}

// Validate checks the fields each selected driver depends on.
func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url required")
	}
	for name, driver := range map[string]string{"storage": c.Storage.Driver, "idempotency": c.Idempotency.Driver} {
		switch driver {
		case DriverMemory:
		case DriverRedis:
			if c.Redis.Addr == "" {
				return fmt.Errorf("redis.addr required for %s.driver=redis", name)
			}
		case DriverDynamoDB:
		default:
			return fmt.Errorf("%s.driver %q not supported", name, driver)
		}
	}
	if c.Storage.Driver == DriverDynamoDB && c.Storage.Table == "" {
		return fmt.Errorf("storage.table required for storage.driver=dynamodb")
	}
	if c.Idempotency.Driver == DriverDynamoDB && c.Idempotency.Table == "" {
		return fmt.Errorf("idempotency.table required for idempotency.driver=dynamodb")
	}
	return nil
}

// NeedsAWS reports whether any configured component talks to AWS.
func (c Config) NeedsAWS() bool {
	return c.Storage.Driver == DriverDynamoDB ||
		c.Idempotency.Driver == DriverDynamoDB ||
		c.Sessions.Table != "" ||
		c.Events.QueueURL != "" ||
		c.Metrics.CloudWatchEnabled
}
