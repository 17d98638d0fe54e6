// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port          int           `yaml:"port"`
	AdminSecret   string        `yaml:"admin_secret"`    // HMAC secret for admin session tokens
	AdminPassword string        `yaml:"admin_password"`  // login password for /admin/login
	AdminTTL      time.Duration `yaml:"admin_ttl"`       // admin session lifetime
	SecureCookies bool          `yaml:"secure_cookies"`  // true behind TLS
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"` // optional; enables the purchase ledger
}

type PayHeroConfig struct {
	BaseURL   string `yaml:"base_url"`
	Platform  string `yaml:"platform"`
	AccountID string `yaml:"account_id"`
}

type PricingConfig struct {
	ExchangeRate string `yaml:"exchange_rate"` // KES per USD, e.g. "129.4"
}

// Confirmation strategies. fixed_delay assumes success after a wait without
// ever asking the gateway; it exists for demos only and config validation
// refuses it unless allow_unsafe is set.
const (
	StrategyPoll       = "poll"
	StrategyVerify     = "verify"
	StrategyFixedDelay = "fixed_delay"
)

type CheckoutConfig struct {
	Strategy        string        `yaml:"strategy"`         // poll | verify | fixed_delay
	PollInterval    time.Duration `yaml:"poll_interval"`    // cadence between status checks
	PollAttempts    int           `yaml:"poll_attempts"`    // attempt budget before TimedOut
	FixedDelay      time.Duration `yaml:"fixed_delay"`      // wait for the fixed_delay strategy
	ReferencePrefix string        `yaml:"reference_prefix"` // prefix of generated references
	AllowUnsafe     bool          `yaml:"allow_unsafe"`     // gate for fixed_delay
}

type ReconcilerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Database   DatabaseConfig   `yaml:"database"`
	PayHero    PayHeroConfig    `yaml:"payhero"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Checkout   CheckoutConfig   `yaml:"checkout"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8086
	}
	if cfg.Server.AdminTTL <= 0 {
		cfg.Server.AdminTTL = 30 * time.Minute
	}
	if cfg.Pricing.ExchangeRate == "" {
		cfg.Pricing.ExchangeRate = "129.4"
	}
	if cfg.Checkout.Strategy == "" {
		cfg.Checkout.Strategy = StrategyPoll
	}
	if cfg.Checkout.PollInterval <= 0 {
		cfg.Checkout.PollInterval = 5 * time.Second
	}
	if cfg.Checkout.PollAttempts <= 0 {
		cfg.Checkout.PollAttempts = 6
	}
	if cfg.Checkout.FixedDelay <= 0 {
		cfg.Checkout.FixedDelay = 15 * time.Second
	}
	if cfg.Checkout.ReferencePrefix == "" {
		cfg.Checkout.ReferencePrefix = "REMO"
	}
	if cfg.Reconciler.Interval <= 0 {
		cfg.Reconciler.Interval = time.Minute
	}
	if cfg.Reconciler.StaleAfter <= 0 {
		cfg.Reconciler.StaleAfter = 10 * time.Minute
	}

	// Minimal validation
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.PayHero.BaseURL == "" && !dev {
		return nil, errors.New("payhero.base_url is required outside dev mode")
	}
	switch cfg.Checkout.Strategy {
	case StrategyPoll, StrategyVerify:
	case StrategyFixedDelay:
		if !cfg.Checkout.AllowUnsafe {
			return nil, errors.New("checkout.strategy=fixed_delay reports success without confirmation; set checkout.allow_unsafe to use it anyway")
		}
	default:
		return nil, fmt.Errorf("unknown checkout.strategy %q", cfg.Checkout.Strategy)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
