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

type ChatConfig struct {
	// GatewayURL is the base URL of the WhatsApp HTTP gateway.
	GatewayURL string `yaml:"gateway_url"`
	Token      string `yaml:"token"`
	// AdminChannelID receives escalation notifications.
	AdminChannelID string `yaml:"admin_channel_id"`
}

type OracleConfig struct {
	OpenAIKey string `yaml:"openai_key"`
	Model     string `yaml:"model"`
}

type CalendarConfig struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// SigningSecret is appended to the canonical payload before hashing.
	SigningSecret string `yaml:"signing_secret"`
}

type PortalConfig struct {
	BaseURL   string `yaml:"base_url"`
	Login     string `yaml:"login"`
	Password  string `yaml:"password"`
	ServiceID string `yaml:"service_id"`
	// CookiePath is the on-disk mirror of the session tokens.
	CookiePath string `yaml:"cookie_path"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type BookingConfig struct {
	// NotifyDelay is the unconfirmed-payment warning delay; ExpireDelay is
	// the additional wait before the reservation is cancelled.
	NotifyDelay time.Duration `yaml:"notify_delay"`
	ExpireDelay time.Duration `yaml:"expire_delay"`
	// RequiredPrepayment is the transfer amount that marks a booking paid.
	RequiredPrepayment int64 `yaml:"required_prepayment"`
	// SweepInterval is how often stale unpaid bookings are re-checked.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type WebConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	// Workers bounds concurrent webhook dispatch; 0 means one per CPU.
	Workers int `yaml:"workers"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Chat     ChatConfig     `yaml:"chat"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Calendar CalendarConfig `yaml:"calendar"`
	Portal   PortalConfig   `yaml:"portal"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Booking  BookingConfig  `yaml:"booking"`
	Web      WebConfig      `yaml:"web"`

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
	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = "gpt-4o"
	}
	if cfg.Calendar.BaseURL == "" {
		cfg.Calendar.BaseURL = "https://realtycalendar.ru"
	}
	if cfg.Portal.BaseURL == "" {
		cfg.Portal.BaseURL = "https://merchant.kaspi.kz"
	}
	if cfg.Portal.CookiePath == "" {
		cfg.Portal.CookiePath = "cookies.json"
	}
	if cfg.Booking.NotifyDelay <= 0 {
		cfg.Booking.NotifyDelay = 5 * time.Minute
	}
	if cfg.Booking.ExpireDelay <= 0 {
		cfg.Booking.ExpireDelay = 5 * time.Minute
	}
	if cfg.Booking.RequiredPrepayment <= 0 {
		cfg.Booking.RequiredPrepayment = 10000
	}
	if cfg.Booking.SweepInterval <= 0 {
		cfg.Booking.SweepInterval = time.Minute
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}

	// Minimal validation
	if cfg.Chat.GatewayURL == "" {
		return nil, errors.New("chat.gateway_url is required")
	}
	if cfg.Oracle.OpenAIKey == "" {
		return nil, errors.New("oracle.openai_key is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
