package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"ctchen222/Connect-Four/internal/game"
	"ctchen222/Connect-Four/internal/validator"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Session store backends.
const (
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config is the runtime configuration of the server.
type Config struct {
	HTTPAddr string `hcl:"http_addr,optional" validate:"required"`

	Store      string        `hcl:"session_store,optional" validate:"oneof=redis sqlite"`
	RedisAddr  string        `hcl:"redis_addr,optional" validate:"required_if=Store redis"`
	SQLiteDSN  string        `hcl:"sqlite_dsn,optional" validate:"required_if=Store sqlite"`
	SessionTTL time.Duration `validate:"gt=0"`

	TokenSecret string        `hcl:"token_secret,optional" validate:"required,min=16"`
	// TokenTTL is measured from the last authorised request; each one
	// returns a refreshed token.
	TokenTTL    time.Duration `validate:"gt=0"`

	BoardWidth  int `hcl:"board_width,optional" validate:"gte=4,lte=32"`
	BoardHeight int `hcl:"board_height,optional" validate:"gte=4,lte=32"`

	LogLevel  string `hcl:"log_level,optional" validate:"oneof=debug info warn error"`
	LogFormat string `hcl:"log_format,optional" validate:"oneof=text json"`

	OtelEnabled       bool   `hcl:"otel_enabled,optional"`
	OtelCollectorAddr string `hcl:"otel_collector_addr,optional" validate:"required_if=OtelEnabled true"`
	ServiceVersion    string

	// Durations are written as Go duration strings in the file.
	SessionTTLRaw string `hcl:"session_ttl,optional"`
	TokenTTLRaw   string `hcl:"token_ttl,optional"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		HTTPAddr:          ":8080",
		Store:             StoreRedis,
		RedisAddr:         "localhost:6379",
		SQLiteDSN:         "file:connect4?mode=memory&cache=shared",
		SessionTTL:        2 * time.Hour,
		TokenSecret:       "change-me-connect-four-secret",
		TokenTTL:          24 * time.Hour,
		BoardWidth:        game.DefaultWidth,
		BoardHeight:       game.DefaultHeight,
		LogLevel:          "info",
		LogFormat:         "text",
		OtelEnabled:       false,
		OtelCollectorAddr: "otel-collector:4317",
		ServiceVersion:    "v0.1.0",
	}
}

// Load builds the configuration from defaults, the HCL file named by
// CONNECT4_CONFIG (if set) and environment variables, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONNECT4_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}

	// Decode on top of the current values so omitted attributes keep their defaults.
	diags = gohcl.DecodeBody(file.Body, nil, c)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	if c.SessionTTLRaw != "" {
		d, err := time.ParseDuration(c.SessionTTLRaw)
		if err != nil {
			return fmt.Errorf("invalid session_ttl in %s: %w", path, err)
		}
		c.SessionTTL = d
	}
	if c.TokenTTLRaw != "" {
		d, err := time.ParseDuration(c.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("invalid token_ttl in %s: %w", path, err)
		}
		c.TokenTTL = d
	}
	return nil
}

func (c *Config) loadEnv() error {
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.Store, "SESSION_STORE")
	setString(&c.RedisAddr, "REDIS_CONNSTRING")
	setString(&c.SQLiteDSN, "SQLITE_DSN")
	setString(&c.TokenSecret, "TOKEN_SECRET")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.OtelCollectorAddr, "OTEL_COLLECTOR_ADDR")

	if err := setDuration(&c.SessionTTL, "SESSION_TTL"); err != nil {
		return err
	}
	if err := setDuration(&c.TokenTTL, "TOKEN_TTL"); err != nil {
		return err
	}
	if err := setInt(&c.BoardWidth, "BOARD_WIDTH"); err != nil {
		return err
	}
	if err := setInt(&c.BoardHeight, "BOARD_HEIGHT"); err != nil {
		return err
	}
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED %q: %w", v, err)
		}
		c.OtelEnabled = b
	}
	return nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.GetValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}
