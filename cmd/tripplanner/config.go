package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tripplanner/internal/api"
	"tripplanner/internal/planning/llm"
	"tripplanner/internal/storage"
)

// Config holds the server configuration.
type Config struct {
	Addr            string        `yaml:"addr"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	MapboxToken     string        `yaml:"mapbox_token"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	TrustedProxies  string        `yaml:"trusted_proxies"`
	LLM             LLMConfig     `yaml:"llm"`
	Sentry          SentryConfig  `yaml:"sentry"`
}

// LLMConfig selects the completion backend.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// LoadConfig loads configuration from an optional YAML file and environment
// variables. Environment variables override YAML values.
func LoadConfig(path string) (*Config, error) {
	rl := api.DefaultRateLimitConfig()
	cfg := &Config{
		// Defaults
		Addr:            ":8080",
		SessionTTL:      storage.DefaultSessionTTL,
		CleanupInterval: storage.DefaultCleanupInterval,
		RateLimitRPS:    rl.RequestsPerSecond,
		RateLimitBurst:  rl.Burst,
		Sentry:          SentryConfig{Environment: "production"},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TRIPPLANNER_ADDR"); v != "" {
		c.Addr = v
	}
	if p := os.Getenv("PORT"); p != "" { // Heroku-style
		c.Addr = ":" + p
	}
	if v := os.Getenv("TRIPPLANNER_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRIPPLANNER_SESSION_TTL: %w", err)
		}
		c.SessionTTL = d
	}
	if v := os.Getenv("TRIPPLANNER_CLEANUP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRIPPLANNER_CLEANUP_INTERVAL: %w", err)
		}
		c.CleanupInterval = d
	}
	if v := os.Getenv("TRIPPLANNER_CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("TRIPPLANNER_MAPBOX_TOKEN"); v != "" {
		c.MapboxToken = v
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimitRPS = f
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		c.RateLimitBurst = n
	}
	if v := os.Getenv("TRIPPLANNER_TRUSTED_PROXIES"); v != "" {
		c.TrustedProxies = v
	}
	if v := os.Getenv("SENTRY_DSN"); v != "" {
		c.Sentry.DSN = v
	}
	if v := os.Getenv("SENTRY_ENVIRONMENT"); v != "" {
		c.Sentry.Environment = v
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required (set TRIPPLANNER_ADDR or yaml)")
	}
	if c.SessionTTL < time.Minute {
		return errors.New("session_ttl must be at least 1 minute")
	}
	if c.CleanupInterval < 0 {
		return errors.New("cleanup_interval must not be negative")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return errors.New("rate_limit_rps and rate_limit_burst must not be negative")
	}
	switch c.LLMSettings().Provider {
	case llm.ProviderOpenAI, llm.ProviderGemini:
	default:
		return fmt.Errorf("llm.provider %q is not supported (openai, gemini)", c.LLM.Provider)
	}
	return nil
}

// LLMSettings returns the provider configuration with environment overrides
// and per-provider defaults applied.
func (c *Config) LLMSettings() llm.Config {
	return llm.Config{
		Provider:    strings.ToLower(c.LLM.Provider),
		APIKey:      c.LLM.APIKey,
		Model:       c.LLM.Model,
		Endpoint:    c.LLM.Endpoint,
		Temperature: 0.7,
		Timeout:     c.LLM.Timeout,
	}.OverlayEnv().WithDefaults()
}

// RateLimit returns the middleware configuration. A zero rate or burst
// disables limiting.
func (c *Config) RateLimit() api.RateLimitConfig {
	return api.RateLimitConfig{
		RequestsPerSecond: c.RateLimitRPS,
		Burst:             c.RateLimitBurst,
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
