package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ErrNotConfigured is returned by Complete when the provider has no
// credentials.
var ErrNotConfigured = errors.New("llm provider not configured")

// Message represents a chat message sent to or received from the LLM.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Options configures a single LLM completion request.
type Options struct {
	MaxTokens   int64
	Temperature float64
}

// Response is the result of a completion.
type Response struct {
	Content      string
	FinishReason string
	PromptTokens int64
	OutputTokens int64
}

// Provider abstracts a text-completion backend.
type Provider interface {
	// Complete sends messages and returns the full response.
	Complete(ctx context.Context, messages []Message, opts Options) (*Response, error)

	// Name returns the provider name (e.g. "openai").
	Name() string

	// Available returns true if the provider is configured and ready.
	Available() bool
}

// Config holds LLM provider configuration.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Endpoint    string // base URL override for compatible endpoints
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
}

// ConfigFromEnv reads LLM configuration from environment variables.
// TRIPPLANNER_LLM_PROVIDER: openai, gemini (default: openai)
// TRIPPLANNER_LLM_API_KEY: falls back to OPENAI_API_KEY or GEMINI_API_KEY
func ConfigFromEnv() Config {
	return Config{Temperature: 0.7}.OverlayEnv().WithDefaults()
}

// OverlayEnv returns c with any TRIPPLANNER_LLM_* variables applied on top.
// Unparseable numeric values are ignored.
func (c Config) OverlayEnv() Config {
	if v := os.Getenv("TRIPPLANNER_LLM_PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("TRIPPLANNER_LLM_API_KEY"); v != "" {
		c.APIKey = v
	}
	if c.APIKey == "" {
		switch c.Provider {
		case ProviderGemini:
			c.APIKey = os.Getenv("GEMINI_API_KEY")
		case ProviderOpenAI, "":
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if v := os.Getenv("TRIPPLANNER_LLM_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("TRIPPLANNER_LLM_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("TRIPPLANNER_LLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.MaxTokens = n
		}
	}
	if v := os.Getenv("TRIPPLANNER_LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Temperature = f
		}
	}
	if v := os.Getenv("TRIPPLANNER_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Timeout = d
		}
	}
	return c
}

// WithDefaults fills in the per-provider model and limits.
func (c Config) WithDefaults() Config {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Model == "" {
		switch c.Provider {
		case ProviderGemini:
			c.Model = "gemini-2.0-flash"
		default:
			c.Model = "gpt-4"
		}
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1000
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}

// New builds the provider named by cfg.Provider. A provider without an API
// key is still returned; it reports Available() == false.
func New(ctx context.Context, cfg Config) (Provider, error) {
	cfg = cfg.WithDefaults()
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg), nil
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// resolve applies config defaults to per-call options.
func (c Config) resolve(opts Options) Options {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = c.MaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = c.Temperature
	}
	return opts
}
