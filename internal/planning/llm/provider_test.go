package llm

import (
	"context"
	"testing"
	"time"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("TRIPPLANNER_LLM_PROVIDER", "")
	t.Setenv("TRIPPLANNER_LLM_API_KEY", "")
	t.Setenv("TRIPPLANNER_LLM_MODEL", "")
	t.Setenv("TRIPPLANNER_LLM_TIMEOUT", "")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg := ConfigFromEnv()
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected openai provider, got %s", cfg.Provider)
	}
	if cfg.APIKey != "sk-env" {
		t.Errorf("expected fallback to OPENAI_API_KEY, got %q", cfg.APIKey)
	}
	if cfg.Model != "gpt-4" {
		t.Errorf("expected default model gpt-4, got %s", cfg.Model)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", cfg.Temperature)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("expected 60s timeout, got %v", cfg.Timeout)
	}
}

func TestConfigFromEnvGemini(t *testing.T) {
	t.Setenv("TRIPPLANNER_LLM_PROVIDER", "Gemini")
	t.Setenv("TRIPPLANNER_LLM_API_KEY", "")
	t.Setenv("TRIPPLANNER_LLM_MODEL", "")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("TRIPPLANNER_LLM_TIMEOUT", "5s")

	cfg := ConfigFromEnv()
	if cfg.Provider != ProviderGemini {
		t.Errorf("expected gemini provider, got %s", cfg.Provider)
	}
	if cfg.APIKey != "g-key" {
		t.Errorf("expected GEMINI_API_KEY fallback, got %q", cfg.APIKey)
	}
	if cfg.Model != "gemini-2.0-flash" {
		t.Errorf("unexpected default model %s", cfg.Model)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Timeout)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  bool
	}{
		{"", ProviderOpenAI, false},
		{ProviderOpenAI, ProviderOpenAI, false},
		{ProviderGemini, ProviderGemini, false},
		{"anthropic", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := New(context.Background(), Config{Provider: tt.provider})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, p.Name())
			}
			if p.Available() {
				t.Error("provider without key should be unavailable")
			}
		})
	}
}

func TestOverlayEnvKeepsUnsetFields(t *testing.T) {
	t.Setenv("TRIPPLANNER_LLM_PROVIDER", "")
	t.Setenv("TRIPPLANNER_LLM_API_KEY", "")
	t.Setenv("TRIPPLANNER_LLM_MODEL", "gpt-4o-mini")
	t.Setenv("TRIPPLANNER_LLM_ENDPOINT", "")
	t.Setenv("TRIPPLANNER_LLM_MAX_TOKENS", "not-a-number")
	t.Setenv("TRIPPLANNER_LLM_TIMEOUT", "")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	base := Config{Provider: ProviderOpenAI, APIKey: "sk-file", Endpoint: "http://localhost:8081/v1", MaxTokens: 400}
	cfg := base.OverlayEnv()
	if cfg.APIKey != "sk-file" {
		t.Errorf("expected file api key to survive, got %q", cfg.APIKey)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("expected env model, got %q", cfg.Model)
	}
	if cfg.Endpoint != base.Endpoint {
		t.Errorf("expected endpoint unchanged, got %q", cfg.Endpoint)
	}
	if cfg.MaxTokens != 400 {
		t.Errorf("expected invalid max tokens to be ignored, got %d", cfg.MaxTokens)
	}
}
