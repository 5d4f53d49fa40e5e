package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type capturedRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int64     `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

func TestOpenAIProviderComplete(t *testing.T) {
	var captured capturedRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "Hello from test!"}
			}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer ts.Close()

	provider := NewOpenAIProvider(Config{
		APIKey:      "test-key",
		Model:       "gpt-4",
		Endpoint:    ts.URL + "/v1",
		MaxTokens:   1000,
		Temperature: 0.7,
	})

	if !provider.Available() {
		t.Fatal("expected provider to be available")
	}
	if provider.Name() != "openai" {
		t.Errorf("expected name openai, got %s", provider.Name())
	}

	resp, err := provider.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a travel assistant."},
		{Role: RoleAssistant, Content: "Welcome!"},
		{Role: RoleUser, Content: "Hello"},
	}, Options{MaxTokens: 1500})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if resp.Content != "Hello from test!" {
		t.Errorf("unexpected content: %s", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("unexpected finish reason: %s", resp.FinishReason)
	}
	if resp.PromptTokens != 10 || resp.OutputTokens != 5 {
		t.Errorf("unexpected usage: %d/%d", resp.PromptTokens, resp.OutputTokens)
	}

	if captured.Model != "gpt-4" {
		t.Errorf("expected model gpt-4, got %s", captured.Model)
	}
	if captured.MaxTokens != 1500 {
		t.Errorf("expected per-call max tokens 1500, got %d", captured.MaxTokens)
	}
	if captured.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", captured.Temperature)
	}
	if len(captured.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(captured.Messages))
	}
	wantRoles := []string{"system", "assistant", "user"}
	for i, m := range captured.Messages {
		if m.Role != wantRoles[i] {
			t.Errorf("message %d: expected role %s, got %s", i, wantRoles[i], m.Role)
		}
	}
}

func TestOpenAIProviderAPIError(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`))
	}))
	defer ts.Close()

	provider := NewOpenAIProvider(Config{APIKey: "bad-key", Model: "gpt-4", Endpoint: ts.URL})

	_, err := provider.Complete(context.Background(), []Message{{Role: RoleUser, Content: "Hi"}}, Options{})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if calls != 1 {
		t.Errorf("expected exactly one attempt, got %d", calls)
	}
}

func TestOpenAIProviderUnavailable(t *testing.T) {
	provider := NewOpenAIProvider(Config{Model: "gpt-4"})
	if provider.Available() {
		t.Error("expected provider without API key to be unavailable")
	}
	_, err := provider.Complete(context.Background(), nil, Options{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
