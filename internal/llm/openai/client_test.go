package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"Sentinel-X/internal/llm"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error when api key is missing")
	}
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Name() != "openai" || client.Model() != "gpt-4o-mini" {
		t.Fatalf("unexpected defaults: %s %s", client.Name(), client.Model())
	}
}

func TestCompleteSuccess(t *testing.T) {
	var captured struct {
		Path          string
		Authorization string
		Body          map[string]any
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		captured.Authorization = r.Header.Get("Authorization")
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&captured.Body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "llama-3.1-8b-instant",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "  Celo is an EVM chain.  "},
			}},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{
		Name:       "groq",
		APIKey:     "test",
		BaseURL:    srv.URL + "/openai/v1",
		Model:      "llama-3.1-8b-instant",
		Priority:   1,
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tokens, temp := 500, 0.7
	text, err := client.Complete(context.Background(), "What is Celo?", llm.CallOptions{MaxTokens: &tokens, Temperature: &temp})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Celo is an EVM chain." {
		t.Fatalf("unexpected text: %q", text)
	}
	if captured.Path != "/openai/v1/chat/completions" {
		t.Fatalf("unexpected path: %s", captured.Path)
	}
	if captured.Authorization != "Bearer test" {
		t.Fatalf("authorization header missing: %q", captured.Authorization)
	}
	if captured.Body["model"] != "llama-3.1-8b-instant" {
		t.Fatalf("model field missing in request: %v", captured.Body["model"])
	}
	if captured.Body["max_tokens"] != float64(500) || captured.Body["temperature"] != 0.7 {
		t.Fatalf("generation options not forwarded: %v", captured.Body)
	}
}

func TestCompleteHTTPError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := client.Complete(context.Background(), "test", llm.CallOptions{}); err == nil {
		t.Fatalf("expected error when http status is not success")
	}
	if calls != 1 {
		t.Fatalf("expected no retries, got %d calls", calls)
	}
}
