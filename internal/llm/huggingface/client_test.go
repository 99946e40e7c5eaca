package huggingface

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

func TestCompleteSuccess(t *testing.T) {
	var (
		path string
		auth string
		body map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode([]map[string]any{{"generated_text": "hosted answer"}})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "hf_test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	temp := 0.3
	text, err := client.Complete(context.Background(), "audit this", llm.CallOptions{Temperature: &temp})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hosted answer" {
		t.Fatalf("unexpected text %q", text)
	}
	if path != "/models/mistralai/Mistral-7B-Instruct-v0.2" {
		t.Fatalf("unexpected path %s", path)
	}
	if auth != "Bearer hf_test" {
		t.Fatalf("unexpected authorization %q", auth)
	}
	if body["inputs"] != "audit this" {
		t.Fatalf("unexpected request body %v", body)
	}
}

func TestCompleteEmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.Complete(context.Background(), "x", llm.CallOptions{}); err == nil {
		t.Fatalf("expected error for empty generation list")
	}
}

func TestCompleteLoadingModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Model is currently loading"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.Complete(context.Background(), "x", llm.CallOptions{}); err == nil {
		t.Fatalf("expected error when model is loading")
	}
}
