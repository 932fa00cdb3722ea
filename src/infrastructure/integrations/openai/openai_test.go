package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blogforge/src/core/blogflow"
	"blogforge/src/infrastructure/integrations/openai"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	Messages    []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func TestClient_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1760864400,
			"model": "phase-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "## Introduction\n## Conclusion"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	client, err := openai.NewClient(srv.URL, "test-key", "fallback-model")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	text, err := client.Complete(context.Background(), blogflow.CompletionRequest{
		Phase:  blogflow.PhaseOutline,
		System: "You plan articles.",
		Prompt: "Outline please.",
		Config: blogflow.PhaseConfig{Model: "phase-model", MaxTokens: 4096, Temperature: 0.8, TopP: 0.9},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "## Introduction\n## Conclusion" {
		t.Errorf("Complete() = %q", text)
	}

	if got.Model != "phase-model" {
		t.Errorf("model = %q, want phase-model", got.Model)
	}
	if got.Temperature != 0.8 || got.TopP != 0.9 {
		t.Errorf("sampling = %v/%v", got.Temperature, got.TopP)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if !strings.Contains(string(got.Messages[1].Content), "Outline please.") {
		t.Errorf("user message = %s", got.Messages[1].Content)
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	if _, err := openai.NewClient("", "", ""); err == nil {
		t.Error("NewClient() without key succeeded")
	}
}

func TestClient_Complete_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-2",
			"object": "chat.completion",
			"created": 1760864400,
			"model": "fallback-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": ""}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	client, err := openai.NewClient(srv.URL, "test-key", "fallback-model")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	text, err := client.Complete(context.Background(), blogflow.CompletionRequest{
		Phase:  blogflow.PhaseSection,
		System: "s",
		Prompt: "p",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v, want empty text", err)
	}
	if text != "" {
		t.Errorf("Complete() = %q, want empty", text)
	}
}
