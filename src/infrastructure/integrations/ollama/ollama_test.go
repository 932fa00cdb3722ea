package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"blogforge/src/core/blogflow"
	"blogforge/src/infrastructure/integrations/ollama"
)

type generateBody struct {
	Model   string                 `json:"model"`
	System  string                 `json:"system"`
	Prompt  string                 `json:"prompt"`
	Stream  *bool                  `json:"stream"`
	Options map[string]interface{} `json:"options"`
}

func TestClient_Complete(t *testing.T) {
	tests := []struct {
		name      string
		config    blogflow.PhaseConfig
		reply     string
		status    int
		wantModel string
		want      string
		wantErr   string
	}{
		{
			name:      "default model",
			config:    blogflow.PhaseConfig{MaxTokens: 512, Temperature: 0.2, TopP: 0.8},
			reply:     `{"model":"llama3.1","response":"hello world","done":true,"done_reason":"stop"}`,
			status:    http.StatusOK,
			wantModel: "llama3.1",
			want:      "hello world",
		},
		{
			name:      "phase model",
			config:    blogflow.PhaseConfig{Model: "qwen2.5", MaxTokens: 4096, Temperature: 0.9, TopP: 0.95},
			reply:     `{"model":"qwen2.5","response":"section","done":true,"done_reason":"stop"}`,
			status:    http.StatusOK,
			wantModel: "qwen2.5",
			want:      "section",
		},
		{
			name:      "empty response",
			config:    blogflow.PhaseConfig{MaxTokens: 4096, Temperature: 0.9},
			reply:     `{"model":"llama3.1","response":"","done":true,"done_reason":"stop"}`,
			status:    http.StatusOK,
			wantModel: "llama3.1",
			want:      "",
		},
		{
			name:      "truncated",
			config:    blogflow.PhaseConfig{MaxTokens: 16},
			reply:     `{"model":"llama3.1","response":"partial","done":true,"done_reason":"length"}`,
			status:    http.StatusOK,
			wantModel: "llama3.1",
			wantErr:   "truncated",
		},
		{
			name:      "server error",
			reply:     `{"error":"model \"llama3.1\" not found"}`,
			status:    http.StatusNotFound,
			wantModel: "llama3.1",
			wantErr:   "not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got generateBody
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/generate" {
					t.Errorf("path = %s, want /api/generate", r.URL.Path)
				}
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("decode request: %v", err)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.reply + "\n"))
			}))
			defer srv.Close()

			client, err := ollama.NewClient(srv.URL+"/api", srv.Client())
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}

			text, err := client.Complete(context.Background(), blogflow.CompletionRequest{
				Phase:  blogflow.PhaseSection,
				System: "system message",
				Prompt: "write",
				Config: tt.config,
			})

			if got.Model != tt.wantModel {
				t.Errorf("model = %q, want %q", got.Model, tt.wantModel)
			}
			if got.System != "system message" || got.Prompt != "write" {
				t.Errorf("request = %+v", got)
			}
			if got.Stream == nil || *got.Stream {
				t.Errorf("stream = %v, want false", got.Stream)
			}

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Complete() error = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if text != tt.want {
				t.Errorf("Complete() = %q, want %q", text, tt.want)
			}
			if got.Options["num_predict"] != float64(tt.config.MaxTokens) {
				t.Errorf("num_predict = %v, want %d", got.Options["num_predict"], tt.config.MaxTokens)
			}
			if got.Options["temperature"] != tt.config.Temperature {
				t.Errorf("temperature = %v, want %v", got.Options["temperature"], tt.config.Temperature)
			}
		})
	}
}

func TestClient_Complete_Truncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"cut","done":true,"done_reason":"length"}` + "\n"))
	}))
	defer srv.Close()

	client, err := ollama.NewClient(srv.URL, srv.Client(), ollama.WithDefaultModel("mistral"))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.Complete(context.Background(), blogflow.CompletionRequest{Prompt: "p"})
	var truncated *ollama.ErrTruncated
	if !errors.As(err, &truncated) {
		t.Errorf("Complete() error = %v, want ErrTruncated", err)
	}
}

type noopPublisher struct{}

func (noopPublisher) CreateDraft(ctx context.Context, input blogflow.DraftInput) (*blogflow.Result, error) {
	return &blogflow.Result{DocumentID: "drafts.1"}, nil
}

func TestClient_EmptyCompletionReachesQualityGates(t *testing.T) {
	tests := []struct {
		name    string
		replies []string
		steps   int
		wantErr string
	}{
		{
			name:    "empty outline",
			replies: []string{""},
			steps:   2,
			wantErr: "outline contains no sections",
		},
		{
			name:    "empty section",
			replies: []string{"## Introduction\n## Conclusion", ""},
			steps:   3,
			wantErr: "content length 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(calls.Add(1)) - 1
				reply := ""
				if n < len(tt.replies) {
					reply = tt.replies[n]
				}
				body, _ := json.Marshal(map[string]interface{}{"response": reply, "done": true, "done_reason": "stop"})
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(append(body, '\n'))
			}))
			defer srv.Close()

			client, err := ollama.NewClient(srv.URL, srv.Client())
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}
			stepper := blogflow.NewStepper(
				blogflow.NewStore(blogflow.NewMemoryBackend()),
				blogflow.NewGenerator(client),
				noopPublisher{},
				blogflow.WithSampler(blogflow.Never),
			)

			ctx := context.Background()
			job, err := stepper.CreateJob(ctx, blogflow.Brief{Title: "X", WordCount: 1500, PrimaryKeyword: "ai automation"})
			if err != nil {
				t.Fatalf("CreateJob() error = %v", err)
			}
			for i := 0; i < tt.steps; i++ {
				if job, err = stepper.Step(ctx, job.ID); err != nil {
					t.Fatalf("Step() error = %v", err)
				}
			}

			if job.Status != blogflow.StatusFailed {
				t.Fatalf("status = %s, want failed", job.Status)
			}
			if !strings.Contains(job.Error, tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", job.Error, tt.wantErr)
			}
			if strings.Contains(job.Error, "generation service failed") {
				t.Errorf("error = %q, reported as a transport failure", job.Error)
			}
		})
	}
}
