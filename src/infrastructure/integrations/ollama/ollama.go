package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"blogforge/src/core/blogflow"
	"blogforge/src/log"
)

const (
	DefaultURL   = "http://localhost:11434"
	DefaultModel = "llama3.1"
)

// ErrTruncated is returned when the model stopped because it ran out of tokens
type ErrTruncated struct {
	Message string
}

func (e *ErrTruncated) Error() string {
	return e.Message
}

// Client completes prompts against an Ollama server
type Client struct {
	api          *api.Client
	defaultModel string
}

type Option func(c *Client)

// WithDefaultModel sets the model used when a phase does not name one
func WithDefaultModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.defaultModel = model
		}
	}
}

// NewClient creates a new Ollama API client
func NewClient(baseURL string, c *http.Client, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	// The api package adds the /api prefix itself.
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/api")

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	if c == nil {
		c = http.DefaultClient
	}

	client := &Client{
		api:          api.NewClient(base, c),
		defaultModel: DefaultModel,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

var _ blogflow.Completer = (*Client)(nil)

// Complete performs one non-streamed generation with the phase sampling parameters
func (c *Client) Complete(ctx context.Context, req blogflow.CompletionRequest) (string, error) {
	model := req.Config.Model
	if model == "" {
		model = c.defaultModel
	}

	stream := false
	genReq := &api.GenerateRequest{
		Model:   model,
		System:  req.System,
		Prompt:  req.Prompt,
		Stream:  &stream,
		Options: options(req.Config),
	}

	log.Debug("sending request to ollama", "model", model, "phase", req.Phase, "prompt_length", len(req.Prompt))

	var (
		full       strings.Builder
		doneReason string
	)
	err := c.api.Generate(ctx, genReq, func(resp api.GenerateResponse) error {
		full.WriteString(resp.Response)
		if resp.Done {
			doneReason = resp.DoneReason
		}
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return "", fmt.Errorf("ollama returned status %d: %s", statusErr.StatusCode, statusErr.ErrorMessage)
		}
		log.Error(err, "failed to make request to ollama")
		return "", fmt.Errorf("error making request: %w", err)
	}

	if doneReason == "length" {
		return "", &ErrTruncated{Message: fmt.Sprintf("response was truncated by the model after %d tokens", req.Config.MaxTokens)}
	}
	// An empty completion is a valid answer; callers judge whether it is usable.
	return full.String(), nil
}

func options(cfg blogflow.PhaseConfig) map[string]interface{} {
	opts := map[string]interface{}{}
	if cfg.MaxTokens > 0 {
		opts["num_predict"] = cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		opts["temperature"] = cfg.Temperature
	}
	if cfg.TopP > 0 {
		opts["top_p"] = cfg.TopP
	}
	return opts
}
