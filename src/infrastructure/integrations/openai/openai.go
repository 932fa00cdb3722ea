package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"blogforge/src/core/blogflow"
	"blogforge/src/log"
)

const (
	// DefaultBaseURL points at Groq's OpenAI compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

// Client completes prompts against any OpenAI compatible chat completion API
type Client struct {
	llm          *lcopenai.LLM
	defaultModel string
}

func NewClient(baseURL, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}

	llm, err := lcopenai.New(
		lcopenai.WithToken(apiKey),
		lcopenai.WithBaseURL(baseURL),
		lcopenai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	return &Client{llm: llm, defaultModel: model}, nil
}

var _ blogflow.Completer = (*Client)(nil)

// Complete sends the system and user prompt as one chat completion
func (c *Client) Complete(ctx context.Context, req blogflow.CompletionRequest) (string, error) {
	model := req.Config.Model
	if model == "" {
		model = c.defaultModel
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt),
	}
	callOpts := []llms.CallOption{llms.WithModel(model)}
	if req.Config.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.Config.MaxTokens))
	}
	if req.Config.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(req.Config.Temperature))
	}
	if req.Config.TopP > 0 {
		callOpts = append(callOpts, llms.WithTopP(req.Config.TopP))
	}

	log.Debug("sending chat completion", "model", model, "phase", req.Phase, "prompt_length", len(req.Prompt))

	resp, err := c.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	if choice.StopReason == "length" {
		log.Info("chat completion stopped at the token limit", "model", model, "phase", req.Phase)
	}
	return choice.Content, nil
}
