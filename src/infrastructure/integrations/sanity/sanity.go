package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"blogforge/src/log"
)

const DefaultAPIVersion = "2024-01-01"

// Config holds the project coordinates and write token
type Config struct {
	ProjectID  string `mapstructure:"project_id"`
	Dataset    string `mapstructure:"dataset"`
	Token      string `mapstructure:"token"`
	APIVersion string `mapstructure:"api_version"`
	// BaseURL overrides https://<project>.api.sanity.io, used by tests and proxies.
	BaseURL string `mapstructure:"base_url"`
}

// APIError carries the error reported by the mutate endpoint. Message is the CMS
// description when the body could be parsed, otherwise the raw body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sanity API error (status %d): %s", e.StatusCode, e.Message)
}

// MutationResult is the outcome of one mutation in a transaction
type MutationResult struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
}

type mutateResponse struct {
	TransactionID string           `json:"transactionId"`
	Results       []MutationResult `json:"results"`
}

type errorResponse struct {
	Error struct {
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"error"`
	Message string `json:"message"`
}

// Client talks to the Sanity HTTP mutate API
type Client struct {
	httpClient *http.Client
	cfg        Config
}

func NewClient(cfg Config, c *http.Client) (*Client, error) {
	if cfg.ProjectID == "" && cfg.BaseURL == "" {
		return nil, errors.New("sanity project id is required")
	}
	if cfg.Dataset == "" {
		return nil, errors.New("sanity dataset is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if c == nil {
		c = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{httpClient: c, cfg: cfg}, nil
}

// IsConfigured returns true if the client can write documents
func (c *Client) IsConfigured() bool {
	return c.cfg.Token != ""
}

// Create submits a create mutation for doc, which must carry its own _id and _type.
// It returns the id of the created document.
func (c *Client) Create(ctx context.Context, doc any) (string, error) {
	body := map[string]any{
		"mutations": []map[string]any{{"create": doc}},
	}

	var result mutateResponse
	if err := c.post(ctx, "/data/mutate/"+c.cfg.Dataset+"?returnIds=true", body, &result); err != nil {
		return "", err
	}
	if len(result.Results) == 0 || result.Results[0].ID == "" {
		return "", fmt.Errorf("sanity transaction %s returned no document id", result.TransactionID)
	}
	return result.Results[0].ID, nil
}

func (c *Client) baseURL() string {
	if c.cfg.BaseURL != "" {
		return strings.TrimSuffix(c.cfg.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s.api.sanity.io", c.cfg.ProjectID)
}

func (c *Client) post(ctx context.Context, endpoint string, body any, result any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v%s%s", c.baseURL(), c.cfg.APIVersion, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

func (c *Client) doRequest(req *http.Request, result any) error {
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	log.Debug("sanity request", "method", req.Method, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Info("sanity request rejected", "status", resp.StatusCode, "body", string(respBody))
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error.Description != "" {
			return parsed.Error.Description
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(body))
}
