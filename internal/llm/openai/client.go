// Package openai generates JSON completions with the OpenAI chat API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alertrix/alertrix/internal/llm"
	"github.com/alertrix/alertrix/internal/provider/resilience"
)

const (
	// ProviderName identifies this backend.
	ProviderName = "openai"

	// DefaultBaseURL is the OpenAI v1 API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"

	temperature = 0.7
)

// ClientConfig holds configuration for the OpenAI client.
type ClientConfig struct {
	APIKey  string
	Model   string
	BaseURL string

	// HTTPClient is optional. If nil, a resilient client with a 30 second
	// timeout is used.
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client calls the chat completions endpoint in JSON mode.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new OpenAI client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.Timeout = 30 * time.Second
		rc.Logger = cfg.Logger
		httpClient = resilience.NewClient(rc)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("component", "openai").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt and returns the model's JSON text. When schema is
// non-nil it is serialised into the system message as an example of the
// expected shape.
func (c *Client) Complete(ctx context.Context, prompt string, schema any) (string, error) {
	if c.apiKey == "" {
		return "", &llm.ServiceError{Provider: ProviderName, Kind: llm.KindConfig, Err: errors.New("API key not configured")}
	}

	system := "You are a helpful assistant that formats responses as JSON."
	if schema != nil {
		example, err := json.Marshal(schema)
		if err != nil {
			return "", fmt.Errorf("encoding schema hint: %w", err)
		}
		system = "Provide output in valid JSON. The data schema should be like this: " + string(example)
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := llm.KindUpstream
		if errors.Is(err, context.DeadlineExceeded) {
			kind = llm.KindTimeout
		}
		return "", &llm.ServiceError{Provider: ProviderName, Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("model", c.model).
			Int("prompt_length", len(prompt)).
			Msg("chat completion rejected")
		return "", llm.StatusError(ProviderName, resp.StatusCode)
	}

	var body chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &llm.ServiceError{Provider: ProviderName, Kind: llm.KindUpstream, Status: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}

	if len(body.Choices) == 0 {
		return "", &llm.ServiceError{Provider: ProviderName, Kind: llm.KindEmpty, Err: llm.ErrEmptyResponse}
	}
	content := strings.TrimSpace(body.Choices[0].Message.Content)
	if content == "" {
		return "", &llm.ServiceError{Provider: ProviderName, Kind: llm.KindEmpty, Err: llm.ErrEmptyResponse}
	}

	return content, nil
}
