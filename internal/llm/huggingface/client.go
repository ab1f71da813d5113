// Package huggingface generates text through a Hugging Face Space endpoint.
package huggingface

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

	"github.com/rs/zerolog"

	"github.com/alertrix/alertrix/internal/llm"
	"github.com/alertrix/alertrix/internal/provider/resilience"
)

const (
	// ProviderName identifies this backend.
	ProviderName = "huggingface"

	// DefaultSpaceURL is the public Alertrix generation Space.
	DefaultSpaceURL = "https://adamo1-alertrix2.hf.space/generate"

	maxResponseBytes = 1 << 20
)

// ClientConfig holds configuration for the Hugging Face client.
type ClientConfig struct {
	SpaceURL string

	// Token is sent as a bearer token when set.
	Token string

	// HTTPClient is optional. If nil, a resilient client with a 30 second
	// timeout is used.
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client posts prompts to a Space and extracts the generated text.
type Client struct {
	spaceURL   string
	token      string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Hugging Face client.
func NewClient(cfg ClientConfig) *Client {
	spaceURL := cfg.SpaceURL
	if spaceURL == "" {
		spaceURL = DefaultSpaceURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.Timeout = 30 * time.Second
		rc.Logger = cfg.Logger
		httpClient = resilience.NewClient(rc)
	}

	return &Client{
		spaceURL:   spaceURL,
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("component", "huggingface").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GenerateText sends prompt, followed by instructions when given, and
// returns the generated text.
func (c *Client) GenerateText(ctx context.Context, prompt, instructions string) (string, error) {
	final := prompt
	if instructions != "" {
		final = prompt + "\n\n" + instructions
	}

	payload, err := json.Marshal(map[string]string{"prompt": final})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.spaceURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

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
			Int("prompt_length", len(prompt)).
			Bool("has_instructions", instructions != "").
			Msg("space request rejected")
		return "", llm.StatusError(ProviderName, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &llm.ServiceError{Provider: ProviderName, Kind: llm.KindUpstream, Err: fmt.Errorf("reading response: %w", err)}
	}

	text := strings.TrimSpace(extractText(raw))
	if text == "" {
		return "", &llm.ServiceError{Provider: ProviderName, Kind: llm.KindEmpty, Err: llm.ErrEmptyResponse}
	}
	return text, nil
}

// extractText understands the response shapes Spaces commonly return:
// {"data": [...]}, {"generated_text": ...} and {"text": ...}. Anything else
// is returned verbatim.
func extractText(raw []byte) string {
	var body struct {
		Data          []json.RawMessage `json:"data"`
		GeneratedText string            `json:"generated_text"`
		Text          string            `json:"text"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return string(raw)
	}

	switch {
	case len(body.Data) > 0:
		var s string
		if err := json.Unmarshal(body.Data[0], &s); err == nil {
			return s
		}
		return string(body.Data[0])
	case body.GeneratedText != "":
		return body.GeneratedText
	case body.Text != "":
		return body.Text
	default:
		return string(raw)
	}
}
