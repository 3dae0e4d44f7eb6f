package research

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

	"golang.org/x/net/context/ctxhttp"

	"github.com/LiorShrago/BudgetBuddy/internal/logging"
)

// PerplexityEndpoint is the chat completions URL used when no base URL is configured.
const PerplexityEndpoint = "https://api.perplexity.ai/chat/completions"

const perplexityName = "perplexity"

// PerplexityClient calls the Perplexity chat completions API.
type PerplexityClient struct {
	apiKey   string
	model    string
	endpoint string
	http     *http.Client
	logger   logging.Logger
	now      func() time.Time
}

// NewPerplexityClient creates a client. baseURL overrides the API host for tests
// and proxies; timeout bounds a whole request.
func NewPerplexityClient(apiKey, model, baseURL string, timeout time.Duration, logger logging.Logger) *PerplexityClient {
	endpoint := PerplexityEndpoint
	if baseURL != "" {
		endpoint = strings.TrimRight(baseURL, "/") + "/chat/completions"
	}
	return &PerplexityClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logging.OrDefault(logger),
		now:      time.Now,
	}
}

func (c *PerplexityClient) Name() string { return perplexityName }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Research sends one chat completion and returns the assistant's content.
func (c *PerplexityClient) Research(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", &AuthError{Provider: perplexityName, Err: ErrMissingAPIKey}
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: Prompt(req)},
		},
		MaxTokens:   300,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := ctxhttp.Do(ctx, c.http, httpReq)
	if err != nil {
		return "", FromTransport(ctx, perplexityName, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.WithError(cerr).Debug("Failed to close response body")
		}
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", FromTransport(ctx, perplexityName, err)
	}

	if resp.StatusCode != http.StatusOK {
		retryAfter := ParseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		return "", FromStatus(perplexityName, resp.StatusCode, retryAfter,
			fmt.Errorf("unexpected response: %s", snippet(payload)))
	}

	var decoded chatResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", malformed(perplexityName, fmt.Errorf("failed to decode response: %w", err))
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return "", malformed(perplexityName, errors.New("response has no content"))
	}
	return decoded.Choices[0].Message.Content, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
