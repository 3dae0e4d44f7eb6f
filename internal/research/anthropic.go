package research

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/LiorShrago/BudgetBuddy/internal/logging"
)

const anthropicName = "anthropic"

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	apiKey string
	model  string
	client anthropic.Client
	logger logging.Logger
}

// NewAnthropicClient creates a client. The SDK's own retries are disabled; the
// orchestrator owns the retry policy.
func NewAnthropicClient(apiKey, model, baseURL string, logger logging.Logger) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicClient{
		apiKey: apiKey,
		model:  model,
		client: anthropic.NewClient(opts...),
		logger: logging.OrDefault(logger),
	}
}

func (c *AnthropicClient) Name() string { return anthropicName }

// Research sends one message and concatenates the text blocks of the reply.
func (c *AnthropicClient) Research(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", &AuthError{Provider: anthropicName, Err: ErrMissingAPIKey}
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 300,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(Prompt(req))),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			var retryAfter time.Duration
			if apiErr.Response != nil {
				retryAfter = ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"), time.Now())
			}
			return "", FromStatus(anthropicName, apiErr.StatusCode, retryAfter, err)
		}
		return "", FromTransport(ctx, anthropicName, err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", malformed(anthropicName, errors.New("response has no text content"))
	}
	return text.String(), nil
}
