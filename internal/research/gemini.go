package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/LiorShrago/BudgetBuddy/internal/logging"
)

const geminiName = "gemini"

// GeminiClient calls the Google Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger logging.Logger
}

// NewGeminiClient creates a client. With an empty apiKey no connection is made
// and every call fails with an AuthError.
func NewGeminiClient(ctx context.Context, apiKey, model, endpoint string, logger logging.Logger) (*GeminiClient, error) {
	c := &GeminiClient{logger: logging.OrDefault(logger)}
	if apiKey == "" {
		return c, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c.client = client
	c.model = client.GenerativeModel(model)
	c.model.SetTemperature(0.1)
	c.model.SetMaxOutputTokens(300)
	return c, nil
}

func (c *GeminiClient) Name() string { return geminiName }

// Close releases the underlying connection.
func (c *GeminiClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Research generates one answer and joins its text parts.
func (c *GeminiClient) Research(ctx context.Context, req Request) (string, error) {
	if c.model == nil {
		return "", &AuthError{Provider: geminiName, Err: ErrMissingAPIKey}
	}

	resp, err := c.model.GenerateContent(ctx, genai.Text(systemPrompt+"\n\n"+Prompt(req)))
	if err != nil {
		return "", classifyGemini(ctx, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", malformed(geminiName, errors.New("no candidates in response"))
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", malformed(geminiName, errors.New("response has no text content"))
	}
	return text.String(), nil
}

// classifyGemini maps REST (googleapi) and gRPC status errors onto research kinds.
func classifyGemini(ctx context.Context, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return FromStatus(geminiName, apiErr.Code, 0, err)
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unauthenticated:
			return FromStatus(geminiName, http.StatusUnauthorized, 0, err)
		case codes.PermissionDenied:
			return FromStatus(geminiName, http.StatusForbidden, 0, err)
		case codes.ResourceExhausted:
			return FromStatus(geminiName, http.StatusTooManyRequests, 0, err)
		case codes.InvalidArgument, codes.FailedPrecondition, codes.NotFound:
			return FromStatus(geminiName, http.StatusBadRequest, 0, err)
		case codes.Canceled:
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
	return FromTransport(ctx, geminiName, err)
}
