package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiorShrago/BudgetBuddy/internal/config"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
)

func sampleRequest() Request {
	return Request{
		TransactionID: 1,
		Date:          "2024-01-05",
		Amount:        "-5.75",
		Description:   "STARBUCKS #1234",
		Merchant:      "STARBUCKS",
		Categories:    []string{"Food & Dining", "Shopping"},
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt(sampleRequest())
	assert.Contains(t, p, "Description: STARBUCKS #1234")
	assert.Contains(t, p, "- Food & Dining\n")
	assert.Contains(t, p, `{"category":`)
}

func TestPerplexityClient_Success(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"category\":\"Food & Dining\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewPerplexityClient("secret", "sonar", srv.URL, time.Second, logging.NewMockLogger())
	text, err := c.Research(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"category":"Food & Dining"}`, text)
	assert.Equal(t, "sonar", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestPerplexityClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		retryAfter string
		kind       Kind
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"bad key"}`, kind: KindAuth},
		{name: "rate limited", status: http.StatusTooManyRequests, retryAfter: "3", kind: KindRateLimited},
		{name: "server error", status: http.StatusServiceUnavailable, kind: KindServiceUnavailable},
		{name: "not json", status: http.StatusOK, body: "<html>", kind: KindMalformedResponse},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, kind: KindMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewPerplexityClient("secret", "sonar", srv.URL, time.Second, nil)
			_, err := c.Research(context.Background(), sampleRequest())
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			if tt.retryAfter != "" {
				assert.Equal(t, 3*time.Second, RetryAfterOf(err))
			}
		})
	}
}

func TestPerplexityClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewPerplexityClient("secret", "sonar", url, time.Second, nil)
	_, err := c.Research(context.Background(), sampleRequest())
	assert.Equal(t, KindServiceUnavailable, KindOf(err))
}

func TestPerplexityClient_MissingKey(t *testing.T) {
	c := NewPerplexityClient("", "sonar", "", time.Second, nil)
	_, err := c.Research(context.Background(), sampleRequest())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestAnthropicClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		if r.Header.Get("X-Api-Key") != "secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "{\"category\": \"Shopping\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("secret", "claude-3-5-haiku-latest", srv.URL, nil)
	text, err := c.Research(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"category": "Shopping"}`, text)

	bad := NewAnthropicClient("wrong", "claude-3-5-haiku-latest", srv.URL, nil)
	_, err = bad.Research(context.Background(), sampleRequest())
	assert.Equal(t, KindAuth, KindOf(err))

	_, err = NewAnthropicClient("", "m", srv.URL, nil).Research(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGeminiClient_MissingKey(t *testing.T) {
	c, err := NewGeminiClient(context.Background(), "", "gemini-2.0-flash", "", nil)
	require.NoError(t, err)
	_, err = c.Research(context.Background(), sampleRequest())
	assert.Equal(t, KindAuth, KindOf(err))
	assert.NoError(t, c.Close())
}

func TestNew_SelectsProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.AI.TimeoutSeconds = 5

	for provider, want := range map[string]string{
		"perplexity": perplexityName,
		"anthropic":  anthropicName,
		"gemini":     geminiName,
	} {
		cfg.AI.Provider = provider
		c, err := New(context.Background(), cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, want, c.Name())
	}

	cfg.AI.Provider = "openai"
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}
