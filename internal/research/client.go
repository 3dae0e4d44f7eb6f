// Package research talks to the external AI services that suggest a category
// for a transaction the rules could not place, and reduces their free-text
// answers to a category outcome.
package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/LiorShrago/BudgetBuddy/internal/config"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
)

// Request describes one transaction to research.
type Request struct {
	TransactionID uint
	Date          string
	Amount        string
	Description   string
	Merchant      string
	// Categories are the names the answer must choose from.
	Categories []string
}

// Client asks an AI service about a single transaction and returns its raw answer.
// Errors are *Error or *AuthError; a cancelled context is returned as is.
type Client interface {
	Research(ctx context.Context, req Request) (string, error)
	Name() string
}

const systemPrompt = "You are a precise financial categorization assistant. Always respond with valid JSON only."

// Prompt renders the user prompt for req.
func Prompt(req Request) string {
	var b strings.Builder
	b.WriteString("Categorize the following bank transaction into exactly one of the listed categories.\n\n")
	fmt.Fprintf(&b, "Date: %s\n", req.Date)
	fmt.Fprintf(&b, "Amount: %s\n", req.Amount)
	fmt.Fprintf(&b, "Description: %s\n", req.Description)
	if req.Merchant != "" {
		fmt.Fprintf(&b, "Merchant: %s\n", req.Merchant)
	}
	b.WriteString("\nCategories:\n")
	for _, name := range req.Categories {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	b.WriteString("\nIf none of the categories fits, use \"none\".\n")
	b.WriteString(`Respond with ONLY a JSON object in this exact format: {"category": "<category name>", "reason": "<short explanation>"}`)
	return b.String()
}

// New builds the client for cfg.AI.Provider. A missing API key is not an error
// here; the returned client fails every call with an AuthError instead.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (Client, error) {
	logger = logging.OrDefault(logger).WithField(logging.FieldProvider, cfg.AI.Provider)
	key := cfg.ProviderAPIKey()

	switch cfg.AI.Provider {
	case "perplexity", "":
		return NewPerplexityClient(key, cfg.AI.Model, cfg.AI.BaseURL, cfg.Timeout(), logger), nil
	case "anthropic":
		return NewAnthropicClient(key, cfg.AI.Model, cfg.AI.BaseURL, logger), nil
	case "gemini":
		return NewGeminiClient(ctx, key, cfg.AI.Model, cfg.AI.BaseURL, logger)
	}
	return nil, fmt.Errorf("unsupported ai provider %q", cfg.AI.Provider)
}
