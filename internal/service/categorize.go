package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/LiorShrago/BudgetBuddy/internal/applier"
	"github.com/LiorShrago/BudgetBuddy/internal/categorizer"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/research"
	"github.com/LiorShrago/BudgetBuddy/internal/suggester"
)

// UpdateCategory sets (or, with nil, clears) one transaction's category and
// learns a rule from the correction.
func (s *Service) UpdateCategory(ctx context.Context, scope models.Scope, transactionID uint, categoryID *uint) error {
	result := s.applier.Apply(ctx, scope, []applier.Item{{TransactionID: transactionID, CategoryID: categoryID}},
		applier.Options{Learn: true, Source: applier.SourceManual})
	if result.Cancelled {
		return ctx.Err()
	}
	if len(result.Failed) == 0 {
		return nil
	}

	f := result.Failed[0]
	switch f.Kind {
	case applier.KindScopeViolation:
		return ErrScopeViolation
	case applier.KindInvalidCategory:
		return fmt.Errorf("%w: %s", ErrInvalidCategory, f.Reason)
	}
	return errors.New(f.Reason)
}

// BulkCategorize assigns one category to many transactions. Each id succeeds
// or fails on its own; bulk assignments do not create rules.
func (s *Service) BulkCategorize(ctx context.Context, scope models.Scope, ids []uint, categoryID *uint) applier.Result {
	items := make([]applier.Item, len(ids))
	for i, id := range ids {
		items[i] = applier.Item{TransactionID: id, CategoryID: categoryID}
	}
	return s.applier.Apply(ctx, scope, items, applier.Options{Source: applier.SourceBulk})
}

// AISuggest proposes categories for ids without writing anything.
func (s *Service) AISuggest(ctx context.Context, scope models.Scope, ids []uint) (suggester.Batch, error) {
	if s.suggester == nil {
		return suggester.Batch{}, ErrResearchNotConfigured
	}
	return s.suggester.Suggest(ctx, scope, ids)
}

// AISuggestAll proposes categories for every uncategorized transaction in scope.
func (s *Service) AISuggestAll(ctx context.Context, scope models.Scope) (suggester.Batch, error) {
	if s.suggester == nil {
		return suggester.Batch{}, ErrResearchNotConfigured
	}
	txs, err := s.store.Transactions.ListUncategorized(ctx, scope.AccountIDs)
	if err != nil {
		return suggester.Batch{}, err
	}
	ids := make([]uint, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	return s.suggester.Suggest(ctx, scope, ids)
}

// ApplySuggestions writes user-approved suggestions and learns from them.
func (s *Service) ApplySuggestions(ctx context.Context, scope models.Scope, items []applier.Item) applier.Result {
	return s.applier.Apply(ctx, scope, items, applier.Options{Learn: true, Source: applier.SourceManual})
}

// AutoResult summarizes AutoCategorizeAll.
type AutoResult struct {
	Total       int                   `json:"total"`
	RuleApplied int                   `json:"rule_applied"`
	AIApplied   int                   `json:"ai_applied"`
	Remaining   int                   `json:"remaining"`
	Failed      []applier.ItemFailure `json:"failed,omitempty"`
	AIFailures  []suggester.Failure   `json:"ai_failures,omitempty"`
	// AIError explains why the AI pass produced nothing, empty when it ran.
	AIError string `json:"ai_error,omitempty"`
}

// AutoCategorizeAll applies rule matches to every uncategorized transaction in
// scope, then applies high-confidence AI suggestions for the rest without
// learning from them. When the AI service is unreachable or rejects the
// credentials the rule-only result is returned with AIError set.
func (s *Service) AutoCategorizeAll(ctx context.Context, scope models.Scope) (AutoResult, error) {
	var result AutoResult
	txs, err := s.store.Transactions.ListUncategorized(ctx, scope.AccountIDs)
	if err != nil {
		return result, err
	}
	result.Total = len(txs)

	rules, err := s.store.Rules.ListActive(ctx, scope.OwnerID)
	if err != nil {
		return result, err
	}
	ruleset := categorizer.NewRuleset(rules, s.logger)

	var ruleItems []applier.Item
	var rest []uint
	for _, tx := range txs {
		if m, ok := ruleset.ResolveTransaction(tx); ok {
			categoryID := m.CategoryID
			ruleItems = append(ruleItems, applier.Item{TransactionID: tx.ID, CategoryID: &categoryID})
			continue
		}
		rest = append(rest, tx.ID)
	}

	applied := s.applier.Apply(ctx, scope, ruleItems, applier.Options{Source: applier.SourceRule})
	result.RuleApplied = applied.Applied
	result.Failed = append(result.Failed, applied.Failed...)
	if applied.Cancelled {
		return result, ctx.Err()
	}

	if len(rest) > 0 {
		if err := s.autoApplyAI(ctx, scope, rest, &result); err != nil {
			return result, err
		}
	}

	result.Remaining = result.Total - result.RuleApplied - result.AIApplied
	s.logger.Info("Auto-categorized transactions",
		logging.F(logging.FieldOwnerID, scope.OwnerID),
		logging.F(logging.FieldCount, result.RuleApplied+result.AIApplied),
		logging.F("remaining", result.Remaining))
	return result, nil
}

func (s *Service) autoApplyAI(ctx context.Context, scope models.Scope, ids []uint, result *AutoResult) error {
	if s.suggester == nil {
		result.AIError = ErrResearchNotConfigured.Error()
		return nil
	}

	batch, err := s.suggester.Suggest(ctx, scope, ids)
	result.AIFailures = batch.Failures
	if err != nil {
		var authErr *research.AuthError
		if errors.As(err, &authErr) {
			result.AIError = err.Error()
			s.logger.WithError(err).Warn("AI research unauthorized; keeping rule-only results")
			return nil
		}
		return err
	}

	var items []applier.Item
	for _, sg := range batch.Suggestions {
		if sg.Provenance == models.ProvenanceAI && sg.Confidence == models.ConfidenceHigh && sg.CategoryID != nil {
			items = append(items, applier.Item{TransactionID: sg.TransactionID, CategoryID: sg.CategoryID})
		}
	}
	applied := s.applier.Apply(ctx, scope, items, applier.Options{Source: applier.SourceAI})
	result.AIApplied = applied.Applied
	result.Failed = append(result.Failed, applied.Failed...)
	if applied.Cancelled {
		return ctx.Err()
	}

	if len(batch.Suggestions) == 0 && len(batch.Failures) > 0 && allUnavailable(batch.Failures) {
		result.AIError = "ai research service unavailable"
	}
	return nil
}

func allUnavailable(failures []suggester.Failure) bool {
	for _, f := range failures {
		if f.Kind != suggester.KindServiceUnavailable && f.Kind != suggester.KindRateLimited {
			return false
		}
	}
	return true
}
