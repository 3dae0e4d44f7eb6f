package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LiorShrago/BudgetBuddy/internal/categorizer"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/store"
)

// NewRule is the input to CreateRule.
type NewRule struct {
	Keyword    string `validate:"required,max=200"`
	CategoryID uint   `validate:"required"`
	IsPattern  bool
	// Priority defaults to 1, the highest.
	Priority int `validate:"gte=0"`
}

// CreateRule adds a user rule, or updates the priority of an existing rule for
// the same keyword and category. Patterns must compile.
func (s *Service) CreateRule(ctx context.Context, scope models.Scope, in NewRule) (*models.CategorizationRule, error) {
	in.Keyword = strings.ToLower(strings.TrimSpace(in.Keyword))
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.Priority == 0 {
		in.Priority = 1
	}
	if in.IsPattern {
		if _, err := categorizer.CompilePattern(in.Keyword); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if err := s.checkCategory(ctx, scope.OwnerID, in.CategoryID); err != nil {
		return nil, err
	}

	rule, err := s.store.Rules.Upsert(ctx, &models.CategorizationRule{
		OwnerID:    scope.OwnerID,
		Keyword:    in.Keyword,
		CategoryID: in.CategoryID,
		IsPattern:  in.IsPattern,
		Priority:   in.Priority,
		Active:     true,
		Source:     models.RuleSourceUser,
	}, "priority", "active", "is_pattern")
	if err != nil {
		return nil, err
	}

	s.logger.Info("Saved rule",
		logging.F(logging.FieldRuleID, rule.ID),
		logging.F(logging.FieldKeyword, rule.Keyword),
		logging.F(logging.FieldCategoryID, rule.CategoryID))
	return rule, nil
}

// ListRules returns all of the owner's rules, active or not.
func (s *Service) ListRules(ctx context.Context, scope models.Scope) ([]models.CategorizationRule, error) {
	return s.store.Rules.List(ctx, scope.OwnerID)
}

// DeactivateRule stops a rule from matching without deleting it.
func (s *Service) DeactivateRule(ctx context.Context, scope models.Scope, id uint) error {
	err := s.store.Rules.Deactivate(ctx, scope.OwnerID, id)
	if errors.Is(err, store.ErrRuleNotFound) {
		return ErrScopeViolation
	}
	return err
}
