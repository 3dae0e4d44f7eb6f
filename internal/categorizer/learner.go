package categorizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/store"
	"github.com/LiorShrago/BudgetBuddy/internal/textutils"
)

// ErrNoSignificantToken means the transaction has nothing worth learning from.
var ErrNoSignificantToken = errors.New("no significant token to learn from")

// Learner turns manual categorizations into keyword rules.
type Learner struct {
	rules           store.RuleRepository
	learnedPriority int
	logger          logging.Logger
}

// NewLearner creates a Learner. learnedPriority is used for keywords no other
// active rule claims yet.
func NewLearner(rules store.RuleRepository, learnedPriority int, logger logging.Logger) *Learner {
	return &Learner{
		rules:           rules,
		learnedPriority: learnedPriority,
		logger:          logging.OrDefault(logger),
	}
}

// Learn upserts a rule mapping the transaction's significant token to categoryID.
// When another active rule already uses the token for a different category, the
// learned rule is ordered right after it. Learning the same pair again returns the
// stored rule, reactivated if needed.
func (l *Learner) Learn(ctx context.Context, ownerID uint, tx models.Transaction, categoryID uint) (*models.CategorizationRule, error) {
	keyword := textutils.SignificantToken(tx.Merchant, tx.Description)
	if keyword == "" {
		return nil, ErrNoSignificantToken
	}

	priority := l.learnedPriority
	highest, found, err := l.rules.MaxPriorityForKeyword(ctx, ownerID, keyword)
	if err != nil {
		return nil, err
	}
	if found {
		priority = highest + 1
	}

	rule := &models.CategorizationRule{
		OwnerID:    ownerID,
		Keyword:    keyword,
		CategoryID: categoryID,
		Priority:   priority,
		Active:     true,
		Source:     models.RuleSourceLearned,
	}
	stored, err := l.rules.Upsert(ctx, rule, "active")
	if err != nil {
		return nil, fmt.Errorf("learn %q: %w", keyword, err)
	}

	l.logger.Debug("Learned categorization rule",
		logging.F(logging.FieldOwnerID, ownerID),
		logging.F(logging.FieldKeyword, keyword),
		logging.F(logging.FieldCategoryID, categoryID),
		logging.F(logging.FieldRuleID, stored.ID))
	return stored, nil
}
