package categorizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/LiorShrago/BudgetBuddy/internal/database"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/store"
)

type LearnerSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.Store
	learner *Learner
	food    *models.Category
	coffee  *models.Category
}

func (s *LearnerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.New(database.SetupTestDB(s.T()).DB)
	s.learner = NewLearner(s.store.Rules, 5, logging.NewMockLogger())

	s.food = &models.Category{OwnerID: 1, Name: "Food & Dining"}
	s.Require().NoError(s.store.Categories.Create(s.ctx, s.food))
	s.coffee = &models.Category{OwnerID: 1, Name: "Coffee"}
	s.Require().NoError(s.store.Categories.Create(s.ctx, s.coffee))
}

func TestLearnerSuite(t *testing.T) {
	suite.Run(t, new(LearnerSuite))
}

func (s *LearnerSuite) starbucks() models.Transaction {
	return models.Transaction{ID: 1, AccountID: 1, Description: "STARBUCKS #1234", Merchant: "STARBUCKS"}
}

func (s *LearnerSuite) TestLearnIsIdempotent() {
	first, err := s.learner.Learn(s.ctx, 1, s.starbucks(), s.food.ID)
	s.Require().NoError(err)
	s.Equal("starbucks", first.Keyword)
	s.Equal(5, first.Priority)
	s.Equal(models.RuleSourceLearned, first.Source)

	second, err := s.learner.Learn(s.ctx, 1, s.starbucks(), s.food.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal(5, second.Priority)

	rules, err := s.store.Rules.List(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(rules, 1)
}

func (s *LearnerSuite) TestLearnYieldsToExistingKeyword() {
	_, err := s.store.Rules.Upsert(s.ctx, &models.CategorizationRule{
		OwnerID: 1, Keyword: "starbucks", CategoryID: s.coffee.ID, Priority: 1, Active: true, Source: models.RuleSourceUser,
	})
	s.Require().NoError(err)

	learned, err := s.learner.Learn(s.ctx, 1, s.starbucks(), s.food.ID)
	s.Require().NoError(err)
	s.Equal(2, learned.Priority)

	active, err := s.store.Rules.ListActive(s.ctx, 1)
	s.Require().NoError(err)
	m, ok := NewRuleset(active, nil).Resolve("STARBUCKS #99", "")
	s.True(ok)
	s.Equal(s.coffee.ID, m.CategoryID)
}

func (s *LearnerSuite) TestRelearnReactivates() {
	first, err := s.learner.Learn(s.ctx, 1, s.starbucks(), s.food.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Rules.Deactivate(s.ctx, 1, first.ID))

	again, err := s.learner.Learn(s.ctx, 1, s.starbucks(), s.food.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, again.ID)
	s.True(again.Active)
}

func (s *LearnerSuite) TestLearnFallsBackToDescription() {
	tx := models.Transaction{Description: "POS PURCHASE *4411* CORNER BAKERY 0042"}
	rule, err := s.learner.Learn(s.ctx, 1, tx, s.food.ID)
	s.Require().NoError(err)
	s.Equal("corner bakery", rule.Keyword)

	_, err = s.learner.Learn(s.ctx, 1, models.Transaction{Description: "#12 99"}, s.food.ID)
	s.ErrorIs(err, ErrNoSignificantToken)
}
