package applier

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/LiorShrago/BudgetBuddy/internal/categorizer"
	"github.com/LiorShrago/BudgetBuddy/internal/database"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/store"
	"github.com/LiorShrago/BudgetBuddy/internal/textutils"
)

type ApplierSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.Store
	applier *Applier
	scope   models.Scope
	food    *models.Category
	log     *logging.MockLogger
}

func TestApplierSuite(t *testing.T) {
	suite.Run(t, new(ApplierSuite))
}

func (s *ApplierSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.New(database.SetupTestDB(s.T()).DB)
	s.log = logging.NewMockLogger()
	s.applier = New(s.store, categorizer.NewLearner(s.store.Rules, 5, s.log), nil, s.log)
	s.scope = models.Scope{OwnerID: 1, AccountIDs: []uint{1, 2}}

	s.food = &models.Category{OwnerID: 1, Name: "Food & Dining"}
	s.Require().NoError(s.store.Categories.Create(s.ctx, s.food))
}

func (s *ApplierSuite) addTx(accountID uint, description string) uint {
	tx := models.Transaction{
		AccountID:   accountID,
		Date:        time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString("5.75"),
		Type:        models.TypeExpense,
		Description: description,
		Merchant:    textutils.ExtractMerchant(description),
		Fingerprint: uuid.NewString(),
	}
	_, err := s.store.Transactions.Insert(s.ctx, &tx)
	s.Require().NoError(err)
	return tx.ID
}

func (s *ApplierSuite) categoryOf(id uint) *uint {
	tx, err := s.store.Transactions.Get(s.ctx, id)
	s.Require().NoError(err)
	return tx.CategoryID
}

func (s *ApplierSuite) TestBulkWithOneForeignTransaction() {
	var items []Item
	for i := 0; i < 9; i++ {
		items = append(items, Item{TransactionID: s.addTx(1, fmt.Sprintf("VENDOR %c", 'A'+i)), CategoryID: &s.food.ID})
	}
	foreign := s.addTx(99, "OTHER OWNER")
	items = append(items, Item{TransactionID: foreign, CategoryID: &s.food.ID})

	result := s.applier.Apply(s.ctx, s.scope, items, Options{Source: SourceBulk})
	s.Equal(9, result.Applied)
	s.Require().Len(result.Failed, 1)
	s.Equal(foreign, result.Failed[0].TransactionID)
	s.Equal(KindScopeViolation, result.Failed[0].Kind)
	s.Nil(s.categoryOf(foreign))

	for _, item := range items[:9] {
		s.Equal(s.food.ID, *s.categoryOf(item.TransactionID))
	}
}

func (s *ApplierSuite) TestApplyTwiceLeavesOneLearnedRule() {
	id := s.addTx(1, "STARBUCKS #1234")
	items := []Item{{TransactionID: id, CategoryID: &s.food.ID}}

	first := s.applier.Apply(s.ctx, s.scope, items, Options{Learn: true, Source: SourceManual})
	second := s.applier.Apply(s.ctx, s.scope, items, Options{Learn: true, Source: SourceManual})
	s.Equal(1, first.Applied)
	s.Equal(1, second.Applied)
	s.Empty(second.Failed)

	rules, err := s.store.Rules.List(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(rules, 1)
	s.Equal("starbucks", rules[0].Keyword)
	s.Equal(models.RuleSourceLearned, rules[0].Source)
}

func (s *ApplierSuite) TestNoLearningWithoutFlag() {
	id := s.addTx(1, "STARBUCKS #1234")
	result := s.applier.Apply(s.ctx, s.scope, []Item{{TransactionID: id, CategoryID: &s.food.ID}}, Options{Source: SourceAI})
	s.Equal(1, result.Applied)

	rules, err := s.store.Rules.List(s.ctx, 1)
	s.Require().NoError(err)
	s.Empty(rules)
}

func (s *ApplierSuite) TestInvalidCategories() {
	id := s.addTx(1, "COFFEE")
	foreign := &models.Category{OwnerID: 2, Name: "Theirs"}
	s.Require().NoError(s.store.Categories.Create(s.ctx, foreign))
	retired := &models.Category{OwnerID: 1, Name: "Retired"}
	s.Require().NoError(s.store.Categories.Create(s.ctx, retired))
	_, err := s.store.Categories.Deactivate(s.ctx, 1, retired.ID, nil)
	s.Require().NoError(err)
	missing := uint(4242)

	result := s.applier.Apply(s.ctx, s.scope, []Item{
		{TransactionID: id, CategoryID: &foreign.ID},
		{TransactionID: id, CategoryID: &retired.ID},
		{TransactionID: id, CategoryID: &missing},
	}, Options{Learn: true, Source: SourceManual})

	s.Zero(result.Applied)
	s.Require().Len(result.Failed, 3)
	for _, f := range result.Failed {
		s.Equal(KindInvalidCategory, f.Kind)
	}
	s.Equal("category is inactive", result.Failed[1].Reason)
	s.Nil(s.categoryOf(id))
}

func (s *ApplierSuite) TestClearCategory() {
	id := s.addTx(1, "COFFEE")
	s.Require().Equal(1, s.applier.Apply(s.ctx, s.scope, []Item{{TransactionID: id, CategoryID: &s.food.ID}}, Options{}).Applied)

	result := s.applier.Apply(s.ctx, s.scope, []Item{{TransactionID: id}}, Options{Learn: true})
	s.Equal(1, result.Applied)
	s.Nil(s.categoryOf(id))
}

func (s *ApplierSuite) TestLearningFailureIsNotAnItemFailure() {
	id := s.addTx(1, "#12 99")
	result := s.applier.Apply(s.ctx, s.scope, []Item{{TransactionID: id, CategoryID: &s.food.ID}}, Options{Learn: true})
	s.Equal(1, result.Applied)
	s.Empty(result.Failed)
	s.True(s.log.HasEntry("WARN", "Failed to learn rule from correction"))
}

func (s *ApplierSuite) TestCancelledBeforeStart() {
	id := s.addTx(1, "COFFEE")
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	result := s.applier.Apply(ctx, s.scope, []Item{{TransactionID: id, CategoryID: &s.food.ID}}, Options{})
	s.True(result.Cancelled)
	s.Zero(result.Applied)
	s.Nil(s.categoryOf(id))
}
