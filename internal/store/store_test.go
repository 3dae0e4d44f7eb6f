package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/LiorShrago/BudgetBuddy/internal/database"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
)

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *Store
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = New(database.SetupTestDB(s.T()).DB)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) transaction(accountID uint, fp, desc string) models.Transaction {
	return models.Transaction{
		AccountID:   accountID,
		Date:        time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString("5.75"),
		Type:        models.TypeExpense,
		Description: desc,
		Fingerprint: fp,
	}
}

func (s *StoreSuite) category(owner uint, name string) *models.Category {
	c := &models.Category{OwnerID: owner, Name: name}
	s.Require().NoError(s.store.Categories.Create(s.ctx, c))
	return c
}

func (s *StoreSuite) TestInsertBatch_SkipsExistingFingerprints() {
	batch := []models.Transaction{
		s.transaction(1, "a", "COFFEE"),
		s.transaction(1, "b", "TEA"),
		s.transaction(2, "a", "COFFEE"),
	}
	inserted, dups, err := s.store.Transactions.InsertBatch(s.ctx, batch)
	s.Require().NoError(err)
	s.Len(inserted, 3)
	s.Zero(dups)
	s.NotZero(inserted[0].ID)

	inserted, dups, err = s.store.Transactions.InsertBatch(s.ctx, batch[:2])
	s.Require().NoError(err)
	s.Empty(inserted)
	s.Equal(2, dups)

	fps, err := s.store.Transactions.Fingerprints(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(fps, 2)

	exists, err := s.store.Transactions.FingerprintExists(s.ctx, 2, "b")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *StoreSuite) TestInsertAndCategory() {
	tx := s.transaction(1, "x", "STARBUCKS #1234")
	ok, err := s.store.Transactions.Insert(s.ctx, &tx)
	s.Require().NoError(err)
	s.True(ok)

	dup := s.transaction(1, "x", "STARBUCKS #1234")
	ok, err = s.store.Transactions.Insert(s.ctx, &dup)
	s.Require().NoError(err)
	s.False(ok)

	food := s.category(1, "Food & Dining")
	s.Require().NoError(s.store.Transactions.SetCategory(s.ctx, tx.ID, &food.ID))

	got, err := s.store.Transactions.Get(s.ctx, tx.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.CategoryID)
	s.Equal(food.ID, *got.CategoryID)
	s.True(got.Amount.Equal(decimal.RequireFromString("5.75")))

	uncategorized, err := s.store.Transactions.ListUncategorized(s.ctx, []uint{1})
	s.Require().NoError(err)
	s.Empty(uncategorized)

	s.Require().NoError(s.store.Transactions.SetCategory(s.ctx, tx.ID, nil))
	uncategorized, err = s.store.Transactions.ListUncategorized(s.ctx, []uint{1})
	s.Require().NoError(err)
	s.Len(uncategorized, 1)

	s.ErrorIs(s.store.Transactions.SetCategory(s.ctx, 999, nil), ErrTransactionNotFound)
	_, err = s.store.Transactions.Get(s.ctx, 999)
	s.ErrorIs(err, ErrTransactionNotFound)
}

func (s *StoreSuite) TestCategoryNamesUniquePerOwner() {
	s.category(1, "Travel")
	err := s.store.Categories.Create(s.ctx, &models.Category{OwnerID: 1, Name: "  travel "})
	s.ErrorIs(err, ErrCategoryExists)

	other := s.category(2, "Travel")
	s.Equal(models.DefaultCategoryColor, other.Color)

	found, err := s.store.Categories.FindByName(s.ctx, 1, "TRAVEL")
	s.Require().NoError(err)
	s.Equal("Travel", found.Name)

	_, err = s.store.Categories.Get(s.ctx, 1, other.ID)
	s.ErrorIs(err, ErrCategoryNotFound)
}

func (s *StoreSuite) TestMoveRejectsCycles() {
	root := s.category(1, "Food")
	child := s.category(1, "Groceries")
	grandchild := s.category(1, "Produce")

	s.Require().NoError(s.store.Categories.Move(s.ctx, 1, child.ID, &root.ID))
	s.Require().NoError(s.store.Categories.Move(s.ctx, 1, grandchild.ID, &child.ID))

	s.ErrorIs(s.store.Categories.Move(s.ctx, 1, root.ID, &grandchild.ID), ErrCategoryCycle)
	s.ErrorIs(s.store.Categories.Move(s.ctx, 1, root.ID, &root.ID), ErrCategoryCycle)

	s.Require().NoError(s.store.Categories.Move(s.ctx, 1, grandchild.ID, nil))
	got, err := s.store.Categories.Get(s.ctx, 1, grandchild.ID)
	s.Require().NoError(err)
	s.Nil(got.ParentID)

	foreign := s.category(2, "Other")
	s.ErrorIs(s.store.Categories.Move(s.ctx, 1, child.ID, &foreign.ID), ErrCategoryNotFound)
}

func (s *StoreSuite) TestDeactivateBlocksOrReassigns() {
	food := s.category(1, "Food")
	dining := s.category(1, "Dining")

	tx := s.transaction(1, "f1", "RESTAURANT")
	tx.CategoryID = &food.ID
	_, err := s.store.Transactions.Insert(s.ctx, &tx)
	s.Require().NoError(err)

	_, err = s.store.Rules.Upsert(s.ctx, &models.CategorizationRule{
		OwnerID: 1, Keyword: "restaurant", CategoryID: food.ID, Priority: 1, Active: true, Source: models.RuleSourceUser,
	})
	s.Require().NoError(err)

	_, err = s.store.Categories.Deactivate(s.ctx, 1, food.ID, nil)
	s.ErrorIs(err, ErrCategoryInUse)

	n, err := s.store.Categories.Deactivate(s.ctx, 1, food.ID, &dining.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	got, err := s.store.Transactions.Get(s.ctx, tx.ID)
	s.Require().NoError(err)
	s.Equal(dining.ID, *got.CategoryID)

	active, err := s.store.Categories.List(s.ctx, 1, false)
	s.Require().NoError(err)
	s.Len(active, 1)

	all, err := s.store.Categories.List(s.ctx, 1, true)
	s.Require().NoError(err)
	s.Len(all, 2)

	rules, err := s.store.Rules.ListActive(s.ctx, 1)
	s.Require().NoError(err)
	s.Empty(rules)
}

func (s *StoreSuite) TestRuleUpsertCollapsesDuplicates() {
	food := s.category(1, "Food")
	rule := func(priority int) *models.CategorizationRule {
		return &models.CategorizationRule{
			OwnerID: 1, Keyword: "starbucks", CategoryID: food.ID, Priority: priority, Active: true, Source: models.RuleSourceUser,
		}
	}

	first, err := s.store.Rules.Upsert(s.ctx, rule(3))
	s.Require().NoError(err)

	second, err := s.store.Rules.Upsert(s.ctx, rule(9))
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal(3, second.Priority, "do-nothing upsert keeps the stored row")

	third, err := s.store.Rules.Upsert(s.ctx, rule(1), "priority", "active")
	s.Require().NoError(err)
	s.Equal(first.ID, third.ID)
	s.Equal(1, third.Priority)

	rules, err := s.store.Rules.List(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(rules, 1)

	high, ok, err := s.store.Rules.MaxPriorityForKeyword(s.ctx, 1, "starbucks")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(1, high)

	_, ok, err = s.store.Rules.MaxPriorityForKeyword(s.ctx, 1, "tim hortons")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.Rules.Deactivate(s.ctx, 1, first.ID))
	s.ErrorIs(s.store.Rules.Deactivate(s.ctx, 2, first.ID), ErrRuleNotFound)

	active, err := s.store.Rules.ListActive(s.ctx, 1)
	s.Require().NoError(err)
	s.Empty(active)
}

func (s *StoreSuite) TestInTxRollsBack() {
	err := s.store.InTx(s.ctx, func(tx *Store) error {
		c := &models.Category{OwnerID: 1, Name: "Temp"}
		if err := tx.Categories.Create(s.ctx, c); err != nil {
			return err
		}
		return ErrCategoryInUse
	})
	s.ErrorIs(err, ErrCategoryInUse)

	_, err = s.store.Categories.FindByName(s.ctx, 1, "Temp")
	s.ErrorIs(err, ErrCategoryNotFound)
}

func (s *StoreSuite) TestSeedDefaultsIsIdempotent() {
	seed, err := LoadSeed("")
	s.Require().NoError(err)
	s.Len(seed.Categories, 10)

	first, err := s.store.SeedDefaults(s.ctx, 1, seed, 100)
	s.Require().NoError(err)
	s.Equal(10, first.Categories)
	s.Greater(first.Rules, 20)

	second, err := s.store.SeedDefaults(s.ctx, 1, seed, 100)
	s.Require().NoError(err)
	s.Zero(second.Categories)
	s.Zero(second.Rules)

	food, err := s.store.Categories.FindByName(s.ctx, 1, "food & dining")
	s.Require().NoError(err)
	s.Equal("#28a745", food.Color)

	rules, err := s.store.Rules.ListActive(s.ctx, 1)
	s.Require().NoError(err)
	for _, r := range rules {
		s.True(r.IsPattern)
		s.Equal(100, r.Priority)
		s.Equal(models.RuleSourceDefault, r.Source)
	}
}

func TestLoadSeed_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := "categories:\n  - name: Pets\n    color: \"#123456\"\n    patterns: [\"petsmart|vet\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(seed.Categories) != 1 || seed.Categories[0].Name != "Pets" {
		t.Fatalf("unexpected seed: %+v", seed)
	}

	if _, err := LoadSeed(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing seed file")
	}
	if _, err := ParseSeed([]byte("categories: []")); err == nil {
		t.Fatal("expected error for empty seed")
	}
}
