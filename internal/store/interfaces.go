package store

import (
	"context"

	"github.com/LiorShrago/BudgetBuddy/internal/models"
)

// TransactionRepository persists canonical transactions.
type TransactionRepository interface {
	// InsertBatch inserts rows one by one, skipping any whose (account, fingerprint)
	// already exists. It returns the inserted rows and the number skipped.
	InsertBatch(ctx context.Context, txs []models.Transaction) ([]models.Transaction, int, error)
	Insert(ctx context.Context, tx *models.Transaction) (bool, error)
	Fingerprints(ctx context.Context, accountID uint) (map[string]struct{}, error)
	FingerprintExists(ctx context.Context, accountID uint, fingerprint string) (bool, error)
	Get(ctx context.Context, id uint) (*models.Transaction, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.Transaction, error)
	List(ctx context.Context, accountIDs []uint) ([]models.Transaction, error)
	ListUncategorized(ctx context.Context, accountIDs []uint) ([]models.Transaction, error)
	SetCategory(ctx context.Context, id uint, categoryID *uint) error
	CountByCategory(ctx context.Context, categoryID uint) (int64, error)
	ReassignCategory(ctx context.Context, from, to uint) (int64, error)
}

// CategoryRepository persists an owner's category forest.
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	Get(ctx context.Context, ownerID, id uint) (*models.Category, error)
	FindByName(ctx context.Context, ownerID uint, name string) (*models.Category, error)
	List(ctx context.Context, ownerID uint, includeInactive bool) ([]models.Category, error)
	Move(ctx context.Context, ownerID, id uint, parentID *uint) error
	Deactivate(ctx context.Context, ownerID, id uint, reassignTo *uint) (int64, error)
}

// RuleRepository persists categorization rules.
type RuleRepository interface {
	// Upsert inserts the rule or, when (owner, keyword, category) exists, updates
	// the listed columns. The stored row is returned.
	Upsert(ctx context.Context, rule *models.CategorizationRule, updateColumns ...string) (*models.CategorizationRule, error)
	Get(ctx context.Context, ownerID, id uint) (*models.CategorizationRule, error)
	List(ctx context.Context, ownerID uint) ([]models.CategorizationRule, error)
	ListActive(ctx context.Context, ownerID uint) ([]models.CategorizationRule, error)
	MaxPriorityForKeyword(ctx context.Context, ownerID uint, keyword string) (int, bool, error)
	Deactivate(ctx context.Context, ownerID, id uint) error
	DeactivateForCategory(ctx context.Context, ownerID, categoryID uint) error
}
