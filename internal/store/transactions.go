package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LiorShrago/BudgetBuddy/internal/models"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a TransactionRepository over db.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

var fingerprintConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "account_id"}, {Name: "fingerprint"}},
	DoNothing: true,
}

func (r *transactionRepository) InsertBatch(ctx context.Context, txs []models.Transaction) ([]models.Transaction, int, error) {
	var inserted []models.Transaction
	duplicates := 0

	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		for i := range txs {
			tx := txs[i]
			res := db.Clauses(fingerprintConflict).Create(&tx)
			if res.Error != nil {
				return fmt.Errorf("failed to insert transaction: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				duplicates++
				continue
			}
			inserted = append(inserted, tx)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return inserted, duplicates, nil
}

func (r *transactionRepository) Insert(ctx context.Context, tx *models.Transaction) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(fingerprintConflict).Create(tx)
	if res.Error != nil {
		return false, fmt.Errorf("failed to insert transaction: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *transactionRepository) Fingerprints(ctx context.Context, accountID uint) (map[string]struct{}, error) {
	var fps []string
	if err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("account_id = ?", accountID).
		Pluck("fingerprint", &fps).Error; err != nil {
		return nil, fmt.Errorf("failed to load fingerprints: %w", err)
	}
	set := make(map[string]struct{}, len(fps))
	for _, fp := range fps {
		set[fp] = struct{}{}
	}
	return set, nil
}

func (r *transactionRepository) FingerprintExists(ctx context.Context, accountID uint, fingerprint string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("account_id = ? AND fingerprint = ?", accountID, fingerprint).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return count > 0, nil
}

func (r *transactionRepository) Get(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	if len(ids) == 0 {
		return txs, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (r *transactionRepository) List(ctx context.Context, accountIDs []uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	if len(accountIDs) == 0 {
		return txs, nil
	}
	if err := r.db.WithContext(ctx).Where("account_id IN ?", accountIDs).
		Order("date, id").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (r *transactionRepository) ListUncategorized(ctx context.Context, accountIDs []uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	if len(accountIDs) == 0 {
		return txs, nil
	}
	if err := r.db.WithContext(ctx).
		Where("account_id IN ? AND category_id IS NULL", accountIDs).
		Order("id").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list uncategorized transactions: %w", err)
	}
	return txs, nil
}

func (r *transactionRepository) SetCategory(ctx context.Context, id uint, categoryID *uint) error {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("category_id", categoryID)
	if res.Error != nil {
		return fmt.Errorf("failed to set category: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *transactionRepository) CountByCategory(ctx context.Context, categoryID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("category_id = ?", categoryID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func (r *transactionRepository) ReassignCategory(ctx context.Context, from, to uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("category_id = ?", from).
		Update("category_id", to)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reassign transactions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
