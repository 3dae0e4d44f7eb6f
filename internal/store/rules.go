package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LiorShrago/BudgetBuddy/internal/models"
)

type ruleRepository struct {
	db *gorm.DB
}

// NewRuleRepository creates a RuleRepository over db.
func NewRuleRepository(db *gorm.DB) RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) Upsert(ctx context.Context, rule *models.CategorizationRule, updateColumns ...string) (*models.CategorizationRule, error) {
	conflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}, {Name: "keyword"}, {Name: "category_id"}},
	}
	if len(updateColumns) > 0 {
		conflict.DoUpdates = clause.AssignmentColumns(updateColumns)
	} else {
		conflict.DoNothing = true
	}

	db := r.db.WithContext(ctx)
	if err := db.Clauses(conflict).Create(rule).Error; err != nil {
		return nil, fmt.Errorf("failed to upsert rule: %w", err)
	}

	var stored models.CategorizationRule
	if err := db.Where("owner_id = ? AND keyword = ? AND category_id = ?",
		rule.OwnerID, rule.Keyword, rule.CategoryID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to reload rule: %w", err)
	}
	return &stored, nil
}

func (r *ruleRepository) Get(ctx context.Context, ownerID, id uint) (*models.CategorizationRule, error) {
	var rule models.CategorizationRule
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return &rule, nil
}

func (r *ruleRepository) List(ctx context.Context, ownerID uint) ([]models.CategorizationRule, error) {
	var rules []models.CategorizationRule
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).
		Order("priority, id").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return rules, nil
}

func (r *ruleRepository) ListActive(ctx context.Context, ownerID uint) ([]models.CategorizationRule, error) {
	var rules []models.CategorizationRule
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND active = ?", ownerID, true).
		Order("priority, id").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list active rules: %w", err)
	}
	return rules, nil
}

func (r *ruleRepository) MaxPriorityForKeyword(ctx context.Context, ownerID uint, keyword string) (int, bool, error) {
	var highest sql.NullInt64
	row := r.db.WithContext(ctx).Model(&models.CategorizationRule{}).
		Where("owner_id = ? AND keyword = ? AND active = ?", ownerID, keyword, true).
		Select("MAX(priority)").Row()
	if err := row.Scan(&highest); err != nil {
		return 0, false, fmt.Errorf("failed to read rule priority: %w", err)
	}
	if !highest.Valid {
		return 0, false, nil
	}
	return int(highest.Int64), true, nil
}

func (r *ruleRepository) Deactivate(ctx context.Context, ownerID, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.CategorizationRule{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Update("active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate rule: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *ruleRepository) DeactivateForCategory(ctx context.Context, ownerID, categoryID uint) error {
	if err := r.db.WithContext(ctx).Model(&models.CategorizationRule{}).
		Where("owner_id = ? AND category_id = ?", ownerID, categoryID).
		Update("active", false).Error; err != nil {
		return fmt.Errorf("failed to deactivate rules: %w", err)
	}
	return nil
}
