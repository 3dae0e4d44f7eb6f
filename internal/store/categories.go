package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/LiorShrago/BudgetBuddy/internal/models"
)

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a CategoryRepository over db.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	category.NameKey = models.CategoryKey(category.Name)
	if category.Color == "" {
		category.Color = models.DefaultCategoryColor
	}
	category.Active = true

	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if category.ParentID != nil {
			if _, err := getCategory(db, category.OwnerID, *category.ParentID); err != nil {
				return fmt.Errorf("parent: %w", err)
			}
		}

		var count int64
		if err := db.Model(&models.Category{}).
			Where("owner_id = ? AND name_key = ?", category.OwnerID, category.NameKey).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check category name: %w", err)
		}
		if count > 0 {
			return ErrCategoryExists
		}

		if err := db.Create(category).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrCategoryExists
			}
			return fmt.Errorf("failed to create category: %w", err)
		}
		return nil
	})
}

func (r *categoryRepository) Get(ctx context.Context, ownerID, id uint) (*models.Category, error) {
	return getCategory(r.db.WithContext(ctx), ownerID, id)
}

func getCategory(db *gorm.DB, ownerID, id uint) (*models.Category, error) {
	var category models.Category
	if err := db.Where("owner_id = ? AND id = ?", ownerID, id).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

func (r *categoryRepository) FindByName(ctx context.Context, ownerID uint, name string) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND name_key = ?", ownerID, models.CategoryKey(name)).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context, ownerID uint, includeInactive bool) ([]models.Category, error) {
	var categories []models.Category
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	if err := q.Order("name_key").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Move reparents a category. A nil parent makes it a root. Walking up from the
// new parent must never reach the category itself.
func (r *categoryRepository) Move(ctx context.Context, ownerID, id uint, parentID *uint) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if _, err := getCategory(db, ownerID, id); err != nil {
			return err
		}

		if parentID != nil {
			seen := map[uint]bool{}
			for cur := parentID; cur != nil; {
				if *cur == id {
					return ErrCategoryCycle
				}
				if seen[*cur] {
					return ErrCategoryCycle
				}
				seen[*cur] = true

				parent, err := getCategory(db, ownerID, *cur)
				if err != nil {
					return fmt.Errorf("parent: %w", err)
				}
				cur = parent.ParentID
			}
		}

		if err := db.Model(&models.Category{}).Where("id = ?", id).
			Update("parent_id", parentID).Error; err != nil {
			return fmt.Errorf("failed to move category: %w", err)
		}
		return nil
	})
}

// Deactivate hides a category. When transactions still reference it, reassignTo
// must name another active category of the owner; otherwise ErrCategoryInUse is
// returned. Rules targeting the category are deactivated with it.
func (r *categoryRepository) Deactivate(ctx context.Context, ownerID, id uint, reassignTo *uint) (int64, error) {
	var reassigned int64
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if _, err := getCategory(db, ownerID, id); err != nil {
			return err
		}

		txs := NewTransactionRepository(db)
		count, err := txs.CountByCategory(ctx, id)
		if err != nil {
			return err
		}

		if count > 0 {
			if reassignTo == nil {
				return ErrCategoryInUse
			}
			if *reassignTo == id {
				return fmt.Errorf("cannot reassign a category to itself: %w", ErrCategoryInUse)
			}
			target, err := getCategory(db, ownerID, *reassignTo)
			if err != nil {
				return fmt.Errorf("reassign target: %w", err)
			}
			if !target.Active {
				return fmt.Errorf("reassign target: %w", ErrCategoryNotFound)
			}
			if reassigned, err = txs.ReassignCategory(ctx, id, target.ID); err != nil {
				return err
			}
		}

		if err := NewRuleRepository(db).DeactivateForCategory(ctx, ownerID, id); err != nil {
			return err
		}
		if err := db.Model(&models.Category{}).Where("id = ?", id).
			Update("active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate category: %w", err)
		}
		return nil
	})
	return reassigned, err
}
