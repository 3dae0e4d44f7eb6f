package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/store"
)

// NewCategory is the input to CreateCategory.
type NewCategory struct {
	Name     string `validate:"required,max=100"`
	Color    string `validate:"omitempty,hexcolor"`
	ParentID *uint
}

// CreateCategory adds a category for the owner. Names are unique per owner,
// ignoring case.
func (s *Service) CreateCategory(ctx context.Context, scope models.Scope, in NewCategory) (*models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	category := &models.Category{
		OwnerID:  scope.OwnerID,
		Name:     in.Name,
		Color:    in.Color,
		ParentID: in.ParentID,
	}
	if err := s.store.Categories.Create(ctx, category); err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			return nil, ErrInvalidCategory
		}
		return nil, err
	}

	s.logger.Info("Created category",
		logging.F(logging.FieldOwnerID, scope.OwnerID),
		logging.F(logging.FieldCategory, category.Name))
	return category, nil
}

// ListCategories returns the owner's categories ordered by name.
func (s *Service) ListCategories(ctx context.Context, scope models.Scope, includeInactive bool) ([]models.Category, error) {
	return s.store.Categories.List(ctx, scope.OwnerID, includeInactive)
}

// MoveCategory reparents a category; a nil parent makes it a root.
func (s *Service) MoveCategory(ctx context.Context, scope models.Scope, id uint, parentID *uint) error {
	err := s.store.Categories.Move(ctx, scope.OwnerID, id, parentID)
	if errors.Is(err, store.ErrCategoryNotFound) {
		return ErrInvalidCategory
	}
	return err
}

// DeactivateCategory hides a category and its rules. Transactions still using it
// are moved to reassignTo, which is required when any exist.
func (s *Service) DeactivateCategory(ctx context.Context, scope models.Scope, id uint, reassignTo *uint) (int64, error) {
	moved, err := s.store.Categories.Deactivate(ctx, scope.OwnerID, id, reassignTo)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			return 0, ErrInvalidCategory
		}
		return 0, err
	}

	s.logger.Info("Deactivated category",
		logging.F(logging.FieldOwnerID, scope.OwnerID),
		logging.F(logging.FieldCategoryID, id),
		logging.F("reassigned", moved))
	return moved, nil
}

// BootstrapDefaults creates the default categories and their pattern rules for
// the owner. Running it again creates nothing.
func (s *Service) BootstrapDefaults(ctx context.Context, scope models.Scope) (store.SeedResult, error) {
	seed, err := store.LoadSeed(s.opts.SeedFile)
	if err != nil {
		return store.SeedResult{}, err
	}

	result, err := s.store.SeedDefaults(ctx, scope.OwnerID, seed, s.opts.DefaultPatternPriority)
	if err != nil {
		return result, err
	}

	s.logger.Info("Seeded default categories",
		logging.F(logging.FieldOwnerID, scope.OwnerID),
		logging.F("categories", result.Categories),
		logging.F("rules", result.Rules))
	return result, nil
}
