package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/LiorShrago/BudgetBuddy/internal/categorizer"
	"github.com/LiorShrago/BudgetBuddy/internal/currencyutils"
	"github.com/LiorShrago/BudgetBuddy/internal/dateutils"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/store"
	"github.com/LiorShrago/BudgetBuddy/internal/textutils"
)

// ManualEntry is a hand-entered transaction.
type ManualEntry struct {
	AccountID   uint   `validate:"required"`
	Date        string `validate:"required"`
	Amount      string `validate:"required"`
	Description string `validate:"required,max=500"`
	// Type overrides the direction implied by the amount's sign.
	Type       models.TransactionType `validate:"omitempty,oneof=expense income transfer"`
	Merchant   string                 `validate:"max=200"`
	CategoryID *uint
}

// AddTransaction stores a manual entry. Identical hand-entered rows get
// increasing occurrence indexes, so entering the same coffee twice keeps both.
// Without an explicit category the owner's rules are applied.
func (s *Service) AddTransaction(ctx context.Context, scope models.Scope, entry ManualEntry) (*models.Transaction, error) {
	if err := s.validate.Struct(entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !scope.Contains(entry.AccountID) {
		return nil, ErrScopeViolation
	}

	date, _, err := dateutils.ParseDate(entry.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	signed, err := currencyutils.ParseAmount(entry.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount: %v", ErrInvalidInput, err)
	}
	if signed.IsZero() {
		return nil, fmt.Errorf("%w: zero amount", ErrInvalidInput)
	}

	description := textutils.CleanDescription(entry.Description)
	merchant := textutils.CleanDescription(entry.Merchant)
	if merchant == "" {
		merchant = textutils.ExtractMerchant(description)
	}

	candidate := models.Candidate{
		AccountID:   entry.AccountID,
		Date:        date,
		Amount:      signed.Abs(),
		Outflow:     signed.IsNegative(),
		Description: description,
		Merchant:    merchant,
	}
	switch {
	case entry.Type != "":
		candidate.Type = entry.Type
		if entry.Type == models.TypeExpense {
			candidate.Outflow = true
		} else if entry.Type == models.TypeIncome {
			candidate.Outflow = false
		}
	case candidate.Outflow:
		candidate.Type = models.TypeExpense
	default:
		candidate.Type = models.TypeIncome
	}

	var lookupErr error
	fingerprinted, free := s.detector.FirstFree(candidate, func(fp string) bool {
		exists, err := s.store.Transactions.FingerprintExists(ctx, entry.AccountID, fp)
		if err != nil {
			lookupErr = err
			return false
		}
		return exists
	})
	if lookupErr != nil {
		return nil, lookupErr
	}
	if !free {
		return nil, ErrDuplicateTransaction
	}

	tx := fingerprinted.ToTransaction("")
	if entry.CategoryID != nil {
		if err := s.checkCategory(ctx, scope.OwnerID, *entry.CategoryID); err != nil {
			return nil, err
		}
		tx.CategoryID = entry.CategoryID
	} else {
		rules, err := s.store.Rules.ListActive(ctx, scope.OwnerID)
		if err != nil {
			return nil, err
		}
		if m, ok := categorizer.NewRuleset(rules, s.logger).ResolveTransaction(tx); ok {
			categoryID := m.CategoryID
			tx.CategoryID = &categoryID
		}
	}

	inserted, err := s.store.Transactions.Insert(ctx, &tx)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, ErrDuplicateTransaction
	}

	s.logger.Info("Added manual transaction",
		logging.F(logging.FieldTransactionID, tx.ID),
		logging.F(logging.FieldAccountID, tx.AccountID))
	return &tx, nil
}

func (s *Service) checkCategory(ctx context.Context, ownerID, categoryID uint) error {
	category, err := s.store.Categories.Get(ctx, ownerID, categoryID)
	if errors.Is(err, store.ErrCategoryNotFound) {
		return ErrInvalidCategory
	}
	if err != nil {
		return err
	}
	if !category.Active {
		return ErrInvalidCategory
	}
	return nil
}
