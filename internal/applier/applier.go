// Package applier writes category assignments chosen by a user or approved from
// suggestions. Each item commits on its own; one bad item never undoes another.
package applier

import (
	"context"
	"errors"
	"fmt"

	"github.com/LiorShrago/BudgetBuddy/internal/categorizer"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/metrics"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/store"
)

// Kind classifies a per-item failure.
type Kind string

const (
	KindScopeViolation  Kind = "ScopeViolation"
	KindInvalidCategory Kind = "InvalidCategory"
	KindStorage         Kind = "StorageError"
)

// Sources label where an assignment came from.
const (
	SourceManual = "manual"
	SourceBulk   = "bulk"
	SourceAI     = "ai"
	SourceRule   = "rule"
)

var (
	errScope           = errors.New("transaction not found in scope")
	errUnknownCategory = errors.New("category does not exist for this owner")
	errInactive        = errors.New("category is inactive")
)

// Item assigns CategoryID (nil clears it) to a transaction.
type Item struct {
	TransactionID uint  `json:"transaction_id"`
	CategoryID    *uint `json:"category_id"`
}

// Options control an Apply call.
type Options struct {
	// Learn creates or refreshes a rule from each applied item.
	Learn  bool
	Source string
}

// ItemFailure is an item that was not applied.
type ItemFailure struct {
	TransactionID uint   `json:"transaction_id"`
	Kind          Kind   `json:"kind"`
	Reason        string `json:"reason"`
}

// Result summarizes an Apply call.
type Result struct {
	Applied int           `json:"applied"`
	Failed  []ItemFailure `json:"failed,omitempty"`
	// Cancelled is set when ctx ended before every item was attempted.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Applier applies category assignments.
type Applier struct {
	store   *store.Store
	learner *categorizer.Learner
	metrics metrics.Recorder
	logger  logging.Logger
}

// New creates an Applier. learner may be nil when learning is never requested.
func New(st *store.Store, learner *categorizer.Learner, recorder metrics.Recorder, logger logging.Logger) *Applier {
	return &Applier{
		store:   st,
		learner: learner,
		metrics: metrics.OrNop(recorder),
		logger:  logging.OrDefault(logger),
	}
}

// Apply writes items in order. Re-applying an assignment already in place
// succeeds without side effects beyond refreshing the learned rule.
func (a *Applier) Apply(ctx context.Context, scope models.Scope, items []Item, opts Options) Result {
	var result Result
	learned := 0
	log := a.logger.WithFields(
		logging.F(logging.FieldOwnerID, scope.OwnerID),
		logging.F(logging.FieldOperation, opts.Source))

	for _, item := range items {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		tx, kind, err := a.applyOne(ctx, scope, item)
		if err != nil {
			result.Failed = append(result.Failed, ItemFailure{
				TransactionID: item.TransactionID,
				Kind:          kind,
				Reason:        err.Error(),
			})
			log.Debug("Category not applied",
				logging.F(logging.FieldTransactionID, item.TransactionID),
				logging.F(logging.FieldReason, err.Error()))
			continue
		}
		result.Applied++

		if opts.Learn && item.CategoryID != nil && a.learner != nil {
			if _, err := a.learner.Learn(ctx, scope.OwnerID, *tx, *item.CategoryID); err != nil {
				log.WithError(err).Warn("Failed to learn rule from correction",
					logging.F(logging.FieldTransactionID, item.TransactionID))
			} else {
				learned++
			}
		}
	}

	a.metrics.ItemsApplied(opts.Source, result.Applied, len(result.Failed))
	a.metrics.RulesLearned(learned)
	log.Info("Applied categories",
		logging.F(logging.FieldCount, result.Applied),
		logging.F("failed", len(result.Failed)))
	return result
}

func (a *Applier) applyOne(ctx context.Context, scope models.Scope, item Item) (*models.Transaction, Kind, error) {
	var applied *models.Transaction
	var kind Kind

	err := a.store.InTx(ctx, func(st *store.Store) error {
		tx, err := st.Transactions.Get(ctx, item.TransactionID)
		if errors.Is(err, store.ErrTransactionNotFound) || (err == nil && !scope.Contains(tx.AccountID)) {
			kind = KindScopeViolation
			return errScope
		}
		if err != nil {
			kind = KindStorage
			return err
		}

		if item.CategoryID != nil {
			category, err := st.Categories.Get(ctx, scope.OwnerID, *item.CategoryID)
			switch {
			case errors.Is(err, store.ErrCategoryNotFound):
				kind = KindInvalidCategory
				return errUnknownCategory
			case err != nil:
				kind = KindStorage
				return err
			case !category.Active:
				kind = KindInvalidCategory
				return errInactive
			}
		}

		if !sameCategory(tx.CategoryID, item.CategoryID) {
			if err := st.Transactions.SetCategory(ctx, tx.ID, item.CategoryID); err != nil {
				kind = KindStorage
				return fmt.Errorf("failed to set category: %w", err)
			}
			tx.CategoryID = item.CategoryID
		}
		applied = tx
		return nil
	})
	if err != nil {
		if kind == "" {
			kind = KindStorage
		}
		return nil, kind, err
	}
	return applied, "", nil
}

func sameCategory(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
