// Package store provides gorm-backed persistence for transactions, categories
// and categorization rules, plus the default category seed.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrCategoryExists      = errors.New("category name already exists")
	ErrCategoryCycle       = errors.New("category parent would create a cycle")
	ErrCategoryInUse       = errors.New("category is still assigned to transactions")
	ErrRuleNotFound        = errors.New("rule not found")
)

// Store groups the repositories sharing one database handle.
type Store struct {
	db           *gorm.DB
	Transactions TransactionRepository
	Categories   CategoryRepository
	Rules        RuleRepository
}

// New creates a Store over db.
func New(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Transactions: NewTransactionRepository(db),
		Categories:   NewCategoryRepository(db),
		Rules:        NewRuleRepository(db),
	}
}

// InTx runs fn against a Store bound to a single database transaction.
// fn must only use the Store it is given.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
