// Package models provides the data structures used throughout the application.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money for a canonical transaction.
type TransactionType string

const (
	TypeExpense  TransactionType = "expense"
	TypeIncome   TransactionType = "income"
	TypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeExpense, TypeIncome, TypeTransfer:
		return true
	}
	return false
}

// Transaction is a canonical, persisted transaction.
//
// Amount holds the magnitude; Type (and Outflow for transfers) carries the direction.
// Fingerprint is computed once at creation and never recomputed.
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	AccountID   uint            `gorm:"not null;uniqueIndex:idx_transactions_account_fingerprint,priority:1;index" json:"account_id"`
	ImportID    string          `gorm:"type:varchar(36);index" json:"import_id,omitempty"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Type        TransactionType `gorm:"type:varchar(20);not null" json:"type"`
	Outflow     bool            `gorm:"not null;default:false" json:"outflow"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Merchant    string          `gorm:"type:varchar(200)" json:"merchant,omitempty"`
	CategoryID  *uint           `gorm:"index" json:"category_id,omitempty"`
	Fingerprint string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_transactions_account_fingerprint,priority:2" json:"fingerprint"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SignedAmount returns the amount with money leaving the account as a negative value.
func (t Transaction) SignedAmount() decimal.Decimal {
	return Signed(t.Amount, t.Type, t.Outflow)
}

// IsCategorized reports whether a category has been assigned.
func (t Transaction) IsCategorized() bool {
	return t.CategoryID != nil
}

// Signed turns a magnitude into a signed amount for the given direction.
func Signed(amount decimal.Decimal, typ TransactionType, outflow bool) decimal.Decimal {
	amount = amount.Abs()
	switch typ {
	case TypeExpense:
		return amount.Neg()
	case TypeTransfer:
		if outflow {
			return amount.Neg()
		}
	}
	return amount
}

// Candidate is a normalized row that has not been fingerprinted or stored yet.
type Candidate struct {
	Row         int
	AccountID   uint
	Date        time.Time
	Amount      decimal.Decimal
	Type        TransactionType
	Outflow     bool
	Description string
	Merchant    string
}

// SignedAmount returns the candidate amount with outflows negative.
func (c Candidate) SignedAmount() decimal.Decimal {
	return Signed(c.Amount, c.Type, c.Outflow)
}

// Fingerprinted pairs a candidate with its deduplication fingerprint.
type Fingerprinted struct {
	Candidate
	Fingerprint string
}

// ToTransaction builds the persistable transaction for a fingerprinted candidate.
func (f Fingerprinted) ToTransaction(importID string) Transaction {
	return Transaction{
		AccountID:   f.AccountID,
		ImportID:    importID,
		Date:        f.Date,
		Amount:      f.Amount.Abs(),
		Type:        f.Type,
		Outflow:     f.Outflow,
		Description: f.Description,
		Merchant:    f.Merchant,
		Fingerprint: f.Fingerprint,
	}
}

// RowError describes one skipped input row.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ParseReport summarizes a normalization run.
type ParseReport struct {
	TotalRows  int        `json:"total_rows"`
	ParsedRows int        `json:"parsed_rows"`
	Errors     []RowError `json:"errors,omitempty"`
}

// AddError records a skipped row.
func (r *ParseReport) AddError(row int, reason string) {
	r.Errors = append(r.Errors, RowError{Row: row, Reason: reason})
}
