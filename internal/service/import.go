package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/LiorShrago/BudgetBuddy/internal/categorizer"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/normalizer"
	"github.com/LiorShrago/BudgetBuddy/internal/parsererror"
)

// ImportOptions control one import.
type ImportOptions struct {
	FormatHint string
	// Strict aborts on the first malformed row; the configured default applies when false.
	Strict bool
}

// ImportResult summarizes one import.
type ImportResult struct {
	ImportID         string            `json:"import_id"`
	Format           string            `json:"format"`
	ImportedCount    int               `json:"imported_count"`
	DuplicateCount   int               `json:"duplicate_count"`
	ParseErrorCount  int               `json:"parse_error_count"`
	CategorizedCount int               `json:"categorized_count"`
	Errors           []models.RowError `json:"errors,omitempty"`
}

// Import reads a statement for accountID, drops rows already on record and
// stores the rest, categorizing them with the owner's rules as they are written.
// Importing the same file again imports nothing.
func (s *Service) Import(ctx context.Context, scope models.Scope, accountID uint, r io.Reader, opts ImportOptions) (ImportResult, error) {
	var result ImportResult
	if !scope.Contains(accountID) {
		return result, ErrScopeViolation
	}

	data, err := io.ReadAll(io.LimitReader(r, s.opts.MaxFileBytes+1))
	if err != nil {
		return result, fmt.Errorf("failed to read statement: %w", err)
	}
	if int64(len(data)) > s.opts.MaxFileBytes {
		return result, fmt.Errorf("%w (%d bytes)", ErrFileTooLarge, s.opts.MaxFileBytes)
	}

	parsed, err := s.normalizer.Normalize(ctx, data, accountID, normalizer.Options{
		FormatHint: opts.FormatHint,
		Strict:     opts.Strict || s.opts.Strict,
	})
	result.Format = parsed.Format
	result.Errors = parsed.Report.Errors
	result.ParseErrorCount = len(parsed.Report.Errors)
	if err != nil {
		if errors.Is(err, parsererror.ErrNoValidRows) {
			s.metrics.ImportRows(parsed.Format, 0, 0, result.ParseErrorCount)
		}
		return result, err
	}

	existing, err := s.store.Transactions.Fingerprints(ctx, accountID)
	if err != nil {
		return result, err
	}
	fresh, duplicates := s.detector.Dedupe(parsed.Candidates, existing)

	rules, err := s.store.Rules.ListActive(ctx, scope.OwnerID)
	if err != nil {
		return result, err
	}
	ruleset := categorizer.NewRuleset(rules, s.logger)

	result.ImportID = uuid.NewString()
	txs := make([]models.Transaction, 0, len(fresh))
	for _, f := range fresh {
		tx := f.ToTransaction(result.ImportID)
		if m, ok := ruleset.ResolveTransaction(tx); ok {
			categoryID := m.CategoryID
			tx.CategoryID = &categoryID
		}
		txs = append(txs, tx)
	}

	inserted, skipped, err := s.store.Transactions.InsertBatch(ctx, txs)
	if err != nil {
		return result, err
	}
	result.ImportedCount = len(inserted)
	result.DuplicateCount = len(duplicates) + skipped
	for _, tx := range inserted {
		if tx.IsCategorized() {
			result.CategorizedCount++
		}
	}

	s.metrics.ImportRows(parsed.Format, result.ImportedCount, result.DuplicateCount, result.ParseErrorCount)
	s.logger.Info("Imported statement",
		logging.F(logging.FieldImportID, result.ImportID),
		logging.F(logging.FieldAccountID, accountID),
		logging.F(logging.FieldFormat, result.Format),
		logging.F(logging.FieldCount, result.ImportedCount),
		logging.F("duplicates", result.DuplicateCount),
		logging.F("parse_errors", result.ParseErrorCount))
	return result, nil
}
