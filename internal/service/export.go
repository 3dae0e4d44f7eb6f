package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/LiorShrago/BudgetBuddy/internal/currencyutils"
	"github.com/LiorShrago/BudgetBuddy/internal/dateutils"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
)

// ExportRow is one line of a transaction export.
type ExportRow struct {
	ID          uint   `csv:"ID"`
	AccountID   uint   `csv:"AccountID"`
	Date        string `csv:"Date"`
	Amount      string `csv:"Amount"`
	Type        string `csv:"Type"`
	Description string `csv:"Description"`
	Merchant    string `csv:"Merchant"`
	Category    string `csv:"Category"`
	Fingerprint string `csv:"Fingerprint"`
}

// Export writes every transaction in scope as CSV, with signed amounts and the
// category name resolved. delimiter defaults to a comma.
func (s *Service) Export(ctx context.Context, scope models.Scope, w io.Writer, delimiter rune) (int, error) {
	txs, err := s.store.Transactions.List(ctx, scope.AccountIDs)
	if err != nil {
		return 0, err
	}
	categories, err := s.store.Categories.List(ctx, scope.OwnerID, true)
	if err != nil {
		return 0, err
	}
	names := make(map[uint]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	rows := make([]*ExportRow, 0, len(txs))
	for _, tx := range txs {
		row := &ExportRow{
			ID:          tx.ID,
			AccountID:   tx.AccountID,
			Date:        dateutils.ToISODate(tx.Date),
			Amount:      currencyutils.FormatAmount(tx.SignedAmount()),
			Type:        string(tx.Type),
			Description: tx.Description,
			Merchant:    tx.Merchant,
			Fingerprint: tx.Fingerprint,
		}
		if tx.CategoryID != nil {
			row.Category = names[*tx.CategoryID]
		}
		rows = append(rows, row)
	}

	csvWriter := csv.NewWriter(w)
	if delimiter != 0 {
		csvWriter.Comma = delimiter
	}
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return 0, fmt.Errorf("error marshaling transactions to CSV: %w", err)
	}

	s.logger.Debug("Exported transactions", logging.F(logging.FieldCount, len(rows)))
	return len(rows), nil
}
