// Package normalizer turns bank statement exports into canonical candidate
// transactions. Each supported bank layout registers a signature; the first
// layout whose signature matches the file parses it.
package normalizer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/LiorShrago/BudgetBuddy/internal/currencyutils"
	"github.com/LiorShrago/BudgetBuddy/internal/dateutils"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/parsererror"
	"github.com/LiorShrago/BudgetBuddy/internal/textutils"
)

// Options control a single normalization run.
type Options struct {
	// FormatHint names a layout and bypasses detection.
	FormatHint string
	// Strict aborts on the first malformed row.
	Strict bool
}

// Result is the outcome of a normalization run.
type Result struct {
	Format     string
	Candidates []models.Candidate
	Report     models.ParseReport
}

// Normalizer parses raw statement bytes into candidates.
type Normalizer struct {
	layouts          []Layout
	transferKeywords []string
	logger           logging.Logger
}

// New creates a Normalizer with the built-in layouts.
func New(transferKeywords []string, logger logging.Logger) *Normalizer {
	return &Normalizer{
		layouts:          Layouts(),
		transferKeywords: transferKeywords,
		logger:           logging.OrDefault(logger),
	}
}

// Formats lists the layout names in detection order.
func (n *Normalizer) Formats() []string {
	names := make([]string, len(n.layouts))
	for i, l := range n.layouts {
		names[i] = l.Name
	}
	return names
}

// Normalize parses data for accountID.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, accountID uint, opts Options) (Result, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	records, err := readRecords(data)
	if err != nil {
		return Result{}, err
	}
	if len(records) == 0 {
		return Result{}, &parsererror.FormatDetectionError{Hint: opts.FormatHint, Known: n.Formats()}
	}

	layout, cols, err := n.detect(records[0].fields, opts.FormatHint)
	if err != nil {
		return Result{}, err
	}

	log := n.logger.WithFields(
		logging.F(logging.FieldFormat, layout.Name),
		logging.F(logging.FieldAccountID, accountID),
	)
	log.Debug("Detected statement layout")

	result := Result{Format: layout.Name}
	start := 0
	if cols.header {
		start = 1
	}

	for i := start; i < len(records); i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rec := records[i]
		if rec.err == nil && blank(rec.fields) {
			continue
		}
		rowNum := rec.row
		if rec.err == nil && !cols.completed(rec.fields) {
			log.Debug("Skipping unsettled row", logging.F(logging.FieldRow, rowNum))
			continue
		}
		result.Report.TotalRows++

		var candidate models.Candidate
		var perr *parsererror.ParseError
		if rec.err != nil {
			perr = &parsererror.ParseError{Parser: layout.Name, Field: "record", Err: rec.err}
		} else {
			candidate, perr = n.parseRow(layout, cols, rec.fields)
		}
		if perr != nil {
			reason := rowReason(perr)
			if opts.Strict {
				return result, &parsererror.RowParseError{Row: rowNum, Reason: reason, Err: perr}
			}
			result.Report.AddError(rowNum, reason)
			log.Debug("Skipping malformed row",
				logging.F(logging.FieldRow, rowNum),
				logging.F(logging.FieldReason, reason))
			continue
		}

		candidate.Row = rowNum
		candidate.AccountID = accountID
		result.Candidates = append(result.Candidates, candidate)
		result.Report.ParsedRows++
	}

	if result.Report.TotalRows > 0 && result.Report.ParsedRows == 0 {
		return result, parsererror.ErrNoValidRows
	}

	log.Info("Normalized statement",
		logging.F(logging.FieldCount, result.Report.ParsedRows),
		logging.F("skipped", len(result.Report.Errors)))
	return result, nil
}

func (n *Normalizer) detect(first []string, hint string) (Layout, columns, error) {
	if hint != "" {
		for _, l := range n.layouts {
			if strings.EqualFold(l.Name, hint) {
				cols, _ := l.bind(first, true)
				return l, cols, nil
			}
		}
		return Layout{}, columns{}, &parsererror.FormatDetectionError{Hint: hint, Known: n.Formats()}
	}

	for _, l := range n.layouts {
		if cols, ok := l.bind(first, false); ok {
			return l, cols, nil
		}
	}
	return Layout{}, columns{}, &parsererror.FormatDetectionError{Snippet: snippet(first)}
}

func (n *Normalizer) parseRow(l Layout, c columns, record []string) (models.Candidate, *parsererror.ParseError) {
	fail := func(field, value string, err error) (models.Candidate, *parsererror.ParseError) {
		return models.Candidate{}, &parsererror.ParseError{Parser: l.Name, Field: field, Value: value, Err: err}
	}

	rawDate := cell(record, c.date)
	if rawDate == "" {
		return fail("date", rawDate, errMissing)
	}
	date, _, err := dateutils.ParseDate(rawDate, l.DateFormats...)
	if err != nil {
		return fail("date", rawDate, err)
	}

	description := textutils.CleanDescription(cell(record, c.desc))
	if description == "" {
		return fail("description", "", errMissing)
	}

	signed, field, value, err := amountOf(l, c, record)
	if err != nil {
		return fail(field, value, err)
	}

	candidate := models.Candidate{
		Date:        date,
		Amount:      signed.Abs(),
		Type:        models.TypeIncome,
		Outflow:     signed.IsNegative(),
		Description: description,
		Merchant:    textutils.ExtractMerchant(description),
	}
	if candidate.Outflow {
		candidate.Type = models.TypeExpense
	}
	if textutils.ContainsAny(description, n.transferKeywords) {
		candidate.Type = models.TypeTransfer
	}
	return candidate, nil
}

var (
	errMissing = errors.New("missing value")
	errZero    = errors.New("zero amount")
)

// amountOf returns the signed amount of a record, money out negative.
func amountOf(l Layout, c columns, record []string) (decimal.Decimal, string, string, error) {
	var signed decimal.Decimal

	switch raw := cell(record, c.amount); {
	case raw != "":
		v, err := currencyutils.ParseAmount(raw)
		if err != nil {
			return decimal.Zero, "amount", raw, err
		}
		signed = v
		if l.InvertSign {
			signed = signed.Neg()
		}
	default:
		debit, credit := cell(record, c.debit), cell(record, c.credit)
		if debit == "" && credit == "" {
			return decimal.Zero, "amount", "", errMissing
		}
		if debit != "" {
			v, err := currencyutils.ParseAmount(debit)
			if err != nil {
				return decimal.Zero, "debit", debit, err
			}
			signed = v.Abs().Neg()
		}
		if signed.IsZero() && credit != "" {
			v, err := currencyutils.ParseAmount(credit)
			if err != nil {
				return decimal.Zero, "credit", credit, err
			}
			signed = v.Abs()
		}
	}

	switch strings.ToLower(cell(record, c.kind)) {
	case "debit", "dr", "d", "withdrawal", "expense":
		signed = signed.Abs().Neg()
	case "credit", "cr", "c", "deposit", "income":
		signed = signed.Abs()
	}

	if signed.IsZero() {
		return decimal.Zero, "amount", signed.String(), errZero
	}
	return signed, "", "", nil
}

func rowReason(perr *parsererror.ParseError) string {
	switch {
	case errors.Is(perr.Err, errMissing):
		return fmt.Sprintf("missing %s", perr.Field)
	case errors.Is(perr.Err, errZero):
		return "zero amount"
	case perr.Field == "record":
		return fmt.Sprintf("unreadable record: %v", perr.Err)
	default:
		return fmt.Sprintf("invalid %s %q", perr.Field, perr.Value)
	}
}

type record struct {
	row    int
	fields []string
	err    error
}

// readRecords reads every record with its 1-based physical position.
// Rows the CSV reader cannot split keep their error and are reported per row.
func readRecords(data []byte) ([]record, error) {
	reader := gocsv.LazyCSVReader(bytes.NewReader(data))
	if r, ok := reader.(*csv.Reader); ok {
		r.Comma = sniffDelimiter(data)
		r.FieldsPerRecord = -1
	}

	var records []record
	for row := 1; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("error reading statement: %w", err)
			}
			records = append(records, record{row: row, fields: fields, err: perr.Err})
			continue
		}
		records = append(records, record{row: row, fields: fields})
	}
	return records, nil
}

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// sniffDelimiter picks the candidate delimiter occurring most often, outside
// quotes, on the first line.
func sniffDelimiter(data []byte) rune {
	line := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		line = data[:idx]
	}

	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, r := range string(line) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func snippet(record []string) string {
	s := strings.Join(record, ",")
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}
