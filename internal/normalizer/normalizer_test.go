package normalizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/parsererror"
)

func newTestNormalizer() *Normalizer {
	return New([]string{"e-transfer", "internet transfer"}, logging.NewMockLogger())
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type expectedRow struct {
	date     time.Time
	amount   string
	typ      models.TransactionType
	merchant string
}

func TestNormalize_Layouts(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format string
		rows   []expectedRow
	}{
		{
			name:   "signed three column",
			input:  "2024-01-05,STARBUCKS #1234,-5.75\n",
			format: "signed",
			rows:   []expectedRow{{day(2024, 1, 5), "5.75", models.TypeExpense, "STARBUCKS"}},
		},
		{
			name:   "amex charges are positive",
			input:  "5 Jan. 2024,AMAZON.CA,,45.10\n7 Jan. 2024,PAYMENT RECEIVED - THANK YOU,,-200.00\n",
			format: "amex",
			rows: []expectedRow{
				{day(2024, 1, 5), "45.10", models.TypeExpense, "AMAZON.CA"},
				{day(2024, 1, 7), "200", models.TypeIncome, "PAYMENT RECEIVED"},
			},
		},
		{
			name:   "eq bank parentheses",
			input:  "05-Jan-24,Interest received,$1.25,$1001.25\n06-Jan-24,Bill payment,($12.00),$989.25\n",
			format: "eq_bank",
			rows: []expectedRow{
				{day(2024, 1, 5), "1.25", models.TypeIncome, "Interest received"},
				{day(2024, 1, 6), "12", models.TypeExpense, "Bill payment"},
			},
		},
		{
			name:   "cibc debit and credit columns",
			input:  "2024-01-05,TIM HORTONS #123,4.50,,4500****1234\n2024-01-06,PAYMENT THANK YOU,,100.00,4500****1234\n",
			format: "cibc",
			rows: []expectedRow{
				{day(2024, 1, 5), "4.50", models.TypeExpense, "TIM HORTONS"},
				{day(2024, 1, 6), "100", models.TypeIncome, "PAYMENT THANK YOU"},
			},
		},
		{
			name:   "simplii header",
			input:  "Date, Transaction Details, Funds Out, Funds In\n01/05/2024,POS MERCHANDISE LOBLAWS #42,52.30,\n",
			format: "simplii",
			rows:   []expectedRow{{day(2024, 1, 5), "52.30", models.TypeExpense, "LOBLAWS"}},
		},
		{
			name:   "td header",
			input:  "date,description,debit,credit,balance\n2024-01-05,PAYROLL DEPOSIT ACME,,2500.00,3000.00\n",
			format: "td",
			rows:   []expectedRow{{day(2024, 1, 5), "2500", models.TypeIncome, "ACME"}},
		},
		{
			name:   "generic semicolon with type column",
			input:  "Posted Date;Payee;Amount;Type\n2024-02-01;NETFLIX.COM;15.99;DR\n",
			format: "generic",
			rows:   []expectedRow{{day(2024, 2, 1), "15.99", models.TypeExpense, "NETFLIX.COM"}},
		},
		{
			name:   "byte order mark stripped",
			input:  "\xef\xbb\xbfDate,Description,Amount\n2024-03-01,UBER TRIP,-12.00\n",
			format: "generic",
			rows:   []expectedRow{{day(2024, 3, 1), "12", models.TypeExpense, "UBER TRIP"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestNormalizer().Normalize(context.Background(), []byte(tt.input), 7, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.format, result.Format)
			require.Len(t, result.Candidates, len(tt.rows))
			assert.Empty(t, result.Report.Errors)

			for i, want := range tt.rows {
				got := result.Candidates[i]
				assert.True(t, want.date.Equal(got.Date), "row %d date %v", i, got.Date)
				assert.True(t, decimal.RequireFromString(want.amount).Equal(got.Amount), "row %d amount %s", i, got.Amount)
				assert.Equal(t, want.typ, got.Type, "row %d type", i)
				assert.Equal(t, want.merchant, got.Merchant, "row %d merchant", i)
				assert.Equal(t, uint(7), got.AccountID)
			}
		})
	}
}

func TestNormalize_StarbucksExample(t *testing.T) {
	result, err := newTestNormalizer().Normalize(context.Background(),
		[]byte("2024-01-05,STARBUCKS #1234,-5.75"), 1, Options{})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)

	c := result.Candidates[0]
	assert.Equal(t, 1, c.Row)
	assert.Equal(t, "STARBUCKS #1234", c.Description)
	assert.Equal(t, "STARBUCKS", c.Merchant)
	assert.Equal(t, models.TypeExpense, c.Type)
	assert.True(t, c.Outflow)
	assert.Equal(t, "-5.75", c.SignedAmount().StringFixed(2))
}

func TestNormalize_TransferKeyword(t *testing.T) {
	result, err := newTestNormalizer().Normalize(context.Background(),
		[]byte("2024-01-05,INTERAC E-TRANSFER TO JANE,-100.00\n"), 1, Options{})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, models.TypeTransfer, result.Candidates[0].Type)
	assert.True(t, result.Candidates[0].Outflow)
}

func TestNormalize_MalformedRowsSkipped(t *testing.T) {
	input := "Date,Description,Amount\n" +
		"2024-01-05,COFFEE,-4.00\n" +
		"not-a-date,X,1.00\n" +
		"2024-01-05,,1.00\n" +
		"2024-01-05,Y,abc\n" +
		"2024-01-05,Z,0.00\n" +
		"2024-01-06,TEA\n"

	result, err := newTestNormalizer().Normalize(context.Background(), []byte(input), 1, Options{})
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 1)
	assert.Equal(t, 6, result.Report.TotalRows)
	assert.Equal(t, 1, result.Report.ParsedRows)
	assert.Equal(t, []models.RowError{
		{Row: 3, Reason: `invalid date "not-a-date"`},
		{Row: 4, Reason: "missing description"},
		{Row: 5, Reason: `invalid amount "abc"`},
		{Row: 6, Reason: "zero amount"},
		{Row: 7, Reason: "missing amount"},
	}, result.Report.Errors)
}

func TestNormalize_Strict(t *testing.T) {
	input := "Date,Description,Amount\n2024-01-05,COFFEE,-4.00\nbad,X,1.00\n"

	_, err := newTestNormalizer().Normalize(context.Background(), []byte(input), 1, Options{Strict: true})
	var rowErr *parsererror.RowParseError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 3, rowErr.Row)

	var parseErr *parsererror.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "date", parseErr.Field)
}

func TestNormalize_AllRowsInvalid(t *testing.T) {
	input := "Date,Description,Amount\nbad,X,1.00\n2024-01-05,Y,nope\n"

	result, err := newTestNormalizer().Normalize(context.Background(), []byte(input), 1, Options{})
	assert.ErrorIs(t, err, parsererror.ErrNoValidRows)
	assert.Len(t, result.Report.Errors, 2)
}

func TestNormalize_HeaderOnly(t *testing.T) {
	result, err := newTestNormalizer().Normalize(context.Background(), []byte("Date,Description,Amount\n"), 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, "generic", result.Format)
	assert.Empty(t, result.Candidates)
	assert.Zero(t, result.Report.TotalRows)
}

func TestNormalize_RevolutSkipsUnsettledRows(t *testing.T) {
	input := "Type,Product,Started Date,Completed Date,Description,Amount,Fee,Currency,State,Balance\n" +
		"CARD_PAYMENT,Current,2024-01-04 10:12:00,2024-01-05 09:00:01,Amazon,-45.10,0.00,EUR,COMPLETED,54.90\n" +
		"CARD_PAYMENT,Current,2024-01-06 18:00:00,,Cinema,-12.00,0.00,EUR,PENDING,\n" +
		"TOPUP,Current,2024-01-07 08:00:00,2024-01-07 08:00:05,Top-Up by *1234,100.00,0.00,EUR,COMPLETED,154.90\n"

	result, err := newTestNormalizer().Normalize(context.Background(), []byte(input), 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, "revolut", result.Format)
	assert.Equal(t, 2, result.Report.TotalRows)
	assert.Empty(t, result.Report.Errors)
	require.Len(t, result.Candidates, 2)

	assert.True(t, day(2024, 1, 5).Equal(result.Candidates[0].Date))
	assert.Equal(t, models.TypeExpense, result.Candidates[0].Type)
	assert.True(t, decimal.RequireFromString("45.10").Equal(result.Candidates[0].Amount))
	assert.Equal(t, models.TypeIncome, result.Candidates[1].Type)
}

func TestNormalize_FormatDetection(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name  string
		input string
		opts  Options
	}{
		{name: "unknown layout", input: "foo,bar\nbaz,qux\n"},
		{name: "empty file", input: ""},
		{name: "unknown hint", input: "2024-01-05,COFFEE,-4.00\n", opts: Options{FormatHint: "ofx"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(context.Background(), []byte(tt.input), 1, tt.opts)
			var detErr *parsererror.FormatDetectionError
			require.ErrorAs(t, err, &detErr)
		})
	}
}

func TestNormalize_HintBypassesDetection(t *testing.T) {
	result, err := newTestNormalizer().Normalize(context.Background(),
		[]byte("2024-01-05,COFFEE,4.00\n"), 1, Options{FormatHint: "TD"})
	require.NoError(t, err)
	assert.Equal(t, "td", result.Format)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, models.TypeExpense, result.Candidates[0].Type)
}

func TestNormalize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestNormalizer().Normalize(ctx, []byte("2024-01-05,COFFEE,-4.00\n"), 1, Options{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', sniffDelimiter([]byte("a;b;c\n1,2;3")))
	assert.Equal(t, '\t', sniffDelimiter([]byte("a\tb\tc")))
	assert.Equal(t, '|', sniffDelimiter([]byte("a|b|c")))
	assert.Equal(t, ',', sniffDelimiter([]byte(`"a;b",c,d`)))
	assert.Equal(t, ',', sniffDelimiter([]byte("single")))
}
