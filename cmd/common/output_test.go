package common

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiorShrago/BudgetBuddy/internal/applier"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/suggester"
)

func init() {
	color.NoColor = true
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint
		wantErr bool
	}{
		{in: "42", want: 42},
		{in: " 7 ", want: 7},
		{in: "0", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCategory(t *testing.T) {
	id, err := ParseCategory("None")
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = ParseCategory("3")
	require.NoError(t, err)
	assert.Equal(t, uint(3), *id)

	_, err = ParseIDs([]string{"1", "x"})
	assert.Error(t, err)
}

func TestPrintBatch(t *testing.T) {
	food := uint(2)
	var buf bytes.Buffer
	PrintBatch(&buf, suggester.Batch{
		Suggestions: []models.Suggestion{{TransactionID: 1, CategoryID: &food, CategoryName: "Food & Dining",
			Provenance: models.ProvenanceRule, Confidence: models.ConfidenceHigh, Rationale: `matched rule "starbucks"`}},
		Failures: []suggester.Failure{{TransactionID: 9, Kind: suggester.KindScopeViolation, Reason: "transaction not found in scope"}},
		Skipped:  []uint{4},
	})

	out := buf.String()
	assert.Contains(t, out, "Food & Dining")
	assert.Contains(t, out, "ScopeViolation")
	assert.Contains(t, out, "skipped 1")
}

func TestPrintApplyResult(t *testing.T) {
	var buf bytes.Buffer
	PrintApplyResult(&buf, applier.Result{Applied: 2, Failed: []applier.ItemFailure{{TransactionID: 5, Kind: applier.KindInvalidCategory, Reason: "category is inactive"}}})
	assert.Contains(t, buf.String(), "2 applied")
	assert.Contains(t, buf.String(), "category is inactive")
}
