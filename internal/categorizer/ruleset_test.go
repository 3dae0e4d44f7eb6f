package categorizer

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
)

func rule(id uint, keyword string, category uint, priority int) models.CategorizationRule {
	return models.CategorizationRule{ID: id, Keyword: keyword, CategoryID: category, Priority: priority, Active: true}
}

func TestResolve_PriorityOrder(t *testing.T) {
	rs := NewRuleset([]models.CategorizationRule{
		rule(1, "starbucks", 20, 5),
		rule(2, "starbucks", 10, 1),
	}, logging.NewMockLogger())

	m, ok := rs.Resolve("STARBUCKS #1234", "STARBUCKS")
	require.True(t, ok)
	assert.Equal(t, uint(10), m.CategoryID, "priority 1 beats priority 5")
	assert.Equal(t, uint(2), m.RuleID)
}

func TestResolve_TieBrokenByCreationOrder(t *testing.T) {
	rs := NewRuleset([]models.CategorizationRule{
		rule(7, "coffee", 2, 3),
		rule(3, "coffee", 1, 3),
	}, nil)

	m, ok := rs.Resolve("COFFEE SHOP", "")
	require.True(t, ok)
	assert.Equal(t, uint(1), m.CategoryID)
}

func TestResolve_MatchingModes(t *testing.T) {
	pattern := rule(1, `uber|lyft`, 3, 1)
	pattern.IsPattern = true
	inactive := rule(2, "netflix", 4, 1)
	inactive.Active = false
	broken := rule(3, "([", 5, 0)
	broken.IsPattern = true

	mock := logging.NewMockLogger()
	rs := NewRuleset([]models.CategorizationRule{pattern, inactive, broken, rule(4, "tim hortons", 6, 2)}, mock)
	assert.Equal(t, 2, rs.Len())
	assert.True(t, mock.HasEntry("WARN", "Skipping rule with invalid pattern"))

	tests := []struct {
		name        string
		description string
		merchant    string
		want        uint
		found       bool
	}{
		{"regex on description", "UBER *TRIP HELP.UBER.COM", "", 3, true},
		{"regex case-insensitive", "Lyft Ride", "", 3, true},
		{"substring on merchant", "POS 00042", "TIM HORTONS", 6, true},
		{"whitespace normalized", "TIM   HORTONS #88", "", 6, true},
		{"inactive ignored", "NETFLIX.COM", "", 0, false},
		{"no match", "UNKNOWN VENDOR", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := rs.Resolve(tt.description, tt.merchant)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, m.CategoryID)
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	f := gofakeit.New(7)
	var rules []models.CategorizationRule
	for i := 1; i <= 50; i++ {
		rules = append(rules, rule(uint(i), f.Word(), uint(f.IntRange(1, 5)), f.IntRange(1, 10)))
	}
	rs := NewRuleset(rules, nil)

	for i := 0; i < 100; i++ {
		desc := f.Sentence(4)
		first, ok1 := rs.Resolve(desc, "")
		for j := 0; j < 3; j++ {
			again, ok2 := rs.Resolve(desc, "")
			assert.Equal(t, ok1, ok2)
			assert.Equal(t, first, again)
		}
	}
}

func TestCompilePattern(t *testing.T) {
	_, err := CompilePattern("a(")
	assert.ErrorIs(t, err, ErrInvalidPattern)

	re, err := CompilePattern("grocery|market")
	require.NoError(t, err)
	assert.True(t, re.MatchString("FRESH MARKET"))
}
