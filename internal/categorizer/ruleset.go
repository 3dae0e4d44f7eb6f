// Package categorizer holds the deterministic rule engine: ordered keyword and
// pattern rules resolved at write time, and learning from manual categorization.
package categorizer

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/textutils"
)

// ErrInvalidPattern is returned for pattern rules that do not compile.
var ErrInvalidPattern = errors.New("invalid rule pattern")

// Match is the rule that resolved a transaction.
type Match struct {
	RuleID     uint
	CategoryID uint
	Keyword    string
	Priority   int
}

type compiledRule struct {
	rule    models.CategorizationRule
	keyword string
	re      *regexp.Regexp
}

// Ruleset is an immutable, ordered snapshot of an owner's active rules.
type Ruleset struct {
	rules []compiledRule
}

// NewRuleset snapshots the active rules ordered by priority, then creation order.
// Patterns that fail to compile are logged and left out.
func NewRuleset(rules []models.CategorizationRule, logger logging.Logger) *Ruleset {
	logger = logging.OrDefault(logger)

	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if !r.Active {
			continue
		}
		keyword := strings.ToLower(strings.TrimSpace(r.Keyword))
		if keyword == "" {
			continue
		}
		cr := compiledRule{rule: r, keyword: textutils.NormalizeDescription(keyword)}
		if r.IsPattern {
			re, err := CompilePattern(keyword)
			if err != nil {
				logger.WithError(err).Warn("Skipping rule with invalid pattern",
					logging.F(logging.FieldRuleID, r.ID),
					logging.F(logging.FieldKeyword, r.Keyword))
				continue
			}
			cr.re = re
		}
		compiled = append(compiled, cr)
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		a, b := compiled[i].rule, compiled[j].rule
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})
	return &Ruleset{rules: compiled}
}

// CompilePattern compiles a pattern rule case-insensitively.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return re, nil
}

// Len is the number of usable rules.
func (rs *Ruleset) Len() int {
	return len(rs.rules)
}

// Resolve returns the first rule matching the transaction's description or merchant.
func (rs *Ruleset) Resolve(description, merchant string) (Match, bool) {
	desc := textutils.NormalizeDescription(description)
	merch := textutils.NormalizeDescription(merchant)

	for _, cr := range rs.rules {
		if cr.matches(desc) || (merch != "" && cr.matches(merch)) {
			return Match{
				RuleID:     cr.rule.ID,
				CategoryID: cr.rule.CategoryID,
				Keyword:    cr.rule.Keyword,
				Priority:   cr.rule.Priority,
			}, true
		}
	}
	return Match{}, false
}

// ResolveTransaction resolves a stored transaction.
func (rs *Ruleset) ResolveTransaction(tx models.Transaction) (Match, bool) {
	return rs.Resolve(tx.Description, tx.Merchant)
}

func (cr compiledRule) matches(text string) bool {
	if cr.re != nil {
		return cr.re.MatchString(text)
	}
	return strings.Contains(text, cr.keyword)
}
