package research

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/LiorShrago/BudgetBuddy/internal/models"
)

// Matcher maps free-text category labels onto an owner's active categories.
type Matcher struct {
	categories []models.Category
	threshold  float64
}

// NewMatcher keeps the active categories. threshold is the minimum Levenshtein
// similarity, in [0,1], for a fuzzy match.
func NewMatcher(categories []models.Category, threshold float64) *Matcher {
	active := make([]models.Category, 0, len(categories))
	for _, c := range categories {
		if c.Active {
			active = append(active, c)
		}
	}
	// longest names first so containment prefers "Food & Dining" over "Food"
	sort.SliceStable(active, func(i, j int) bool {
		return utf8.RuneCountInString(active[i].Name) > utf8.RuneCountInString(active[j].Name)
	})
	return &Matcher{categories: active, threshold: threshold}
}

// Names returns the category names offered to the AI service, sorted.
func (m *Matcher) Names() []string {
	names := make([]string, len(m.categories))
	for i, c := range m.categories {
		names[i] = c.Name
	}
	sort.Strings(names)
	return names
}

// Match resolves label to a category with a confidence grade.
func (m *Matcher) Match(label string) (models.Category, models.Confidence, bool) {
	key := models.CategoryKey(label)
	if key == "" {
		return models.Category{}, "", false
	}
	for _, c := range m.categories {
		if models.CategoryKey(c.Name) == key {
			return c, models.ConfidenceHigh, true
		}
	}

	norm := normalizeLabel(label)
	if norm == "" {
		return models.Category{}, "", false
	}
	for _, c := range m.categories {
		if normalizeLabel(c.Name) == norm {
			return c, models.ConfidenceMedium, true
		}
	}
	for _, c := range m.categories {
		name := normalizeLabel(c.Name)
		if len(name) >= 3 && len(norm) >= 3 && (containsWords(norm, name) || containsWords(name, norm)) {
			return c, models.ConfidenceMedium, true
		}
	}

	var best models.Category
	bestScore := 0.0
	for _, c := range m.categories {
		if score := similarity(norm, normalizeLabel(c.Name)); score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore > 0 && bestScore >= m.threshold {
		return best, models.ConfidenceMedium, true
	}
	return models.Category{}, "", false
}

// verbatim finds a category name appearing as whole words in free text.
func (m *Matcher) verbatim(text string) (models.Category, bool) {
	norm := normalizeLabel(text)
	for _, c := range m.categories {
		if name := normalizeLabel(c.Name); name != "" && containsWords(norm, name) {
			return c, true
		}
	}
	return models.Category{}, false
}

// normalizeLabel lower-cases, spells out "&" and reduces punctuation to spaces.
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "&", " and "))
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func containsWords(text, phrase string) bool {
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// similarity is 1 - levenshtein/maxLen over runes.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
