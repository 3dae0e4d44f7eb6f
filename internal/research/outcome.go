package research

import (
	"encoding/json"
	"strings"

	"github.com/LiorShrago/BudgetBuddy/internal/models"
)

// Status tags an Outcome.
type Status int

const (
	StatusMatched Status = iota + 1
	StatusUnmatched
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusMatched:
		return "matched"
	case StatusUnmatched:
		return "unmatched"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Outcome is what a research answer amounts to: a matched category, a label
// that fits none of the owner's categories, or a failure kind.
type Outcome struct {
	Status       Status
	CategoryID   uint
	CategoryName string
	// Label is the category text as the service wrote it.
	Label        string
	Confidence   models.Confidence
	Rationale    string
	Kind         Kind
}

// Matched builds an outcome for a label resolved to category c.
func Matched(c models.Category, label string, confidence models.Confidence) Outcome {
	return Outcome{Status: StatusMatched, CategoryID: c.ID, CategoryName: c.Name, Label: label, Confidence: confidence}
}

// Unmatched builds an outcome for a label with no matching category.
func Unmatched(label string) Outcome {
	return Outcome{Status: StatusUnmatched, Label: label, Confidence: models.ConfidenceLow}
}

// Failed builds an error outcome.
func Failed(kind Kind) Outcome {
	return Outcome{Status: StatusError, Kind: kind}
}

var noAnswer = map[string]struct{}{
	"": {}, "none": {}, "null": {}, "unknown": {}, "n/a": {}, "uncategorized": {},
}

// Interpret reduces a raw answer to an Outcome.
//
// The label is taken from a JSON object's "category" field, a "Category:" line
// or a short bare answer, in that order. When no label can be found, a category
// name quoted verbatim in the text is accepted at low confidence; anything else
// is a MalformedResponse.
func (m *Matcher) Interpret(text string) Outcome {
	label, rationale, ok := extractLabel(text)
	if !ok {
		if c, found := m.verbatim(text); found {
			out := Matched(c, c.Name, models.ConfidenceLow)
			out.Rationale = strings.TrimSpace(text)
			return out
		}
		return Failed(KindMalformedResponse)
	}

	var out Outcome
	if _, none := noAnswer[strings.ToLower(label)]; none {
		out = Unmatched(label)
	} else if c, confidence, found := m.Match(label); found {
		out = Matched(c, label, confidence)
	} else {
		out = Unmatched(label)
	}
	out.Rationale = rationale
	return out
}

func extractLabel(text string) (label, rationale string, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", false
	}
	if label, rationale, ok := fromJSON(text); ok {
		return label, rationale, true
	}
	if label, rationale, ok := fromLines(text); ok {
		return label, rationale, true
	}

	if strings.ContainsAny(text, "\n{}") || len([]rune(text)) > 60 {
		return "", "", false
	}
	return cleanLabel(text), "", true
}

func fromJSON(text string) (string, string, bool) {
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", "", false
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &fields); err != nil {
		return "", "", false
	}

	var label, rationale string
	found := false
	for k, v := range fields {
		switch strings.ToLower(k) {
		case "category", "category_name":
			found = true
			if s, isString := v.(string); isString {
				label = cleanLabel(s)
			}
		case "reason", "rationale", "explanation", "description":
			if s, isString := v.(string); isString {
				rationale = strings.TrimSpace(s)
			}
		}
	}
	return label, rationale, found
}

func fromLines(text string) (string, string, bool) {
	var label, rationale string
	found := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, "*", ""))
		key, value, hasColon := strings.Cut(line, ":")
		if !hasColon {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "category":
			if !found {
				label, found = cleanLabel(value), true
			}
		case "reason", "description", "explanation":
			rationale = strings.TrimSpace(value)
		}
	}
	return label, rationale, found
}

func cleanLabel(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'`.[] ")
}
