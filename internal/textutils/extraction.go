// Package textutils provides text extraction and manipulation utilities for
// bank statement descriptions.
package textutils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxMerchantLength caps extracted merchant names, in runes.
const MaxMerchantLength = 200

var (
	processorPrefix = regexp.MustCompile(`(?i)^(POS MERCHANDISE|POS PURCHASE|INTERNET BILL PAYMENT|PAYROLL DEPOSIT|EFT CREDIT|EFT DEBIT|INTERAC E-TRANSFER|ABM WITHDRAWAL|DEBIT CARD PURCHASE|VISA DEBIT PURCHASE|SQ \*|TST\*|PP\*|PAYPAL \*)\s*`)
	whitespace      = regexp.MustCompile(`\s+`)
	referenceNoise  = regexp.MustCompile(`\*+\d+\*+|#\d+|\d{4}-\d{4}`)
	numericTail     = regexp.MustCompile(`(\s+[\d\-/.*#]+)+$`)

	merchantSeparators = []string{" - ", " / ", " #", " *", "  ", ","}

	stopWords = map[string]struct{}{
		"the": {}, "and": {}, "for": {}, "pos": {}, "purchase": {}, "payment": {},
		"debit": {}, "credit": {}, "card": {}, "visa": {}, "www": {}, "com": {},
	}
)

// CleanDescription trims a description and collapses internal whitespace.
func CleanDescription(description string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(description), " ")
}

// NormalizeDescription is the comparison form of a description: cleaned and lower-cased.
func NormalizeDescription(description string) string {
	return strings.ToLower(CleanDescription(description))
}

// ExtractMerchant makes a best-effort guess at the merchant in a raw description.
// Processor prefixes are removed, the text is cut at the first known separator and
// trailing store or terminal numbers are dropped. Returns "" when nothing is left.
func ExtractMerchant(description string) string {
	merchant := strings.TrimSpace(description)
	if merchant == "" {
		return ""
	}

	merchant = strings.TrimSpace(processorPrefix.ReplaceAllString(merchant, ""))

	for _, sep := range merchantSeparators {
		if idx := strings.Index(merchant, sep); idx >= 0 {
			merchant = merchant[:idx]
			break
		}
	}

	merchant = numericTail.ReplaceAllString(strings.TrimSpace(merchant), "")
	merchant = CleanDescription(merchant)

	if utf8.RuneCountInString(merchant) > MaxMerchantLength {
		merchant = strings.TrimSpace(string([]rune(merchant)[:MaxMerchantLength]))
	}
	return merchant
}

// SignificantToken returns the keyword a learned rule should match on.
// The merchant wins when present; otherwise the first two meaningful words of the
// description are used. Tokens shorter than three characters are ignored.
func SignificantToken(merchant, description string) string {
	if m := NormalizeDescription(merchant); utf8.RuneCountInString(m) >= 3 {
		return m
	}

	cleaned := referenceNoise.ReplaceAllString(NormalizeDescription(description), " ")
	cleaned = strings.TrimSpace(processorPrefix.ReplaceAllString(cleaned, ""))

	var words []string
	for _, word := range strings.Fields(cleaned) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if utf8.RuneCountInString(word) < 3 || !hasLetter(word) {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		words = append(words, word)
		if len(words) == 2 {
			break
		}
	}
	return strings.Join(words, " ")
}

// ContainsAny reports whether the normalized text contains one of the keywords.
func ContainsAny(text string, keywords []string) bool {
	normalized := NormalizeDescription(text)
	for _, keyword := range keywords {
		keyword = NormalizeDescription(keyword)
		if keyword != "" && strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
