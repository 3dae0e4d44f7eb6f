// Package currencyutils provides common currency and decimal operations used throughout the application.
package currencyutils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEmptyAmount is returned for blank amount cells.
var ErrEmptyAmount = errors.New("empty amount")

var (
	currencySymbols = regexp.MustCompile(`(?i)[€$£¥₣₹₽₩฿₪]|\b(CAD|USD|EUR|GBP|CHF)\b|\s`)
	creditSuffix    = regexp.MustCompile(`(?i)(CR|DR)$`)
)

// ParseAmount parses a statement amount into a signed decimal.
// It accepts "1,234.56", "1.234,56", "$12.00", "(12.00)", "12.00-", "12.00 CR" and "12.00 DR".
// Parentheses, a trailing minus and DR make the value negative; CR keeps it positive.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	s := strings.TrimSpace(amountStr)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	negative := false
	if m := creditSuffix.FindString(s); m != "" {
		negative = strings.EqualFold(m, "DR")
		s = strings.TrimSpace(s[:len(s)-len(m)])
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = !negative
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	}

	standardized := standardize(s)
	if standardized == "" || standardized == "-" {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': no digits", amountStr)
	}

	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// standardize strips currency markers and grouping so decimal.NewFromString
// accepts the value: "CAD 1'234.56", "€1.234,56" and "1 234,56" all become 1234.56.
func standardize(s string) string {
	s = currencySymbols.ReplaceAllString(s, "")
	s = strings.TrimPrefix(s, "+")
	s = strings.ReplaceAll(s, "'", "")

	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma < 0:
		return s
	case dot > comma:
		return strings.ReplaceAll(s, ",", "")
	case dot >= 0:
		return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
	case strings.Count(s, ",") == 1 && len(s)-comma-1 <= 2:
		return strings.Replace(s, ",", ".", 1)
	default:
		return strings.ReplaceAll(s, ",", "")
	}
}

// FormatAmount formats an amount with two decimals, as stored and exported.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
