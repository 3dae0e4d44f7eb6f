// Package dateutils provides common date and time operations used throughout the application.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Common date format constants used throughout the application
const (
	DateLayoutISO      = "2006-01-02"
	DateLayoutUS       = "01/02/2006"
	DateLayoutDayFirst = "02/01/2006"
	DateLayoutFull     = "2006-01-02 15:04:05"
	DateLayoutAmex     = "2 Jan. 2006"
	DateLayoutEQ       = "2-Jan-06"
)

// AcceptedFormats is the ordered list tried after a layout's own formats.
// Month-first wins over day-first when both would parse.
var AcceptedFormats = []string{
	DateLayoutUS,
	"01-02-2006",
	DateLayoutISO,
	"01/02/06",
	"01-02-06",
	DateLayoutDayFirst,
	"02-01-2006",
	DateLayoutFull,
	"2006/01/02",
	DateLayoutAmex,
	"2 Jan 2006",
	"2 January 2006",
	DateLayoutEQ,
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

var whitespace = regexp.MustCompile(`\s+`)

// ParseDate parses dateStr trying the preferred layouts first, then AcceptedFormats.
// The result is midnight UTC of the calendar day; the matching layout is returned too.
func ParseDate(dateStr string, preferred ...string) (time.Time, string, error) {
	dateStr = CleanDateString(dateStr)
	if dateStr == "" {
		return time.Time{}, "", fmt.Errorf("empty date")
	}

	for _, formats := range [][]string{preferred, AcceptedFormats} {
		for _, format := range formats {
			if t, err := time.Parse(format, dateStr); err == nil {
				return StartOfDay(t), format, nil
			}
		}
	}

	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// Matches reports whether dateStr parses with one of the given layouts.
func Matches(dateStr string, layouts ...string) bool {
	dateStr = CleanDateString(dateStr)
	for _, layout := range layouts {
		if _, err := time.Parse(layout, dateStr); err == nil {
			return true
		}
	}
	return false
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// StartOfDay truncates t to midnight UTC of its calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CleanDateString removes unwanted characters and normalizes a date string
func CleanDateString(dateStr string) string {
	dateStr = strings.TrimSpace(dateStr)
	dateStr = strings.Trim(dateStr, `"'`)
	return whitespace.ReplaceAllString(dateStr, " ")
}
