package textutils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMerchant(t *testing.T) {
	tests := []struct {
		name        string
		description string
		expected    string
	}{
		{"store number after hash", "STARBUCKS #1234", "STARBUCKS"},
		{"square prefix", "SQ *BLUE BOTTLE COFFEE", "BLUE BOTTLE COFFEE"},
		{"toast prefix", "TST* JOE'S PIZZA", "JOE'S PIZZA"},
		{"processor prefix", "POS MERCHANDISE METRO 123 TORONTO ON", "METRO 123 TORONTO ON"},
		{"interac", "INTERAC E-TRANSFER Jane Doe", "Jane Doe"},
		{"dash separator", "AMAZON.CA - Marketplace", "AMAZON.CA"},
		{"comma separator", "NETFLIX.COM, LOS GATOS", "NETFLIX.COM"},
		{"double space", "SHELL C01234  TORONTO", "SHELL C01234"},
		{"numeric tail", "UBER TRIP 1234-5678", "UBER TRIP"},
		{"blank", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractMerchant(tt.description))
		})
	}
}

func TestExtractMerchant_LengthCap(t *testing.T) {
	long := strings.Repeat("A", 250)
	assert.Len(t, []rune(ExtractMerchant(long)), MaxMerchantLength)
}

func TestCleanAndNormalizeDescription(t *testing.T) {
	assert.Equal(t, "STARBUCKS #1234 TORONTO", CleanDescription("  STARBUCKS   #1234\tTORONTO "))
	assert.Equal(t, "starbucks #1234 toronto", NormalizeDescription("  STARBUCKS   #1234\tTORONTO "))
}

func TestSignificantToken(t *testing.T) {
	tests := []struct {
		name        string
		merchant    string
		description string
		expected    string
	}{
		{"merchant wins", "STARBUCKS", "STARBUCKS #1234", "starbucks"},
		{"short merchant falls back", "AB", "AB GROCERY STORE 0042", "grocery store"},
		{"references and stop words dropped", "", "POS PURCHASE *1234* THE CORNER BAKERY", "corner bakery"},
		{"nothing significant", "", "#12 ab 99", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SignificantToken(tt.merchant, tt.description))
		})
	}
}

func TestContainsAny(t *testing.T) {
	keywords := []string{"e-transfer", "internet transfer"}
	assert.True(t, ContainsAny("INTERAC E-TRANSFER Jane", keywords))
	assert.True(t, ContainsAny("Internet   Transfer 000123", keywords))
	assert.False(t, ContainsAny("STARBUCKS", keywords))
	assert.False(t, ContainsAny("anything", []string{"  "}))
}
