// Package genes validates gene symbols used as cohort filter values.
package genes

import (
	"regexp"
	"strings"

	"github.com/tso500-cohort-explorer/internal/domain"
)

var (
	// HGNC symbol: uppercase start, uppercase/digits/hyphens, no trailing hyphen
	standardSymbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9-]*[A-Z0-9]$`)

	singleLetterPattern = regexp.MustCompile(`^[A-Z]$`)

	// Open reading frame symbols keep a lowercase "orf", e.g. C11orf30
	orfSymbolPattern = regexp.MustCompile(`^C\d+orf\d+$`)
)

// MaxSymbolLength follows the HGNC recommendation.
const MaxSymbolLength = 15

// ValidateSymbol checks that symbol is shaped like an HGNC gene symbol.
func ValidateSymbol(symbol string) error {
	original := symbol
	symbol = strings.TrimSpace(symbol)

	if symbol == "" {
		return domain.NewValidationError("gene", "gene symbol must not be empty", original)
	}
	if len(symbol) > MaxSymbolLength {
		return domain.NewValidationError("gene", "gene symbol should not exceed 15 characters", original)
	}
	if orfSymbolPattern.MatchString(symbol) {
		return nil
	}
	if symbol != strings.ToUpper(symbol) {
		return domain.NewValidationError("gene", "gene symbol must be uppercase", original)
	}
	if !singleLetterPattern.MatchString(symbol) && !standardSymbolPattern.MatchString(symbol) {
		return domain.NewValidationError("gene",
			"gene symbol must contain only uppercase letters, digits and hyphens", original)
	}
	if strings.Contains(symbol, "--") {
		return domain.NewValidationError("gene", "gene symbol cannot contain consecutive hyphens", original)
	}
	return nil
}

// Normalize trims surrounding whitespace and uppercases symbols that are not ORF names.
func Normalize(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if orfSymbolPattern.MatchString(symbol) {
		return symbol
	}
	return strings.ToUpper(symbol)
}
