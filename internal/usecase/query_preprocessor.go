package usecase

import (
	"regexp"
	"strings"
)

// Search term derivation
const (
	maxSearchTerms   = 3
	minSearchTermLen = 3 // tokens must be longer than two characters
)

// Compiled regex patterns for recall description cleanup
var (
	// Matches size/quantity patterns like "16.9 fl oz", "12 oz", "1.5 liter", "2 lb"
	sizeQuantityPattern = regexp.MustCompile(`(?i)\b\d+\.?\d*\s*(?:fl\.?\s*oz|oz|ounces?|lbs?|pounds?|ml|liters?|l|gallons?|gal|quarts?|qt|pints?|pt|kg|grams?|g)\b\.?`)

	// Matches pack/count patterns like "12 pack", "pack of 6", "6-pack", "24 count", "6 ct"
	packCountPattern = regexp.MustCompile(`(?i)\b\d+[-\s]*(?:pack|pk|count|ct)\b|\bpack\s*of\s*\d+\b|\b\d+\s*(?:cans?|bottles?|pouches?|bars?|pieces?)\b`)

	// Matches "UPC" followed by 12-14 digits, allowing spaces or dashes between digit groups
	upcPattern = regexp.MustCompile(`(?i)\bupcs?\b\s*(?:code|no\.?|number|#)?\s*[:#]?\s*((?:\d[\s-]?){11,13}?\d)\b`)

	// Orphaned separators left behind once sizes are removed
	orphanedPunctuationPattern = regexp.MustCompile(`\s+[,;:\-]+(\s+|$)|^[,;:\-\s]+`)

	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// SearchTerms derives the store keywords for a product name: the first three
// normalized tokens longer than two characters. Returns nil when none qualify.
func SearchTerms(name string) []string {
	var terms []string
	for _, token := range strings.Fields(NormalizeProductName(name)) {
		if len(token) < minSearchTermLen {
			continue
		}
		terms = append(terms, token)
		if len(terms) == maxSearchTerms {
			break
		}
	}
	return terms
}

// CleanProductDescription strips size and packaging noise from a free-text
// product description (e.g. a recall notice) to produce a product name.
// Only the text before the first comma is kept.
func CleanProductDescription(description string) string {
	if idx := strings.Index(description, ","); idx > 0 {
		description = description[:idx]
	}

	cleaned := upcPattern.ReplaceAllString(description, " ")
	cleaned = sizeQuantityPattern.ReplaceAllString(cleaned, " ")
	cleaned = packCountPattern.ReplaceAllString(cleaned, " ")
	cleaned = orphanedPunctuationPattern.ReplaceAllString(cleaned, " ")

	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// ExtractUPC returns the digits of the first UPC mentioned in any of the texts,
// or an empty string when none is found.
func ExtractUPC(texts ...string) string {
	for _, text := range texts {
		for _, match := range upcPattern.FindAllStringSubmatch(text, -1) {
			digits := strings.Map(func(r rune) rune {
				if r >= '0' && r <= '9' {
					return r
				}
				return -1
			}, match[1])
			if len(digits) >= 12 && len(digits) <= 14 {
				return digits
			}
		}
	}
	return ""
}
