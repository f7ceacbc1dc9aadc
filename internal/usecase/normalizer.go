package usecase

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Package-level compiled regex patterns for performance
var (
	wordJoinerRegex      = regexp.MustCompile(`[-_/]`)
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)

	// Whole-word matches only; applied after punctuation is stripped
	productStopWordRegex = regexp.MustCompile(`\b(?:the|a|an|and|or|of|for|with)\b`)
	brandSuffixRegex     = regexp.MustCompile(`\b(?:inc|llc|ltd|co|corp|corporation|company)\b`)
)

// NormalizeProductName canonicalizes a product name for comparison.
// "The Original Coca-Cola, 12oz" becomes "original coca cola 12oz".
func NormalizeProductName(name string) string {
	return normalizeName(name, productStopWordRegex)
}

// NormalizeBrandName canonicalizes a brand name, dropping legal-entity suffixes.
// "Acme Foods, Inc." becomes "acme foods".
func NormalizeBrandName(brand string) string {
	return normalizeName(brand, brandSuffixRegex)
}

func normalizeName(s string, noise *regexp.Regexp) string {
	if s == "" {
		return ""
	}

	// NFKC maps compatibility forms (fullwidth letters, ligatures, NBSP) to plain ones
	result := strings.ToLower(norm.NFKC.String(s))
	result = wordJoinerRegex.ReplaceAllString(result, " ")
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = noise.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}
