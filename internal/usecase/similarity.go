package usecase

import "strings"

// LevenshteinDistance calculates the edit distance between two strings over Unicode code points
func LevenshteinDistance(s1, s2 string) int {
	return levenshteinRunes([]rune(s1), []rune(s2))
}

// StringSimilarity returns 1 - distance/maxLength for the case-folded, trimmed inputs.
// Identical inputs score 1; a single empty input scores 0.
func StringSimilarity(a, b string) float64 {
	a = strings.TrimSpace(strings.ToLower(a))
	b = strings.TrimSpace(strings.ToLower(b))

	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	// Distance and length must come from the same folded runes
	r1 := []rune(a)
	r2 := []rune(b)
	distance := levenshteinRunes(r1, r2)

	return 1 - float64(distance)/float64(max(len(r1), len(r2)))
}

func levenshteinRunes(r1, r2 []rune) int {
	m := len(r1)
	n := len(r2)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	// Use two rows instead of full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
