// Package fuzzy aligns free-form values with a known vocabulary.
package fuzzy

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	// DefaultThreshold is the minimum similarity accepted by the approximate pass.
	DefaultThreshold = 0.8

	// MinSubstringLength gates substring matching so short tokens like "xl" don't attach to everything.
	MinSubstringLength = 3
)

// MatchValue returns the canonical form of candidate from known.
// Precedence: case-insensitive exact, substring in either direction, then
// edit-distance similarity >= threshold. Falls back to candidate unchanged.
func MatchValue(candidate string, known []string, threshold float64) string {
	needle := strings.ToLower(strings.TrimSpace(candidate))
	if needle == "" || len(known) == 0 {
		return candidate
	}

	lowered := make([]string, len(known))
	for i, k := range known {
		lowered[i] = strings.ToLower(strings.TrimSpace(k))
		if lowered[i] == needle {
			return k
		}
	}

	if utf8.RuneCountInString(needle) >= MinSubstringLength {
		for i, k := range lowered {
			if k == "" {
				continue
			}
			if strings.Contains(k, needle) || strings.Contains(needle, k) {
				return known[i]
			}
		}
	}

	best := -1
	bestScore := 0.0
	for i, k := range lowered {
		score := Similarity(needle, k)
		if score >= threshold && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		return known[best]
	}

	return candidate
}

// Similarity is 1 - levenshtein(a, b) / max(len(a), len(b)), measured in runes.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
