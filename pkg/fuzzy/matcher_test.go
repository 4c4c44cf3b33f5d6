package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchValue_ExactBeatsEverything(t *testing.T) {
	assert.Equal(t, "Sunglasses", MatchValue("sunglasses", []string{"Sunglasses"}, DefaultThreshold))
	// "Sun" would match "Sunglasses" by substring, but the exact entry wins.
	assert.Equal(t, "Sun", MatchValue("sun", []string{"Sunglasses", "Sun"}, DefaultThreshold))
}

func TestMatchValue_SubstringEitherDirection(t *testing.T) {
	known := []string{"Running Shoes", "Boots"}

	assert.Equal(t, "Running Shoes", MatchValue("shoes", known, DefaultThreshold))
	assert.Equal(t, "Boots", MatchValue("leather boots", known, DefaultThreshold))
}

func TestMatchValue_SubstringFirstInVocabularyOrder(t *testing.T) {
	known := []string{"Dress Shirts", "Shirts"}
	// both contain "shirt", the first listed wins
	assert.Equal(t, "Dress Shirts", MatchValue("shirt", known, DefaultThreshold))
}

func TestMatchValue_ShortTokensSkipSubstring(t *testing.T) {
	assert.Equal(t, "xl", MatchValue("xl", []string{"XXL Jackets"}, DefaultThreshold))
}

func TestMatchValue_Approximate(t *testing.T) {
	known := []string{"Sweater", "Hoodie"}
	assert.Equal(t, "Sweater", MatchValue("sweatr", known, DefaultThreshold))
	assert.Equal(t, "Hoodie", MatchValue("hoodei", known, 0.6))
}

func TestMatchValue_ApproximateTieKeepsVocabularyOrder(t *testing.T) {
	known := []string{"Bale", "Gale"}
	// "kale" is one edit from both.
	assert.Equal(t, "Bale", MatchValue("kale", known, 0.7))
}

func TestMatchValue_NoMatchReturnsCandidate(t *testing.T) {
	assert.Equal(t, "cozy", MatchValue("cozy", []string{"Sweater", "Jeans"}, DefaultThreshold))
	assert.Equal(t, "anything", MatchValue("anything", nil, DefaultThreshold))
	assert.Equal(t, "", MatchValue("", []string{"Shoes"}, DefaultThreshold))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 1.0, Similarity("abc", "abc"))
	assert.InDelta(t, 0.75, Similarity("kale", "bale"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)
}
