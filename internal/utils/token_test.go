package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		token, err := NewBookingToken()
		require.NoError(t, err)
		assert.Len(t, token, TokenLength)
		for _, r := range token {
			assert.True(t, strings.ContainsRune(tokenAlphabet, r), "unexpected rune %q in %s", r, token)
		}
		seen[token] = true
	}
	// 31^6 combinations; 200 draws colliding into one value would mean
	// the generator is broken.
	assert.Greater(t, len(seen), 1)
}

func TestTokenAlphabetExcludesAmbiguousGlyphs(t *testing.T) {
	for _, r := range "01OIL" {
		assert.False(t, strings.ContainsRune(tokenAlphabet, r))
	}
}
