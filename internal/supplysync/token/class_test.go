package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	for _, c := range All() {
		got, ok := Resolve(c.Symbol())
		assert.True(t, ok)
		assert.Equal(t, c, got)
	}

	// case-insensitive, whitespace tolerant
	got, ok := Resolve(" tsla ")
	assert.True(t, ok)
	assert.Equal(t, TSLA, got)
}

func TestResolve_Unsupported(t *testing.T) {
	for _, s := range []string{"GOLD", "BTC", "", "USDCX"} {
		_, ok := Resolve(s)
		assert.False(t, ok, "ticker %q must not resolve", s)
	}
}

func TestSymbolRoundTrip(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range All() {
		s := c.Symbol()
		assert.NotEmpty(t, s)
		assert.False(t, seen[s], "duplicate symbol %q", s)
		seen[s] = true
	}
}
