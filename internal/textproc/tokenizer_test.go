package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeBasic(t *testing.T) {
	got := Tokenize("Python is a language. Python is great.")
	assert.Equal(t, []string{"python", "language", "python", "great"}, got)
}

func TestTokenizeDropsStopWordsAndShortTokens(t *testing.T) {
	got := Tokenize("a an it to of I")
	assert.Empty(t, got)
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   "))
}

func TestTokenizeDeterministic(t *testing.T) {
	text := "The Quick Brown Fox jumps over the lazy dog repeatedly."
	first := Tokenize(text)
	second := Tokenize(text)
	assert.Equal(t, first, second)
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("The"))
	assert.False(t, IsStopWord("language"))
}
