package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguage(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"go", "go"},
		{"Go", "go"},
		{"golang", "go"},
		{"  JS ", "javascript"},
		{".ts", "typescript"},
		{"c++", "cpp"},
		{"yml", "yaml"},
		{"elixir", "elixir"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Language(tt.input))
		})
	}
}

func TestCategory(t *testing.T) {
	assert.Equal(t, "web", Category("  Web "))
	assert.Equal(t, "data science", Category("Data   Science"))
	assert.Equal(t, "strasse", Category("Straße"))
	assert.Equal(t, "", Category("\x00 "))
}

func TestCategories_DedupesInFirstSeenOrder(t *testing.T) {
	got := Categories([]string{"Web", "api", " WEB ", "", "Api", "cli"})
	assert.Equal(t, []string{"web", "api", "cli"}, got)
}

func TestCategories_Empty(t *testing.T) {
	assert.Equal(t, []string{}, Categories(nil))
	assert.Equal(t, []string{}, Categories([]string{" ", ""}))
}

func TestSplitCategories(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitCategories("A, b ,a"))
	assert.Equal(t, []string{}, SplitCategories(""))
	assert.Equal(t, []string{}, SplitCategories(" , "))
}

func TestLineEndings(t *testing.T) {
	assert.Equal(t, "a\nb\nc\n", LineEndings("a\r\nb\rc\n"))
	assert.Equal(t, "plain", LineEndings("plain"))
}

func TestTitleAndFileName(t *testing.T) {
	assert.Equal(t, "Hello", Title("  Hello\x00 "))
	assert.Equal(t, "main.go", FileName(" main.go\n"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "überblick strasse", Fold("Überblick Straße"))
	assert.Equal(t, Fold("ÜBERBLICK"), Fold("überblick"))
	// Decomposed and precomposed forms fold to the same string.
	assert.Equal(t, Fold("\u00fcber"), Fold("u\u0308ber"))
	assert.Equal(t, "ascii", Fold("ASCII"))
}
