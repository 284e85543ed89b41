package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for i := 0; i < count; i++ {
		id, err := Generate(PrefixSnippet)
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{PrefixSnippet, PrefixFragment, PrefixUser, PrefixAPIKey, PrefixPlaceholder} {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(id, prefix+"-"))
			// NanoID default is 21 characters.
			assert.Len(t, id, len(prefix)+1+21, "ID: %s", id)
		})
	}
}

func TestMustGenerate_Format(t *testing.T) {
	id := MustGenerate("test")

	assert.True(t, strings.HasPrefix(id, "test-"))
	assert.Equal(t, len("test")+1+21, len(id))
}

func TestSecret(t *testing.T) {
	s, err := Secret(32)
	require.NoError(t, err)
	assert.Len(t, s, 32)
	assert.NotContains(t, s, "-")
	assert.NotContains(t, s, "_")
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder(MustGenerate(PrefixPlaceholder)))
	assert.False(t, IsPlaceholder(MustGenerate(PrefixSnippet)))
	assert.False(t, IsPlaceholder("tmp"))
	assert.False(t, IsPlaceholder("tmpx-abc"))
}
