package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 500)
	for range 500 {
		v, err := Generate(PrefixContent)
		require.NoError(t, err)
		_, dup := seen[v]
		assert.False(t, dup, "duplicate id %s", v)
		seen[v] = struct{}{}
	}
}

func TestGenerate_Shape(t *testing.T) {
	v, err := Generate(PrefixContent)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(v, "story-"))
	assert.Len(t, strings.TrimPrefix(v, "story-"), 21)
	assert.True(t, HasPrefix(v, PrefixContent))
	assert.False(t, HasPrefix(v, PrefixToken))
}

func TestHasPrefix_RejectsBarePrefix(t *testing.T) {
	assert.False(t, HasPrefix("story-", PrefixContent))
	assert.False(t, HasPrefix("story", PrefixContent))
}
