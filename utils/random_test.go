package utils

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(8)
	require.NoError(t, err)
	assert.Len(t, code, 16) // hex doubles the byte count
	assert.Regexp(t, "^[0-9A-F]+$", code)

	other, err := GenerateCode(8)
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}

func TestShuffleStringsIsPermutation(t *testing.T) {
	in := make([]string, 100)
	for i := range in {
		in[i] = string(rune('a'+i%26)) + string(rune('0'+i/26))
	}

	out, err := ShuffleStrings(in)
	require.NoError(t, err)
	require.Len(t, out, len(in))

	sortedIn := append([]string(nil), in...)
	sortedOut := append([]string(nil), out...)
	sort.Strings(sortedIn)
	sort.Strings(sortedOut)
	assert.Equal(t, sortedIn, sortedOut, "shuffle must keep exactly the same members")
}

func TestShuffleStringsDoesNotMutateInput(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e"}
	snapshot := append([]string(nil), in...)

	_, err := ShuffleStrings(in)
	require.NoError(t, err)
	assert.Equal(t, snapshot, in)
}

func TestShuffleStringsActuallyShuffles(t *testing.T) {
	in := make([]string, 50)
	for i := range in {
		in[i] = string(rune('A' + i%26))
	}

	// with 50 elements the odds of two identical permutations in ten
	// tries are negligible
	identical := 0
	for i := 0; i < 10; i++ {
		out, err := ShuffleStrings(in)
		require.NoError(t, err)
		if assert.ObjectsAreEqual(in, out) {
			identical++
		}
	}
	assert.Less(t, identical, 10)
}

func TestShuffleStringsSmallInputs(t *testing.T) {
	out, err := ShuffleStrings(nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = ShuffleStrings([]string{"solo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"solo"}, out)
}
