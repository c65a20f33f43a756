package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawExhaustsUniverseWithoutRepeats(t *testing.T) {
	c := NewCaller(rand.New(rand.NewSource(1)))

	seen := make(map[string]bool)
	for i := 0; i < 75; i++ {
		letter, number, err := c.Draw()
		require.NoError(t, err, "draw %d", i+1)

		col := ColumnFor(number)
		require.GreaterOrEqual(t, col, 0)
		assert.Equal(t, Letters[col], letter, "letter must match the number's column")

		tok := Token(letter, number)
		assert.False(t, seen[tok], "token %s drawn twice", tok)
		seen[tok] = true
	}

	assert.Equal(t, 75, c.Count())
	_, _, err := c.Draw()
	assert.ErrorIs(t, err, ErrExhausted, "76th draw must signal exhaustion")
}

func TestCallerResetAndRestore(t *testing.T) {
	c := NewCaller(rand.New(rand.NewSource(2)))

	for i := 0; i < 10; i++ {
		_, _, err := c.Draw()
		require.NoError(t, err)
	}
	drawn := c.Called()
	require.Len(t, drawn, 10)

	c.Reset()
	assert.Equal(t, 0, c.Count())
	assert.False(t, c.Has(drawn[0]))

	c.Restore(drawn)
	assert.Equal(t, 10, c.Count())
	assert.True(t, c.Has(drawn[0]))
	assert.Equal(t, drawn, c.Called(), "restore must preserve draw order")

	// Duplicates in a snapshot collapse into the set.
	c.Restore(append(drawn, drawn[0]))
	assert.Equal(t, 10, c.Count())
}
