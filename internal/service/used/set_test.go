package used

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_ResetKeepsLast(t *testing.T) {
	for _, capacity := range []int{1, 3, 100, 1000} {
		t.Run(fmt.Sprint(capacity), func(t *testing.T) {
			s, err := NewSet(capacity, PolicyReset)
			require.NoError(t, err)

			for i := 0; i < capacity; i++ {
				require.True(t, s.Add(fmt.Sprintf("item-%d", i)))
			}
			assert.Equal(t, capacity, s.Len())

			last := fmt.Sprintf("item-%d", capacity)
			require.True(t, s.Add(last))
			assert.Equal(t, 1, s.Len())
			assert.True(t, s.Contains(last))
			assert.False(t, s.Contains("item-0"))
			assert.Equal(t, []string{last}, s.Items())
		})
	}
}

func TestSet_DuplicateDoesNotTriggerReset(t *testing.T) {
	s, err := NewSet(2, PolicyReset)
	require.NoError(t, err)

	s.Add("a")
	s.Add("b")
	assert.False(t, s.Add("a"))
	assert.Equal(t, 2, s.Len())
}

func TestSet_LRU(t *testing.T) {
	s, err := NewSet(3, PolicyLRU)
	require.NoError(t, err)

	s.Add("a")
	s.Add("b")
	s.Add("c")
	assert.True(t, s.Contains("a")) // a becomes most recent

	require.True(t, s.Add("d"))
	assert.Equal(t, 3, s.Len())
	assert.False(t, s.Contains("b"), "least recently used goes first")
	assert.Equal(t, []string{"c", "a", "d"}, s.Items())
}

func TestNewSet_Invalid(t *testing.T) {
	_, err := NewSet(0, PolicyReset)
	assert.Error(t, err)

	_, err = NewSet(10, Policy("fifo"))
	assert.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyReset, p)

	p, err = ParsePolicy("lru")
	require.NoError(t, err)
	assert.Equal(t, PolicyLRU, p)

	_, err = ParsePolicy("random")
	assert.Error(t, err)
}
