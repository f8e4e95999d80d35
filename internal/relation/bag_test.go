package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapBag_Order(t *testing.T) {
	bag := NewMapBag()
	require.NoError(t, bag.Set("b", "2"))
	require.NoError(t, bag.Set("a", "1"))
	require.NoError(t, bag.Set("c", "3"))
	require.NoError(t, bag.Set("a", "updated"))

	assert.Equal(t, []string{"b", "a", "c"}, bag.Keys(), "updates keep insertion order")
	assert.Equal(t, 3, bag.Len())

	v, ok := bag.Get("a")
	require.True(t, ok)
	assert.Equal(t, "updated", v)

	assert.True(t, bag.Contains("b"))
	assert.False(t, bag.Contains("missing"))
	_, ok = bag.Get("missing")
	assert.False(t, ok)
}

func TestMapBagFrom_Deterministic(t *testing.T) {
	bag := MapBagFrom(map[string]string{"z": "26", "a": "1", "m": "13"})
	assert.Equal(t, []string{"a", "m", "z"}, bag.Keys())
}
