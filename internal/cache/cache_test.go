package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedSetAndGet(t *testing.T) {
	c, err := NewBounded[string, int](10, 0)
	require.NoError(t, err)
	defer c.Close()

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestBoundedDelRemovesEntry(t *testing.T) {
	c, err := NewBounded[string, int](10, 0)
	require.NoError(t, err)
	defer c.Close()

	c.Set("a", 1)
	c.Del("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestBoundedClearEmptiesCache(t *testing.T) {
	c, err := NewBounded[string, int](10, 0)
	require.NoError(t, err)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.False(t, okA)
	assert.False(t, okB)
}

func TestBoundedExpiresAfterTTL(t *testing.T) {
	c, err := NewBounded[string, int](10, 20*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	c.Set("a", 1)
	_, ok := c.Get("a")
	require.True(t, ok)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestNewBoundedClampsNonPositiveMaxItems(t *testing.T) {
	c, err := NewBounded[string, int](0, 0)
	require.NoError(t, err)
	defer c.Close()

	c.Set("a", 1)
	_, ok := c.Get("a")
	assert.True(t, ok)
}
