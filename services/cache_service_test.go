package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetAndGet(t *testing.T) {
	cache := NewCacheServiceWithConfig(1*time.Minute, 10)

	cache.Set("key", "value")
	value, found := cache.Get("key")
	require.True(t, found)
	assert.Equal(t, "value", value)

	_, found = cache.Get("missing")
	assert.False(t, found)
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := NewCacheServiceWithConfig(1*time.Minute, 10)

	cache.SetWithTTL("key", "value", 10*time.Millisecond)
	_, found := cache.Get("key")
	assert.True(t, found)

	time.Sleep(20 * time.Millisecond)
	_, found = cache.Get("key")
	assert.False(t, found, "entry past its TTL must not be served")
}

func TestCacheGetStale(t *testing.T) {
	cache := NewCacheServiceWithConfig(1*time.Minute, 10)

	cache.SetWithTTL("key", "value", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, found := cache.Get("key")
	require.False(t, found)

	value, found := cache.GetStale("key")
	require.True(t, found, "stale reads serve expired entries")
	assert.Equal(t, "value", value)

	_, found = cache.GetStale("missing")
	assert.False(t, found)
}

func TestCacheEviction(t *testing.T) {
	cache := NewCacheServiceWithConfig(1*time.Minute, 3)

	for i := 0; i < 4; i++ {
		cache.SetWithTTL(fmt.Sprintf("key%d", i), i, time.Duration(i+1)*time.Minute)
	}

	assert.Equal(t, 3, cache.Size(), "cache must not grow past its max size")
	_, found := cache.Get("key0")
	assert.False(t, found, "the entry expiring soonest is evicted first")
}

func TestCacheDeleteAndClear(t *testing.T) {
	cache := NewCacheServiceWithConfig(1*time.Minute, 10)

	cache.Set("a", 1)
	cache.Set("b", 2)

	cache.Delete("a")
	_, found := cache.Get("a")
	assert.False(t, found)
	assert.Equal(t, 1, cache.Size())

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}
