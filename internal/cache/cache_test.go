package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTTLCache[string, int](func() time.Time { return now })

	c.Set("basic", 30, time.Minute)
	v, ok := c.Get("basic")
	assert.True(t, ok)
	assert.Equal(t, 30, v)

	now = now.Add(time.Minute)
	_, ok = c.Get("basic")
	assert.False(t, ok)
	assert.Empty(t, c.items)
}

func TestTTLCacheNoExpiry(t *testing.T) {
	now := time.Now()
	c := newTTLCache[string, string](func() time.Time { return now })
	c.Set("k", "v", 0)
	now = now.Add(24 * time.Hour)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestTTLCachePurgeAndConcurrency(t *testing.T) {
	c := NewTTLCache[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(i, i, time.Minute)
			c.Get(i)
		}(i)
	}
	wg.Wait()

	v, ok := c.Get(3)
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	c.Purge()
	_, ok = c.Get(3)
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "package|basic", Key(" Package ", "", "BASIC"))
}
