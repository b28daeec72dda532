package cache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestCache_BasicGetPut(t *testing.T) {
	c := New[string](3, time.Minute, nil)

	c.Put("a", "A")
	c.Put("b", "B")

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCache_TTLExpiry(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New[string](10, time.Minute, fake)

	c.Put("a", "A")

	fake.Advance(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok, "entry should survive until the TTL")

	fake.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry should expire exactly at the TTL")
	assert.Zero(t, c.Len(), "expired entry should be removed on lookup")
}

func TestCache_PutResetsTTL(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New[string](10, time.Minute, fake)

	c.Put("a", "A1")
	fake.Advance(45 * time.Second)
	c.Put("a", "A2")
	fake.Advance(45 * time.Second)

	v, ok := c.Get("a")
	assert.True(t, ok, "rewrite should reset the TTL")
	assert.Equal(t, "A2", v)
}

func TestCache_Eviction(t *testing.T) {
	c := New[string](2, time.Minute, nil)

	c.Put("a", "A")
	c.Put("b", "B")
	c.Put("c", "C") // evicts "a"

	_, ok := c.Get("a")
	assert.False(t, ok, "a should have been evicted")

	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", v)

	v, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", v)
}

func TestCache_AccessPromotesEntry(t *testing.T) {
	c := New[string](2, time.Minute, nil)

	c.Put("a", "A")
	c.Put("b", "B")

	// Access "a" to promote it.
	c.Get("a")

	// Insert "c" — should evict "b" (LRU), not "a".
	c.Put("c", "C")

	_, ok := c.Get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestCache_ExpiredTailThenEvict(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New[int](2, time.Minute, fake)

	c.Put("a", 1)
	fake.Advance(2 * time.Minute)

	// "a" is expired but still occupies a slot until looked up; filling the
	// cache past capacity must not corrupt the LRU list around it.
	c.Put("b", 2)
	c.Put("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok)

	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestCache_StructValues(t *testing.T) {
	type result struct{ Name string }
	c := New[result](2, time.Minute, nil)

	c.Put("a", result{Name: "first"})
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "first", v.Name)
}
