package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemory_SeenAfterAdd(t *testing.T) {
	c := NewMemory(time.Minute, 16)
	defer c.Close()

	assert.False(t, c.Seen("0xabc:BUY:1"))
	c.Add("0xabc:BUY:1")
	assert.True(t, c.Seen("0xabc:BUY:1"))
	assert.False(t, c.Seen("0xabc:BUY:2"))
}

func TestMemory_Expiry(t *testing.T) {
	c := NewMemory(10*time.Second, 16)
	base := time.Unix(1000, 0)
	c.now = func() time.Time { return base }

	c.Add("k")
	assert.True(t, c.Seen("k"))

	base = time.Unix(1011, 0)
	assert.False(t, c.Seen("k"))
	assert.Empty(t, c.m, "expired entry should be evicted")
}

func TestMemory_ReAddAfterExpiryKeepsFreshEntry(t *testing.T) {
	c := NewMemory(10*time.Second, 16)
	base := time.Unix(1000, 0)
	c.now = func() time.Time { return base }

	c.Add("k")
	base = time.Unix(1011, 0)
	c.Add("k") // re-add; stale queue entry for the old expiry remains

	base = time.Unix(1012, 0)
	assert.True(t, c.Seen("k"))
}

func TestNone(t *testing.T) {
	var c Cache = None{}
	c.Add("k")
	assert.False(t, c.Seen("k"))
}
