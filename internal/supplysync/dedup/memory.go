package dedup

import (
	"sync"
	"time"
)

// Memory is an in-process TTL cache: a map for lookups plus an
// insertion-order queue so eviction pops expired entries from the head
// without scanning the map.
type Memory struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	m    map[string]int64 // key -> expiry unix
	q    []memEntry
	head int
}

type memEntry struct {
	key    string
	expiry int64
}

func NewMemory(ttl time.Duration, capHint int) *Memory {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if capHint < 0 {
		capHint = 0
	}
	return &Memory{
		ttl: ttl,
		now: time.Now,
		m:   make(map[string]int64, capHint),
		q:   make([]memEntry, 0, capHint),
	}
}

func (c *Memory) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now().Unix()
	c.evict(now)
	exp, ok := c.m[key]
	return ok && exp >= now
}

func (c *Memory) Add(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now().Unix()
	c.evict(now)
	exp := now + int64(c.ttl/time.Second)
	c.m[key] = exp
	c.q = append(c.q, memEntry{key: key, expiry: exp})
}

func (c *Memory) Close() {}

// evict pops expired entries from the queue head. A key re-added after
// expiry leaves a stale queue entry behind; the expiry comparison keeps
// that from deleting the fresh map entry.
func (c *Memory) evict(now int64) {
	for c.head < len(c.q) {
		e := c.q[c.head]
		if e.expiry >= now {
			break
		}
		if exp, ok := c.m[e.key]; ok && exp == e.expiry {
			delete(c.m, e.key)
		}
		c.head++
	}
	if c.head > 4096 && c.head*2 > len(c.q) {
		c.q = append(c.q[:0:0], c.q[c.head:]...)
		c.head = 0
	}
}
