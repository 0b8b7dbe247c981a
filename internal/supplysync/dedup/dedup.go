package dedup

// Cache is a positive-only hot cache sitting in front of the record
// store: a hit means "definitely processed", a miss means "ask the
// store". Entries are added only after a record is known to be
// persisted, so a failed insert can never be shadowed by the cache.
type Cache interface {
	Seen(key string) bool
	Add(key string)
	Close()
}

// None disables the hot path; every event goes to the store.
type None struct{}

func (None) Seen(string) bool { return false }
func (None) Add(string)       {}
func (None) Close()           {}
