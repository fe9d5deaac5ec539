package classify

// lookupCache memoizes per-key fetch results for the lifetime of one run,
// including negative results, so each key is fetched at most once.
type lookupCache[T any] struct {
	entries map[string]cacheEntry[T]
}

type cacheEntry[T any] struct {
	value T
	ok    bool
}

func newLookupCache[T any]() *lookupCache[T] {
	return &lookupCache[T]{entries: make(map[string]cacheEntry[T])}
}

// resolve returns the cached result for key, calling fetch on first access.
func (c *lookupCache[T]) resolve(key string, fetch func() (T, bool)) (T, bool) {
	if entry, seen := c.entries[key]; seen {
		return entry.value, entry.ok
	}
	value, ok := fetch()
	c.entries[key] = cacheEntry[T]{value: value, ok: ok}
	return value, ok
}
