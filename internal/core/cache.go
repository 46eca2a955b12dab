package core

// ProcessedCache is the most-recent-first set of message ids already
// disposed of in earlier runs.
type ProcessedCache struct {
	ids      []string
	seen     map[string]struct{}
	capacity int
}

// NewProcessedCache builds a cache from ids stored most-recent-first.
// A capacity of zero or less means unbounded.
func NewProcessedCache(ids []string, capacity int) *ProcessedCache {
	c := &ProcessedCache{
		seen:     make(map[string]struct{}, len(ids)),
		capacity: capacity,
	}
	for _, id := range ids {
		if _, dup := c.seen[id]; dup || id == "" {
			continue
		}
		c.seen[id] = struct{}{}
		c.ids = append(c.ids, id)
	}
	c.trim()
	return c
}

// Contains reports whether id was processed before
func (c *ProcessedCache) Contains(id string) bool {
	_, ok := c.seen[id]
	return ok
}

// Push records id as the most recent entry
func (c *ProcessedCache) Push(id string) {
	if c.Contains(id) {
		for i, existing := range c.ids {
			if existing == id {
				c.ids = append(c.ids[:i], c.ids[i+1:]...)
				break
			}
		}
	}
	c.ids = append([]string{id}, c.ids...)
	c.seen[id] = struct{}{}
	c.trim()
}

func (c *ProcessedCache) trim() {
	if c.capacity <= 0 || len(c.ids) <= c.capacity {
		return
	}
	for _, evicted := range c.ids[c.capacity:] {
		delete(c.seen, evicted)
	}
	c.ids = c.ids[:c.capacity]
}

// IDs returns the cached ids, most recent first
func (c *ProcessedCache) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Len is the number of cached ids
func (c *ProcessedCache) Len() int {
	return len(c.ids)
}
