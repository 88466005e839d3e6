package cache

import (
	"container/list"
	"sync"
)

// memoryCache is the in-memory tier with LRU eviction. Values are held
// as-is; capacity is accounted in bytes.
type memoryCache struct {
	capacity int64

	mu       sync.Mutex
	size     int64
	items    map[string]*list.Element
	eviction *list.List

	hits      int64
	misses    int64
	evictions int64
}

type memoryEntry struct {
	key   string
	value []byte
}

func newMemoryCache(capacity int64) *memoryCache {
	return &memoryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

func (c *memoryCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.eviction.MoveToFront(elem)
	c.hits++
	return elem.Value.(*memoryEntry).value, true
}

func (c *memoryCache) put(key string, value []byte) error {
	valueSize := int64(len(value))
	if valueSize > c.capacity {
		return ErrItemTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*memoryEntry)
		c.size += valueSize - int64(len(entry.value))
		entry.value = value
		c.eviction.MoveToFront(elem)
		return nil
	}

	for c.size+valueSize > c.capacity && c.eviction.Len() > 0 {
		c.evictOldest()
	}

	elem := c.eviction.PushFront(&memoryEntry{key: key, value: value})
	c.items[key] = elem
	c.size += valueSize
	return nil
}

// evictOldest removes the least recently used entry. Caller holds the lock.
func (c *memoryCache) evictOldest() {
	elem := c.eviction.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*memoryEntry)
	c.eviction.Remove(elem)
	delete(c.items, entry.key)
	c.size -= int64(len(entry.value))
	c.evictions++
}

func (c *memoryCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
}

func (c *memoryCache) stats() (hits, misses, evictions, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.evictions, c.size
}
