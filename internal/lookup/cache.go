package lookup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// DefaultCacheFile is the context file written next to the config.
const DefaultCacheFile = "expense.context.json"

// Cache memoizes lookup results in a JSON context file so repeated syntheses
// resolve the same values without calling AWS. Only successful lookups are
// stored.
type Cache struct {
	path    string
	mu      sync.Mutex
	entries map[string]string
	dirty   bool
}

// NewMemoryCache creates a cache that is never persisted.
func NewMemoryCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// LoadCache reads path. A missing file yields an empty cache.
func LoadCache(path string) (*Cache, error) {
	c := &Cache{path: path, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return c, nil
}

// Get returns a cached value.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Set stores a value.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[key] == value {
		return
	}
	c.entries[key] = value
	c.dirty = true
}

// Keys returns the cached keys, sorted.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) > 0 {
		c.dirty = true
	}
	c.entries = make(map[string]string)
}

// Save writes the cache back to its file if it changed.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path == "" || !c.dirty {
		return nil
	}

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", c.path, err)
	}
	c.dirty = false
	return nil
}
