package dedup

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const DefaultTTL = 300 * time.Second

// Cache remembers recent existence checks by normalized URL. It is advisory
// only: entries expire after the TTL and are never shared between processes.
type Cache struct {
	cache *gocache.Cache
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{cache: gocache.New(ttl, 2*ttl)}
}

// Check returns known=false when the URL has no live entry.
func (c *Cache) Check(url string) (exists bool, known bool) {
	value, found := c.cache.Get(NormalizeURL(url))
	if !found {
		return false, false
	}
	return value.(bool), true
}

func (c *Cache) Set(url string, exists bool) {
	c.cache.Set(NormalizeURL(url), exists, gocache.DefaultExpiration)
}

func (c *Cache) Len() int {
	return c.cache.ItemCount()
}
