package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// AddressCache keeps resolved addresses per hostname. Entries expire after
// the record TTL, never later than the cache's maximum TTL.
type AddressCache struct {
	items  *gocache.Cache
	maxTTL time.Duration
}

func NewAddressCache(maxTTL time.Duration) *AddressCache {
	return &AddressCache{
		items:  gocache.New(maxTTL, time.Minute),
		maxTTL: maxTTL,
	}
}

// Set stores address for host. A zero ttl uses the maximum TTL.
func (c *AddressCache) Set(host, address string, ttl time.Duration) {
	if ttl <= 0 || ttl > c.maxTTL {
		ttl = c.maxTTL
	}
	c.items.Set(host, address, ttl)
}

func (c *AddressCache) Get(host string) (string, bool) {
	v, found := c.items.Get(host)
	if !found {
		return "", false
	}
	address, ok := v.(string)
	return address, ok
}

func (c *AddressCache) count() int {
	return c.items.ItemCount()
}

func (c *AddressCache) flush() {
	c.items.Flush()
}
