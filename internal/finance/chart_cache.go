package finance

import (
	"sync"
	"time"
)

// chartImages memoises rendered PNGs, keyed by what they plot.
var chartImages = newImageCache(60*time.Second, 128)

type cachedImage struct {
	expires time.Time
	png     []byte
}

// imageCache is a small TTL cache with a size bound. Returned slices are copies.
type imageCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	now     func() time.Time
	entries map[string]cachedImage
}

func newImageCache(ttl time.Duration, max int) *imageCache {
	return &imageCache{ttl: ttl, max: max, now: time.Now, entries: map[string]cachedImage{}}
}

func (c *imageCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		return nil, false
	}
	return append([]byte(nil), e.png...), true
}

// put stores png, dropping expired entries and, when still full, the one closest to expiry.
func (c *imageCache) put(key string, png []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.max {
		var oldest string
		for k, e := range c.entries {
			if oldest == "" || e.expires.Before(c.entries[oldest].expires) {
				oldest = k
			}
		}
		delete(c.entries, oldest)
	}
	c.entries[key] = cachedImage{expires: now.Add(c.ttl), png: append([]byte(nil), png...)}
}
