package notify

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Dedup remembers recently published alert keys. Size bounds memory; ttl
// bounds how long a key suppresses a repeat.
type Dedup struct {
	cache *lru.Cache[string, time.Time]
	ttl   time.Duration
	now   func() time.Time
}

func NewDedup(maxKeys int, ttl time.Duration) *Dedup {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	c, _ := lru.New[string, time.Time](maxKeys)
	return &Dedup{cache: c, ttl: ttl, now: time.Now}
}

// Seen reports whether key was marked within the ttl.
func (d *Dedup) Seen(key string) bool {
	addedAt, ok := d.cache.Get(key)
	return ok && d.now().Sub(addedAt) < d.ttl
}

func (d *Dedup) Mark(key string) {
	d.cache.Add(key, d.now())
}

func (d *Dedup) Len() int {
	return d.cache.Len()
}
