// ABOUTME: In-memory caching for per-image scan findings to reduce registry API calls.
// ABOUTME: Uses TTL-based expiration to balance data freshness with API rate limits.

package cache

import (
	"sync"
	"time"

	"github.com/pccs/cvreport/internal/types"

	"github.com/sirupsen/logrus"
)

type entry struct {
	findings  []types.VulnerabilityRecord
	expiresAt time.Time
}

// FindingsCache caches scan findings per image URI with a fixed TTL.
type FindingsCache struct {
	cache  map[string]*entry
	mutex  sync.RWMutex
	ttl    time.Duration
	logger *logrus.Logger
}

// NewFindingsCache creates a cache with a 30 minute TTL and starts the
// background cleanup loop.
func NewFindingsCache(logger *logrus.Logger) *FindingsCache {
	c := &FindingsCache{
		cache:  make(map[string]*entry),
		ttl:    30 * time.Minute,
		logger: logger,
	}

	go c.startCleanup()

	return c
}

// Get returns the cached findings for an image URI. The second return value
// is false on a miss or an expired entry.
func (c *FindingsCache) Get(imageURI string) ([]types.VulnerabilityRecord, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, exists := c.cache[imageURI]
	if !exists {
		return nil, false
	}

	// Expired entries are left for the cleanup loop; taking a write lock
	// inside a read path is not worth it.
	if time.Now().After(e.expiresAt) {
		return nil, false
	}

	c.logger.WithField("image", imageURI).Debug("Cache hit")
	return e.findings, true
}

// Set stores findings for an image URI.
func (c *FindingsCache) Set(imageURI string, findings []types.VulnerabilityRecord) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[imageURI] = &entry{
		findings:  findings,
		expiresAt: time.Now().Add(c.ttl),
	}

	c.logger.WithField("image", imageURI).Debug("Cached scan findings")
}

func (c *FindingsCache) startCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

func (c *FindingsCache) cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	expiredCount := 0

	for imageURI, e := range c.cache {
		if now.After(e.expiresAt) {
			delete(c.cache, imageURI)
			expiredCount++
		}
	}

	if expiredCount > 0 {
		c.logger.WithFields(logrus.Fields{
			"expired_entries":   expiredCount,
			"remaining_entries": len(c.cache),
		}).Debug("Cache cleanup completed")
	}
}

// Stats returns the total and expired entry counts.
func (c *FindingsCache) Stats() (total int, expired int) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := time.Now()
	total = len(c.cache)

	for _, e := range c.cache {
		if now.After(e.expiresAt) {
			expired++
		}
	}

	return total, expired
}
