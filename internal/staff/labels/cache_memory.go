package labels

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	id "dsnap/pkg/domain"
)

// MemoryCache is the process-local label cache used when Redis is not configured.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache expires entries after ttl and sweeps them every 2*ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{cache: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryCache) Get(_ context.Context, ids []id.StaffID) (map[id.StaffID]string, error) {
	hits := make(map[id.StaffID]string, len(ids))
	for _, staffID := range ids {
		value, found := c.cache.Get(staffID.String())
		if !found {
			continue
		}
		if label, ok := value.(string); ok {
			hits[staffID] = label
		}
	}
	return hits, nil
}

func (c *MemoryCache) Set(_ context.Context, labels map[id.StaffID]string) error {
	for staffID, label := range labels {
		c.cache.SetDefault(staffID.String(), label)
	}
	return nil
}
