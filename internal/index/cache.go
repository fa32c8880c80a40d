package index

import (
	"context"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/orderindex/internal/record"
)

// DefaultCustomerCacheSize is the default number of customer identities kept.
const DefaultCustomerCacheSize = 4096

type cachedCustomer struct {
	customer record.Customer
	ok       bool
}

// CachedResolver wraps a CustomerResolver with an LRU of resolved identities.
// Unresolvable ids are not cached: a user created after the lookup must
// resolve on the next recompute. Concurrent misses for one id share a
// single lookup.
type CachedResolver struct {
	inner record.CustomerResolver
	cache *lru.Cache[int64, cachedCustomer]
	group singleflight.Group
}

// NewCachedResolver creates a cached resolver holding up to size identities.
func NewCachedResolver(inner record.CustomerResolver, size int) *CachedResolver {
	if size <= 0 {
		size = DefaultCustomerCacheSize
	}
	cache, _ := lru.New[int64, cachedCustomer](size)
	return &CachedResolver{
		inner: inner,
		cache: cache,
	}
}

// Customer returns the cached identity, resolving it on a miss.
func (c *CachedResolver) Customer(ctx context.Context, userID int64) (record.Customer, bool, error) {
	if v, ok := c.cache.Get(userID); ok {
		return v.customer, v.ok, nil
	}

	v, err, _ := c.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		customer, ok, err := c.inner.Customer(ctx, userID)
		if err != nil {
			return nil, err
		}
		entry := cachedCustomer{customer: customer, ok: ok}
		if ok {
			c.cache.Add(userID, entry)
		}
		return entry, nil
	})
	if err != nil {
		return record.Customer{}, false, err
	}
	entry := v.(cachedCustomer)
	return entry.customer, entry.ok, nil
}

// Remove drops one identity, e.g. after a profile update.
func (c *CachedResolver) Remove(userID int64) {
	c.cache.Remove(userID)
}

// Purge drops every cached identity.
func (c *CachedResolver) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached identities.
func (c *CachedResolver) Len() int {
	return c.cache.Len()
}
