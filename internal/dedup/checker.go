package dedup

import (
	"context"
	"fmt"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/metrics"
)

type queueStore interface {
	ExistsByURL(ctx context.Context, kind entities.ItemKind, url string) (bool, error)
}

type resultStore interface {
	ExistsByURL(ctx context.Context, url string) (bool, error)
}

// Checker answers "was this posting seen before" against the queue and the
// results collection, with the cache in front. Only cached positives are
// trusted; a cached "not found" is always re-checked against the store.
type Checker struct {
	cache   *Cache
	queue   queueStore
	results resultStore
}

func NewChecker(cache *Cache, queue queueStore, results resultStore) *Checker {
	return &Checker{cache: cache, queue: queue, results: results}
}

func (c *Checker) Exists(ctx context.Context, url string) (bool, error) {
	key := NormalizeURL(url)

	if exists, known := c.cache.Check(key); known && exists {
		metrics.DedupLookupsCounter.WithLabelValues("cache_hit").Inc()
		return true, nil
	}
	metrics.DedupLookupsCounter.WithLabelValues("store").Inc()

	queued, err := c.queue.ExistsByURL(ctx, entities.KindPosting, key)
	if err != nil {
		return false, fmt.Errorf("failed to check queue for %s: %w", key, err)
	}
	if queued {
		c.cache.Set(key, true)
		return true, nil
	}

	saved, err := c.results.ExistsByURL(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check results for %s: %w", key, err)
	}
	c.cache.Set(key, saved)
	return saved, nil
}

// MarkSeen records a URL that was just enqueued so that later postings of the
// same batch are recognized without a store round trip.
func (c *Checker) MarkSeen(url string) {
	c.cache.Set(url, true)
}
