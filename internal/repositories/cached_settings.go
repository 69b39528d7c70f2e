package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/filter"
	gocache "github.com/patrickmn/go-cache"
)

type documentStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// CachedSettings reads the runtime config documents through a short-lived
// cache. Missing documents resolve to defaults.
type CachedSettings struct {
	docs  documentStore
	cache *gocache.Cache
}

func NewCachedSettings(docs documentStore, ttl time.Duration) *CachedSettings {
	return &CachedSettings{docs: docs, cache: gocache.New(ttl, 2*ttl)}
}

// Refresh drops every cached document so the next read hits the store.
func (c *CachedSettings) Refresh() {
	c.cache.Flush()
}

func (c *CachedSettings) FilterConfig(ctx context.Context) (filter.Config, error) {
	if value, found := c.cache.Get(DocJobFilters); found {
		return value.(filter.Config), nil
	}

	cfg := filter.DefaultConfig()
	if err := c.decodeInto(ctx, DocJobFilters, &cfg); err != nil {
		return cfg, err
	}

	ranks, err := c.TechnologyRanks(ctx)
	if err != nil {
		return cfg, err
	}
	if len(ranks.Technologies) > 0 {
		cfg.Technologies = ranks
	}

	c.cache.Set(DocJobFilters, cfg, gocache.DefaultExpiration)
	return cfg, nil
}

func (c *CachedSettings) TechnologyRanks(ctx context.Context) (filter.TechnologyRanks, error) {
	if value, found := c.cache.Get(DocTechnologyRanks); found {
		return value.(filter.TechnologyRanks), nil
	}

	ranks := filter.DefaultConfig().Technologies
	if err := c.decodeInto(ctx, DocTechnologyRanks, &ranks); err != nil {
		return ranks, err
	}

	c.cache.Set(DocTechnologyRanks, ranks, gocache.DefaultExpiration)
	return ranks, nil
}

func (c *CachedSettings) QueueSettings(ctx context.Context) (entities.QueueSettings, error) {
	if value, found := c.cache.Get(DocQueueSettings); found {
		return value.(entities.QueueSettings), nil
	}

	settings := entities.DefaultQueueSettings()
	if err := c.decodeInto(ctx, DocQueueSettings, &settings); err != nil {
		return settings, err
	}

	c.cache.Set(DocQueueSettings, settings, gocache.DefaultExpiration)
	return settings, nil
}

func (c *CachedSettings) decodeInto(ctx context.Context, name string, out any) error {
	raw, err := c.docs.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load %s config: %w", name, err)
	}
	if raw == nil {
		return nil
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s config: %w", name, err)
	}
	return nil
}
