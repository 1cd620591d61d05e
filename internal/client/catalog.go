package client

import (
	"context"
	"log"
	"sync"
	"time"
)

// CatalogModel describes one generation model advertised by a provider
type CatalogModel struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// ModelCatalog caches discovered provider models with a TTL, keyed by
// provider. The clock is injected so expiry is testable.
type ModelCatalog struct {
	tripo *TripoClient
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]catalogEntry
}

type catalogEntry struct {
	models    []CatalogModel
	fetchedAt time.Time
}

// NewModelCatalog creates a catalog cache over the Tripo client
func NewModelCatalog(tripo *TripoClient, ttl time.Duration) *ModelCatalog {
	return &ModelCatalog{
		tripo:   tripo,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]catalogEntry),
	}
}

// WithClock overrides the time source, for tests
func (c *ModelCatalog) WithClock(now func() time.Time) *ModelCatalog {
	c.now = now
	return c
}

// Models returns the cached catalog for a provider, refreshing upstream when
// the entry is missing or older than the TTL. A failed refresh falls back to
// the stale entry when one exists.
func (c *ModelCatalog) Models(ctx context.Context, provider, apiKey string) ([]CatalogModel, error) {
	c.mu.Lock()
	entry, ok := c.entries[provider]
	c.mu.Unlock()

	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.models, nil
	}

	models, err := c.fetch(ctx, provider, apiKey)
	if err != nil {
		if ok {
			log.Printf("[Catalog] refresh failed for %s, serving stale entry: %v", provider, err)
			return entry.models, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.entries[provider] = catalogEntry{models: models, fetchedAt: c.now()}
	c.mu.Unlock()

	return models, nil
}

func (c *ModelCatalog) fetch(ctx context.Context, provider, apiKey string) ([]CatalogModel, error) {
	// Tripo is the only polling provider today; the key dispatches here when
	// more are added.
	_ = provider
	return c.tripo.ListModels(ctx, apiKey)
}
