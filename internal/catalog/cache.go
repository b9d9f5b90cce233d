package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CachedSource keeps the last successful load for TTL. When a refresh fails
// the stale snapshot keeps being served. A TTL of zero never expires.
type CachedSource struct {
	src    Source
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	cached   *Catalog
	loadedAt time.Time
}

func NewCachedSource(src Source, ttl time.Duration, logger *slog.Logger) *CachedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{src: src, ttl: ttl, logger: logger, now: time.Now}
}

func (c *CachedSource) Load(ctx context.Context) (*Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && (c.ttl <= 0 || c.now().Sub(c.loadedAt) < c.ttl) {
		return c.cached, nil
	}
	fresh, err := c.src.Load(ctx)
	if err != nil {
		if c.cached != nil {
			c.logger.Warn("catalog.refresh.failed", "error", err, "stale_for", c.now().Sub(c.loadedAt).String())
			return c.cached, nil
		}
		return nil, err
	}
	c.cached, c.loadedAt = fresh, c.now()
	return fresh, nil
}

// Invalidate forces the next Load to hit the source.
func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	c.loadedAt = time.Time{}
	if c.ttl <= 0 {
		c.cached = nil
	}
	c.mu.Unlock()
}
