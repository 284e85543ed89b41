package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/snipstash/snipstash-server/internal/domain"
)

// MetadataCache stores the category and language aggregate per scope.
// Failures of the backend are logged and treated as misses.
type MetadataCache struct {
	backend Cache
	ttl     time.Duration
	logger  *slog.Logger
}

// NewMetadataCache wraps a backend.
func NewMetadataCache(backend Cache, ttl time.Duration, logger *slog.Logger) *MetadataCache {
	return &MetadataCache{backend: backend, ttl: ttl, logger: logger}
}

func metadataKey(scope domain.Scope) string {
	return "metadata:" + scope.String()
}

// Get returns the cached aggregate for scope.
func (c *MetadataCache) Get(ctx context.Context, scope domain.Scope) (*domain.Metadata, bool) {
	raw, err := c.backend.Get(ctx, metadataKey(scope))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("metadata cache read failed", "scope", scope.String(), "error", err)
		}
		return nil, false
	}

	var md domain.Metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		c.logger.Warn("metadata cache entry corrupt", "scope", scope.String(), "error", err)
		return nil, false
	}
	return &md, true
}

// Set stores the aggregate for scope.
func (c *MetadataCache) Set(ctx context.Context, scope domain.Scope, md *domain.Metadata) {
	raw, err := json.Marshal(md)
	if err != nil {
		return
	}
	if err := c.backend.Set(ctx, metadataKey(scope), raw, c.ttl); err != nil {
		c.logger.Warn("metadata cache write failed", "scope", scope.String(), "error", err)
	}
}

// Invalidate drops the aggregates a change to one of ownerID's snippets can
// affect: the owner's and the public one.
func (c *MetadataCache) Invalidate(ctx context.Context, ownerID string) {
	keys := []string{
		metadataKey(domain.OwnerScope(ownerID)),
		metadataKey(domain.PublicScope()),
	}
	if err := c.backend.Delete(ctx, keys...); err != nil {
		c.logger.Warn("metadata cache invalidation failed", "owner_id", ownerID, "error", err)
	}
}
