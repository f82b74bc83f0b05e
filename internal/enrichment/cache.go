package enrichment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultCacheTTL       = 24 * time.Hour
	defaultCacheNamespace = "bookmarks:enrichment"
)

// Source is anything that can enrich a URL.
type Source interface {
	Enrich(ctx context.Context, pageURL string) Enrichment
}

// CachingEnricher decorates a Source with a Redis lookaside cache. Only
// results derived from a fetched document are stored, so a transient outage
// is retried on the next save. A nil client bypasses the cache.
type CachingEnricher struct {
	inner     Source
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	logger    *zap.Logger
}

// NewCachingEnricher wraps inner. A non-positive ttl selects 24h.
func NewCachingEnricher(rdb *redis.Client, ttl time.Duration, inner Source, logger *zap.Logger) *CachingEnricher {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingEnricher{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: defaultCacheNamespace,
		logger:    logger,
	}
}

func (c *CachingEnricher) Enrich(ctx context.Context, pageURL string) Enrichment {
	if c.rdb == nil {
		return c.inner.Enrich(ctx, pageURL)
	}

	key := c.cacheKey(pageURL)
	if payload, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(payload) > 0 {
		var cached Enrichment
		if err := json.Unmarshal(payload, &cached); err == nil {
			cached.Fetched = true
			return cached
		}
		_ = c.rdb.Del(ctx, key).Err()
	} else if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("enrichment cache read failed", zap.String("key", key), zap.Error(err))
	}

	result := c.inner.Enrich(ctx, pageURL)
	if !result.Fetched {
		return result
	}
	if payload, err := json.Marshal(result); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("enrichment cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return result
}

func (c *CachingEnricher) cacheKey(pageURL string) string {
	digest := sha256.Sum256([]byte(pageURL))
	return c.namespace + ":" + hex.EncodeToString(digest[:])
}
