package cap

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const cacheKeyPrefix = "cap:xml:"

// DocumentCache holds signed CAP documents in redis with a bounded TTL.
// A published Actual alert is immutable, so its serialization is pure and
// safe to cache.
type DocumentCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDocumentCache(rdb *redis.Client, ttl time.Duration) *DocumentCache {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &DocumentCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached document for the identifier, if present. Cache
// errors degrade to a miss.
func (c *DocumentCache) Get(ctx context.Context, identifier string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, cacheKeyPrefix+identifier).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.WithFields(log.Fields{"alertId": identifier, "error": err}).Warn("cap document cache read failed")
		return nil, false
	}
	return val, true
}

// Put stores the document. Failures are logged, never surfaced; the cache
// is an optimization only.
func (c *DocumentCache) Put(ctx context.Context, identifier string, doc []byte) {
	if err := c.rdb.Set(ctx, cacheKeyPrefix+identifier, doc, c.ttl).Err(); err != nil {
		log.WithFields(log.Fields{"alertId": identifier, "error": err}).Warn("cap document cache write failed")
	}
}
