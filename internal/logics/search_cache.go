package logics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dopple-server/configs"
	"dopple-server/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	searchCacheTTL    = 30 * time.Second
	searchCachePrefix = "quicksearch"
)

// RedisCmdable is the slice of the redis client the search cache needs.
type RedisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// SearchCache is a short-TTL cache of quick-search results. Entries are
// keyed by owner, a per-owner generation counter and the lowered query.
// Every tree mutation bumps the owner's generation, so entries written
// before the mutation become unreachable and age out via their TTL; a
// search never observes items the owner has already deleted, renamed or
// moved. All cache failures degrade to a database query.
type SearchCache struct {
	client RedisCmdable
}

// NewSearchCache builds the cache. client may be nil; every operation is
// then a no-op and searches always hit the database.
func NewSearchCache(client RedisCmdable) *SearchCache {
	return &SearchCache{client: client}
}

func (sc *SearchCache) enabled() bool {
	return sc != nil && sc.client != nil
}

func (sc *SearchCache) generationKey(ownerID int64) string {
	return fmt.Sprintf("%s:gen:%d", searchCachePrefix, ownerID)
}

func (sc *SearchCache) entryKey(ownerID, gen int64, query string) string {
	return fmt.Sprintf("%s:%d:%d:%s", searchCachePrefix, ownerID, gen, strings.ToLower(query))
}

func (sc *SearchCache) generation(ctx context.Context, ownerID int64) (int64, bool) {
	gen, err := sc.client.Get(ctx, sc.generationKey(ownerID)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, true
		}
		return 0, false
	}
	return gen, true
}

// Get returns the cached result set for the owner's query, or nil on a
// miss.
func (sc *SearchCache) Get(ctx context.Context, ownerID int64, query string) []models.Item {
	if !sc.enabled() {
		return nil
	}

	gen, ok := sc.generation(ctx, ownerID)
	if !ok {
		return nil
	}

	payload, err := sc.client.Get(ctx, sc.entryKey(ownerID, gen, query)).Bytes()
	if err != nil {
		if err != redis.Nil {
			configs.Logger.Warn("search cache read failed", zap.Int64("owner_id", ownerID), zap.Error(err))
		}
		return nil
	}

	var items []models.Item
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil
	}
	return items
}

// Set stores the result set under the owner's current generation.
func (sc *SearchCache) Set(ctx context.Context, ownerID int64, query string, items []models.Item) {
	if !sc.enabled() {
		return
	}

	gen, ok := sc.generation(ctx, ownerID)
	if !ok {
		return
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := sc.client.Set(ctx, sc.entryKey(ownerID, gen, query), payload, searchCacheTTL).Err(); err != nil {
		configs.Logger.Warn("search cache write failed", zap.Int64("owner_id", ownerID), zap.Error(err))
	}
}

// Invalidate bumps the owner's generation, making every cached entry for
// that owner unreachable.
func (sc *SearchCache) Invalidate(ctx context.Context, ownerID int64) {
	if !sc.enabled() {
		return
	}
	if err := sc.client.Incr(ctx, sc.generationKey(ownerID)).Err(); err != nil {
		configs.Logger.Warn("search cache invalidation failed", zap.Int64("owner_id", ownerID), zap.Error(err))
	}
}
