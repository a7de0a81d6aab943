package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Owoblo/sold2move-sub003/internal/database"
)

const queryTTL = 10 * time.Minute

type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisCache(addr, password string) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	return &RedisCache{
		client: client,
		ctx:    context.Background(),
	}
}

func (r *RedisCache) Ping() error {
	return r.client.Ping(r.ctx).Err()
}

// QueryKey builds a stable cache key for a just-listed query from its
// cities, pagination, and filter.
func QueryKey(cities []string, page, pageSize int, f *database.Filter) string {
	payload, _ := json.Marshal(struct {
		Cities   []string         `json:"cities"`
		Page     int              `json:"page"`
		PageSize int              `json:"page_size"`
		Filter   *database.Filter `json:"filter"`
	}{cities, page, pageSize, f})

	sum := sha1.Sum(payload)
	return "just_listed:" + hex.EncodeToString(sum[:])
}

// CacheJustListed stores a query result page for a short TTL.
func (r *RedisCache) CacheJustListed(key string, page *database.JustListedPage) error {
	data, err := json.Marshal(page)
	if err != nil {
		return err
	}

	return r.client.Set(r.ctx, key, data, queryTTL).Err()
}

// GetCachedJustListed returns a cached page, or false when not present.
// Cache errors degrade to a miss: the database is the source of truth.
func (r *RedisCache) GetCachedJustListed(key string) (*database.JustListedPage, bool) {
	data, err := r.client.Get(r.ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		return nil, false
	}

	var page database.JustListedPage
	if err := json.Unmarshal([]byte(data), &page); err != nil {
		return nil, false
	}

	return &page, true
}

// CanScrapeCity rate-limits scrape triggers: at most one run per city per
// window.
func (r *RedisCache) CanScrapeCity(city string, window time.Duration) bool {
	key := fmt.Sprintf("rate_limit:scrape:%s", city)
	count := r.client.Incr(r.ctx, key).Val()
	if count == 1 {
		r.client.Expire(r.ctx, key, window)
	}
	return count == 1
}
