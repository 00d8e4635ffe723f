package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/amirphl/lurewatch/logger"
	"github.com/amirphl/lurewatch/models"
)

// LocationCache stores resolved locations keyed by IP
type LocationCache interface {
	Get(ctx context.Context, ip string) (models.LocationInfo, bool, error)
	Set(ctx context.Context, ip string, loc models.LocationInfo, ttl time.Duration) error
}

// CachedResolver serves repeat lookups from a LocationCache
// Only successful lookups are cached, so a transient provider failure is retried on the next visit
type CachedResolver struct {
	inner Resolver
	cache LocationCache
	ttl   time.Duration
}

func NewCachedResolver(inner Resolver, cache LocationCache, ttl time.Duration) *CachedResolver {
	return &CachedResolver{inner: inner, cache: cache, ttl: ttl}
}

func (r *CachedResolver) Resolve(ctx context.Context, ip string) models.LocationInfo {
	if IsLoopback(ip) {
		return r.inner.Resolve(ctx, ip)
	}

	log := logger.FromContext(ctx)
	if loc, ok, err := r.cache.Get(ctx, ip); err != nil {
		log.Warn("geolocation cache read failed", zap.String("ip", ip), zap.Error(err))
	} else if ok {
		geolocationLookups.WithLabelValues("cached").Inc()
		return loc
	}

	loc := r.inner.Resolve(ctx, ip)
	if loc.Failed() {
		return loc
	}
	if err := r.cache.Set(ctx, ip, loc, r.ttl); err != nil {
		log.Warn("geolocation cache write failed", zap.String("ip", ip), zap.Error(err))
	}
	return loc
}

// RedisLocationCache keeps entries as JSON strings under prefix+"geo:"+ip
type RedisLocationCache struct {
	client *redis.Client
	prefix string
}

func NewRedisLocationCache(client *redis.Client, prefix string) *RedisLocationCache {
	return &RedisLocationCache{client: client, prefix: prefix}
}

func (c *RedisLocationCache) key(ip string) string { return c.prefix + "geo:" + ip }

func (c *RedisLocationCache) Get(ctx context.Context, ip string) (models.LocationInfo, bool, error) {
	raw, err := c.client.Get(ctx, c.key(ip)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.LocationInfo{}, false, nil
	}
	if err != nil {
		return models.LocationInfo{}, false, err
	}
	var loc models.LocationInfo
	if err := json.Unmarshal(raw, &loc); err != nil {
		return models.LocationInfo{}, false, err
	}
	return loc, true, nil
}

func (c *RedisLocationCache) Set(ctx context.Context, ip string, loc models.LocationInfo, ttl time.Duration) error {
	raw, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(ip), raw, ttl).Err()
}

type memoryEntry struct {
	loc       models.LocationInfo
	expiresAt time.Time
}

// MemoryLocationCache is the in-process fallback used when Redis is not configured
// Expired entries are dropped lazily on read
type MemoryLocationCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryLocationCache() *MemoryLocationCache {
	return &MemoryLocationCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryLocationCache) Get(_ context.Context, ip string) (models.LocationInfo, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[ip]
	if !ok {
		return models.LocationInfo{}, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, ip)
		return models.LocationInfo{}, false, nil
	}
	return e.loc, true, nil
}

func (c *MemoryLocationCache) Set(_ context.Context, ip string, loc models.LocationInfo, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[ip] = memoryEntry{loc: loc, expiresAt: c.now().Add(ttl)}
	return nil
}
