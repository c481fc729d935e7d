package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/langganan-pricing/internal/pricing"
)

const cachePrefix = "pricing:"

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// DeletePrefix removes every key starting with prefix.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	if c == nil || c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// CachedSource serves pricing tables from Redis and falls back to the
// wrapped source on a miss. Cache errors never fail a read.
type CachedSource struct {
	Next   Source
	Cache  *Cache
	Logger zerolog.Logger
}

func keyDiscounts(packageID string) string {
	return cachePrefix + "discounts:" + strings.TrimSpace(packageID)
}

func keyLegacyPlans() string { return cachePrefix + "legacy_plans" }

func keyBasePrices(domain, packageID string) string {
	return cachePrefix + "base:" + DomainExtension(domain) + ":" + strings.TrimSpace(packageID)
}

func keyAddOns(scope Scope) string { return cachePrefix + "addons:" + string(scope) }

// DurationDiscounts implements Source.
func (s CachedSource) DurationDiscounts(ctx context.Context, packageID string) ([]pricing.DurationDiscountRow, error) {
	return cached(ctx, s, keyDiscounts(packageID), func() ([]pricing.DurationDiscountRow, error) {
		return s.Next.DurationDiscounts(ctx, packageID)
	})
}

// LegacyPlans implements Source.
func (s CachedSource) LegacyPlans(ctx context.Context) ([]pricing.LegacyPlanRow, error) {
	return cached(ctx, s, keyLegacyPlans(), func() ([]pricing.LegacyPlanRow, error) {
		return s.Next.LegacyPlans(ctx)
	})
}

// BasePrices implements Source.
func (s CachedSource) BasePrices(ctx context.Context, domain, packageID string) (pricing.BasePrices, error) {
	return cached(ctx, s, keyBasePrices(domain, packageID), func() (pricing.BasePrices, error) {
		return s.Next.BasePrices(ctx, domain, packageID)
	})
}

// AddOns implements Source.
func (s CachedSource) AddOns(ctx context.Context, scope Scope) ([]pricing.AddOn, error) {
	return cached(ctx, s, keyAddOns(scope), func() ([]pricing.AddOn, error) {
		return s.Next.AddOns(ctx, scope)
	})
}

// Invalidate drops every cached pricing table, e.g. after prices are published.
func (s CachedSource) Invalidate(ctx context.Context) error {
	return s.Cache.DeletePrefix(ctx, cachePrefix)
}

func cached[T any](ctx context.Context, s CachedSource, key string, load func() (T, error)) (T, error) {
	var out T
	if s.Next == nil {
		return out, errors.New("catalog: source not configured")
	}
	if ok, err := s.Cache.GetJSON(ctx, key, &out); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("pricing cache read")
	} else if ok {
		return out, nil
	}
	out, err := load()
	if err != nil {
		return out, err
	}
	if err := s.Cache.SetJSON(ctx, key, out); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("pricing cache write")
	}
	return out, nil
}
