package contracts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResolverPort is the resolution contract the cache wraps.
type ResolverPort interface {
	Resolve(ctx context.Context, supplierID int64, asOf time.Time) (*Contract, error)
}

// CachedResolver memoises resolutions per supplier and day in Redis.
// Contracts change rarely; a short TTL keeps linking fresh enough while
// sparing the listing query on every order. A nil client degrades to the
// plain resolver.
type CachedResolver struct {
	inner  ResolverPort
	client *redis.Client
	ttl    time.Duration
}

// NewCachedResolver wraps a resolver with a Redis cache.
func NewCachedResolver(inner ResolverPort, client *redis.Client, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedResolver{inner: inner, client: client, ttl: ttl}
}

// cachedResolution distinguishes a cached "no contract" from a cache miss.
type cachedResolution struct {
	Found    bool      `json:"found"`
	Contract *Contract `json:"contract,omitempty"`
}

// Resolve answers from cache when possible. Cache failures fall through to
// the inner resolver; resolution never breaks because Redis is down.
func (r *CachedResolver) Resolve(ctx context.Context, supplierID int64, asOf time.Time) (*Contract, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	if r.client == nil {
		return r.inner.Resolve(ctx, supplierID, asOf)
	}
	key := fmt.Sprintf("contracts:resolve:%d:%s", supplierID, asOf.Format("2006-01-02"))

	raw, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached cachedResolution
		if json.Unmarshal(raw, &cached) == nil {
			if !cached.Found {
				return nil, nil
			}
			return cached.Contract, nil
		}
	}

	contract, err := r.inner.Resolve(ctx, supplierID, asOf)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(cachedResolution{Found: contract != nil, Contract: contract}); err == nil {
		_ = r.client.Set(ctx, key, data, r.ttl).Err()
	}
	return contract, nil
}

// Invalidate drops every cached resolution for a supplier, for use after a
// contract import or status change.
func (r *CachedResolver) Invalidate(ctx context.Context, supplierID int64) error {
	if r.client == nil {
		return nil
	}
	pattern := fmt.Sprintf("contracts:resolve:%d:*", supplierID)
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
