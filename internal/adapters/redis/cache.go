package redisad

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"wanderbook/internal/adapters/observability"
	"wanderbook/internal/domain"
)

// Cache implements domain.HotelCache on Redis; expiry is the key TTL.
type Cache struct{ c *redis.Client }

func New(addr, pass string, db int) *Cache {
	return &Cache{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func NewWithClient(c *redis.Client) *Cache { return &Cache{c: c} }

func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) Close() error { return r.c.Close() }

func searchKey(k domain.SearchKey) string { return "search:" + k.String() }

func detailKey(id int64) string { return "hotel:" + strconv.FormatInt(id, 10) }

func (r *Cache) GetSearch(ctx context.Context, key domain.SearchKey) ([]domain.Hotel, bool, error) {
	var hotels []domain.Hotel
	ok, err := r.get(ctx, searchKey(key), &hotels)
	if err != nil || !ok {
		return nil, false, err
	}
	return hotels, true, nil
}

func (r *Cache) PutSearch(ctx context.Context, key domain.SearchKey, hotels []domain.Hotel, ttl time.Duration) error {
	return r.set(ctx, searchKey(key), hotels, ttl)
}

func (r *Cache) GetDetail(ctx context.Context, id int64) (domain.Hotel, bool, error) {
	var h domain.Hotel
	ok, err := r.get(ctx, detailKey(id), &h)
	if err != nil || !ok {
		return domain.Hotel{}, false, err
	}
	return h, true, nil
}

func (r *Cache) PutDetail(ctx context.Context, id int64, h domain.Hotel, ttl time.Duration) error {
	return r.set(ctx, detailKey(id), h, ttl)
}

func (r *Cache) get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		observability.ObserveCache("redis", "error")
		return false, errors.Wrapf(err, "redis get %s", key)
	}
	if err := json.Unmarshal(v, dst); err != nil {
		// treat an undecodable entry as a miss; the next put overwrites it
		observability.ObserveCache("redis", "error")
		return false, nil
	}
	observability.ObserveCache("redis", "hit")
	return true, nil
}

func (r *Cache) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode cache entry")
	}
	observability.ObserveCache("redis", "set")
	return errors.Wrapf(r.c.Set(ctx, key, b, ttl).Err(), "redis set %s", key)
}
