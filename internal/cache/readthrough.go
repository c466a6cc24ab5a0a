package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"roomsync-backend/internal/logger"
)

// Cache is a read-through JSON cache over KV. Backend failures degrade to
// loading from the source of truth; they never fail the read.
type Cache struct {
	kv        KV
	ttl       time.Duration
	opTimeout time.Duration
}

func New(kv KV, ttl, opTimeout time.Duration) *Cache {
	return &Cache{kv: kv, ttl: ttl, opTimeout: opTimeout}
}

type envelope struct {
	Gen  int64           `json:"gen"`
	Data json.RawMessage `json:"data"`
}

// ReadThrough returns the cached value for key when it was stored under the
// current value of genKey, and otherwise loads, stores and returns it.
func ReadThrough[T any](ctx context.Context, c *Cache, key, genKey string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return load(ctx)
	}

	gen, cached, ok := c.lookup(ctx, key, genKey)
	if ok {
		var v T
		if err := json.Unmarshal(cached.Data, &v); err == nil {
			return v, nil
		}
	}

	v, err := load(ctx)
	if err != nil {
		return zero, err
	}
	c.store(ctx, key, gen, v)
	return v, nil
}

func (c *Cache) lookup(ctx context.Context, key, genKey string) (int64, envelope, bool) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	logger.CacheCall("MGET", key, genKey)
	vals, err := c.kv.MGet(opCtx, key, genKey)
	if err != nil {
		logger.CacheResult("MGET", err, "key", key)
		return 0, envelope{}, false
	}

	var gen int64
	if vals[1] != nil {
		gen, _ = strconv.ParseInt(*vals[1], 10, 64)
	}
	if vals[0] == nil {
		return gen, envelope{}, false
	}
	var env envelope
	if err := json.Unmarshal([]byte(*vals[0]), &env); err != nil || env.Gen != gen {
		return gen, envelope{}, false
	}
	return gen, env, true
}

func (c *Cache) store(ctx context.Context, key string, gen int64, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.CacheResult("SET", err, "key", key)
		return
	}
	raw, err := json.Marshal(envelope{Gen: gen, Data: data})
	if err != nil {
		logger.CacheResult("SET", err, "key", key)
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	logger.CacheCall("SET", key)
	err = c.kv.Set(opCtx, key, string(raw), c.ttl)
	logger.CacheResult("SET", err, "key", key)
}
