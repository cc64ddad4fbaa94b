package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgraph/pkg/errors"
	moltypes "github.com/turtacn/molgraph/pkg/types/molecule"
)

var (
	ErrCacheMiss           = errors.New(errors.ErrCodeNotFound, "cache miss")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "serialization failed")
)

// GraphCache stores featurized graphs as JSON under a key prefix.
// Concurrent loads of the same key share one build.
type GraphCache struct {
	client     *Client
	logger     logging.Logger
	prefix     string
	defaultTTL time.Duration
	jitter     bool
	group      singleflight.Group
}

type CacheOption func(*GraphCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *GraphCache) { c.prefix = prefix }
}

// WithDefaultTTL sets the expiry of stored graphs; 0 keeps them forever.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *GraphCache) { c.defaultTTL = ttl }
}

// WithTTLJitter spreads expiries by +/-10% so a bulk load does not expire at
// once.
func WithTTLJitter(enabled bool) CacheOption {
	return func(c *GraphCache) { c.jitter = enabled }
}

func NewGraphCache(client *Client, log logging.Logger, opts ...CacheOption) *GraphCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &GraphCache{
		client:     client,
		logger:     log,
		prefix:     "molgraph:",
		defaultTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *GraphCache) fullKey(key string) string {
	return c.prefix + key
}

func (c *GraphCache) ttl() time.Duration {
	if c.defaultTTL <= 0 || !c.jitter {
		return c.defaultTTL
	}
	j := float64(c.defaultTTL) * 0.1 * (rand.Float64()*2 - 1)
	return c.defaultTTL + time.Duration(j)
}

// Get returns ErrCacheMiss when key is absent.
func (c *GraphCache) Get(ctx context.Context, key string) (*moltypes.MoleculeGraph, error) {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
	}
	var g moltypes.MoleculeGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, ErrSerializationFailed.WithCause(err)
	}
	return &g, nil
}

func (c *GraphCache) Set(ctx context.Context, key string, g *moltypes.MoleculeGraph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	if err := c.client.Set(ctx, c.fullKey(key), data, c.ttl()).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to set cache")
	}
	return nil
}

func (c *GraphCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete from cache")
	}
	return nil
}

// GetOrBuild returns the cached graph for key, or runs build once for all
// concurrent callers and stores its result. hit reports whether the graph came
// from the cache. Build errors are returned untouched and never cached; a
// failed store is logged and the built graph is still returned.
func (c *GraphCache) GetOrBuild(ctx context.Context, key string, build func(ctx context.Context) (*moltypes.MoleculeGraph, error)) (*moltypes.MoleculeGraph, bool, error) {
	g, err := c.Get(ctx, key)
	if err == nil {
		return g, true, nil
	}
	if !errors.IsCode(err, errors.ErrCodeNotFound) {
		c.logger.Warn("graph cache read failed", logging.String("key", key), logging.Err(err))
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		built, buildErr := build(ctx)
		if buildErr != nil {
			return nil, buildErr
		}
		if setErr := c.Set(ctx, key, built); setErr != nil {
			c.logger.Warn("graph cache write failed", logging.String("key", key), logging.Err(setErr))
		}
		return built, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*moltypes.MoleculeGraph), false, nil
}

// DeleteByPrefix removes every cached key starting with prefix (relative to
// the cache prefix) and returns how many were deleted.
func (c *GraphCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	match := c.fullKey(prefix) + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 500).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to scan cache")
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete from cache")
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Info("graph cache purged", logging.String("prefix", prefix), logging.Int64("deleted", deleted))
	return deleted, nil
}

func (c *GraphCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}
