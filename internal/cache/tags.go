// Package cache keeps the tag catalog in Redis between writes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/redis/go-redis/v9"
	"github.com/siahsang/kiterunner/internal/config"
)

const (
	tagsKey       = "tags:all"
	generationKey = "tags:generation"
)

var errStaleGeneration = xerrors.Message("tag cache generation changed")

// NewClient returns a Redis client for cfg, or nil when no address is configured.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return xerrors.Newf("redis ping failed: %w", err)
	}
	return nil
}

// TagCache stores the ordered tag labels as one JSON value with a TTL. A
// counter under generationKey is bumped on every invalidation; writes carry
// the generation their read observed and are dropped once it moved on.
type TagCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTagCache(client *redis.Client, ttl time.Duration) *TagCache {
	return &TagCache{client: client, ttl: ttl}
}

func (c *TagCache) Get(ctx context.Context) ([]string, int64, bool, error) {
	values, err := c.client.MGet(ctx, tagsKey, generationKey).Result()
	if err != nil {
		return nil, 0, false, xerrors.New(err)
	}

	generation, err := parseGeneration(values[1])
	if err != nil {
		return nil, 0, false, err
	}

	raw, ok := values[0].(string)
	if !ok {
		return nil, generation, false, nil
	}

	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil, generation, false, xerrors.Newf("decode cached tags: %w", err)
	}
	if labels == nil {
		labels = []string{}
	}
	return labels, generation, true, nil
}

// Set stores labels when generation is still the current one and silently
// skips the write otherwise.
func (c *TagCache) Set(ctx context.Context, generation int64, labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	raw, err := json.Marshal(labels)
	if err != nil {
		return xerrors.New(err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, tagsKey, raw, c.ttl)
			return nil
		})
		return err
	}, generationKey)

	switch {
	case err == nil, errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return nil
	default:
		return xerrors.New(err)
	}
}

func (c *TagCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, tagsKey)
		return nil
	})
	if err != nil {
		return xerrors.New(err)
	}
	return nil
}

func parseGeneration(value any) (int64, error) {
	raw, ok := value.(string)
	if !ok {
		return 0, nil
	}
	generation, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, xerrors.Newf("decode tag cache generation: %w", err)
	}
	return generation, nil
}
