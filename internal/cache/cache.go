package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utakatalp/krach-ranker/internal/league"
)

const keyPrefix = "krach:rankings:"

// Entry is what gets cached for a division.
type Entry struct {
	RunID      string            `json:"run_id"`
	Iterations int               `json:"iterations"`
	Converged  bool              `json:"converged"`
	Standings  []league.Standing `json:"standings"`
}

// RankingCache keeps the latest standings of each division in Redis.
type RankingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient creates the Redis client used by the cache.
func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  30 * time.Second,
	})
}

func New(client *redis.Client, ttl time.Duration) *RankingCache {
	return &RankingCache{client: client, ttl: ttl}
}

func key(division string) string {
	return keyPrefix + division
}

// Get returns the cached entry. ok is false on a miss.
func (c *RankingCache) Get(ctx context.Context, division string) (*Entry, bool, error) {
	raw, err := c.client.Get(ctx, key(division)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache for %s: %w", division, err)
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, false, fmt.Errorf("decoding cache for %s: %w", division, err)
	}
	return &e, true, nil
}

func (c *RankingCache) Set(ctx context.Context, division string, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := c.client.Set(ctx, key(division), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing cache for %s: %w", division, err)
	}
	return nil
}

func (c *RankingCache) Invalidate(ctx context.Context, division string) error {
	if err := c.client.Del(ctx, key(division)).Err(); err != nil {
		return fmt.Errorf("invalidating cache for %s: %w", division, err)
	}
	return nil
}
