// Package cache keeps recently used document snapshots in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"beskar/editor/internal/store"
)

// ErrMiss is returned when no snapshot is cached for a document.
var ErrMiss = errors.New("cache miss")

const defaultTTL = 10 * time.Minute

// snapshot is the cached form of a document
type snapshot struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content"`
	Version   int             `json:"version"`
	UpdatedBy string          `json:"updated_by"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RedisCache stores document snapshots under doc:<id>
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to redisURL. A ttl of zero uses the default.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{client: client, prefix: "doc:", ttl: ttl}
}

func (c *RedisCache) key(documentID string) string {
	return c.prefix + documentID
}

// Put caches item, replacing an older snapshot. A snapshot with a lower
// version than the cached one is ignored.
func (c *RedisCache) Put(ctx context.Context, item store.Document) error {
	if cached, err := c.Get(ctx, item.ID); err == nil && cached.Version > item.Version {
		return nil
	}
	data, err := json.Marshal(snapshot{
		ID:        item.ID,
		Title:     item.Title,
		Content:   item.Content,
		Version:   item.Version,
		UpdatedBy: item.UpdatedBy,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key(item.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache document %s: %w", item.ID, err)
	}
	return nil
}

// Get returns the cached snapshot or ErrMiss.
func (c *RedisCache) Get(ctx context.Context, documentID string) (store.Document, error) {
	raw, err := c.client.Get(ctx, c.key(documentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return store.Document{}, ErrMiss
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("lookup document %s: %w", documentID, err)
	}

	var s snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return store.Document{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return store.Document{
		ID:        s.ID,
		Title:     s.Title,
		Content:   s.Content,
		Version:   s.Version,
		UpdatedBy: s.UpdatedBy,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}, nil
}

// Invalidate drops the snapshot of a document.
func (c *RedisCache) Invalidate(ctx context.Context, documentID string) error {
	if err := c.client.Del(ctx, c.key(documentID)).Err(); err != nil {
		return fmt.Errorf("invalidate document %s: %w", documentID, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
