package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/poiesic/rentmatch/core"
	"github.com/poiesic/rentmatch/storage"
)

const (
	RedisKeyPrefix  = "embedding:"
	DefaultRedisTTL = 24 * time.Hour

	scanPageSize = 100
)

// redisRecord is the JSON form of a record in Redis.
type redisRecord struct {
	Model       string           `json:"model"`
	Fingerprint core.Fingerprint `json:"fingerprint"`
	Vector      []float32        `json:"vector"`
}

// Redis is a storage.EmbeddingRepository over a Redis server.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ storage.EmbeddingRepository = (*Redis)(nil)

// NewRedis wraps client. Records expire after ttl; zero selects DefaultRedisTTL.
// The store takes ownership of client and closes it on Close.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// DialRedis connects to addr and verifies the server answers.
func DialRedis(ctx context.Context, addr, password string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return NewRedis(client, ttl), nil
}

func redisKey(key string) string {
	return RedisKeyPrefix + key
}

// GetEmbedding returns the record or nil when Redis has no such key.
func (r *Redis) GetEmbedding(ctx context.Context, key string) (*storage.EmbeddingRecord, error) {
	data, err := r.client.Get(ctx, redisKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get embedding from cache: %w", err)
	}

	var rec redisRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return &storage.EmbeddingRecord{
		Model:       rec.Model,
		Fingerprint: rec.Fingerprint,
		Vector:      rec.Vector,
	}, nil
}

// PutEmbedding stores record with the configured TTL.
func (r *Redis) PutEmbedding(ctx context.Context, key string, record *storage.EmbeddingRecord) error {
	data, err := json.Marshal(redisRecord{
		Model:       record.Model,
		Fingerprint: record.Fingerprint,
		Vector:      record.Vector,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return r.client.Set(ctx, redisKey(key), string(data), r.ttl).Err()
}

// DeleteEmbeddings removes keys in a single DEL.
func (r *Redis) DeleteEmbeddings(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = redisKey(key)
	}
	return r.client.Del(ctx, full...).Err()
}

// DeleteEmbeddingPrefix walks matching keys with SCAN and deletes each page.
func (r *Redis) DeleteEmbeddingPrefix(ctx context.Context, prefix string) error {
	match := redisKey(prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, match, scanPageSize).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
