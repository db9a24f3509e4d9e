package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/KanavDutta/cmdcooldown/pkg/cooldown"
)

// keyPrefix namespaces every key this store writes
const keyPrefix = "cmdcooldown:config:"

// RedisStore keeps guild configs in Redis as ordered JSON objects
type RedisStore struct {
	client *redis.Client
}

// Ensure RedisStore implements Store interface
var _ Store = (*RedisStore)(nil)

// RedisConfig for creating a Redis store
type RedisConfig struct {
	Addr     string // Redis address (e.g., "localhost:6379")
	Password string // Redis password (empty for no auth)
	DB       int    // Redis database number
}

// NewRedisStore creates a new Redis-backed store
func NewRedisStore(config RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	return NewRedisStoreFromClient(client)
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get retrieves the config for a given guild
func (s *RedisStore) Get(ctx context.Context, guildID string) (cooldown.ConfigSpec, error) {
	val, err := s.client.Get(ctx, keyPrefix+guildID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cooldown.ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", guildID, err)
	}

	var spec cooldown.ConfigSpec
	if err := json.Unmarshal(val, &spec); err != nil {
		return nil, fmt.Errorf("decode config for guild %s: %w", guildID, err)
	}
	return spec, nil
}

// Set stores the config for a given guild. Configs do not expire.
func (s *RedisStore) Set(ctx context.Context, guildID string, spec cooldown.ConfigSpec) error {
	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encode config for guild %s: %w", guildID, err)
	}
	if err := s.client.Set(ctx, keyPrefix+guildID, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", guildID, err)
	}
	return nil
}

// Delete removes the config for a given guild
func (s *RedisStore) Delete(ctx context.Context, guildID string) error {
	return s.client.Del(ctx, keyPrefix+guildID).Err()
}

// Guilds lists the guild ids that have a stored config
func (s *RedisStore) Guilds(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(keyPrefix):])
	}
	return ids, iter.Err()
}

// Ping checks if Redis connection is alive
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
