package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const draftKeyPrefix = "storefront:checkout:"

// redisStore keeps drafts as JSON strings with a TTL.
type redisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisClient opens a client and verifies connectivity.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewRedisStore creates a Redis-backed draft store.
func NewRedisStore(client *redis.Client, logger zerolog.Logger) DraftStore {
	return &redisStore{
		client: client,
		logger: logger.With().Str("component", "draft_store").Str("backend", "redis").Logger(),
	}
}

func (s *redisStore) Save(ctx context.Context, key string, details model.CheckoutDetails, ttl time.Duration) error {
	body, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode checkout draft: %w", err)
	}

	if err := s.client.Set(ctx, draftKeyPrefix+key, body, ttl).Err(); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to save checkout draft")
		return fmt.Errorf("failed to save checkout draft: %w", err)
	}
	return nil
}

func (s *redisStore) Load(ctx context.Context, key string) (*model.CheckoutDetails, error) {
	body, err := s.client.Get(ctx, draftKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		s.logger.Error().Err(err).Str("key", key).Msg("failed to load checkout draft")
		return nil, fmt.Errorf("failed to load checkout draft: %w", err)
	}

	var details model.CheckoutDetails
	if err := json.Unmarshal(body, &details); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding unreadable checkout draft")
		return nil, nil
	}
	return &details, nil
}

func (s *redisStore) Discard(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, draftKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to discard checkout draft: %w", err)
	}
	return nil
}
