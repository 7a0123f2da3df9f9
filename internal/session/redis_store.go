package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis with per-key expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed session store
func NewRedisStore(redisURL string) (*RedisStore, error) {
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
	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "helpcenter:"}
}

func (s *RedisStore) refreshKey(tokenHash string) string { return s.prefix + "refresh:" + tokenHash }
func (s *RedisStore) revokedKey(jti string) string       { return s.prefix + "revoked:" + jti }
func (s *RedisStore) editKey(id string) string           { return s.prefix + "edit:" + id }

func (s *RedisStore) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.client.Set(ctx, key, payload, ttl).Err()
}

func (s *RedisStore) getJSON(ctx context.Context, key string, v any) error {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, v)
}

// SaveRefreshSession stores a refresh token until expiresAt.
func (s *RedisStore) SaveRefreshSession(ctx context.Context, tokenHash string, data TokenData, expiresAt time.Time) error {
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now().UTC()
	}
	if err := s.setJSON(ctx, s.refreshKey(tokenHash), data, refreshTTL(expiresAt)); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// LookupRefreshSession returns the token data, or ErrNotFound.
func (s *RedisStore) LookupRefreshSession(ctx context.Context, tokenHash string) (TokenData, error) {
	var data TokenData
	if err := s.getJSON(ctx, s.refreshKey(tokenHash), &data); err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenData{}, err
		}
		return TokenData{}, fmt.Errorf("lookup refresh token: %w", err)
	}
	if data.Role == "" {
		data.Role = "viewer"
	}
	return data, nil
}

// RevokeRefreshSession deletes a refresh token
func (s *RedisStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, s.refreshKey(tokenHash)).Err(); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAccessToken denylists a token id until it would have expired anyway.
func (s *RedisStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	ttl := time.Until(exp)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.revokedKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *RedisStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.revokedKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// SaveEdit checkpoints an editing session and resets its expiry.
func (s *RedisStore) SaveEdit(ctx context.Context, cp EditCheckpoint, ttl time.Duration) error {
	if err := s.setJSON(ctx, s.editKey(cp.ID), cp, ttl); err != nil {
		return fmt.Errorf("save edit session: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadEdit(ctx context.Context, id string) (EditCheckpoint, error) {
	var cp EditCheckpoint
	if err := s.getJSON(ctx, s.editKey(id), &cp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return EditCheckpoint{}, err
		}
		return EditCheckpoint{}, fmt.Errorf("load edit session: %w", err)
	}
	return cp, nil
}

func (s *RedisStore) DeleteEdit(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.editKey(id)).Err(); err != nil {
		return fmt.Errorf("delete edit session: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
