package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store 会话存储（单元测试中可替换）
type Store interface {
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	// LookupBackendSession 通过后端 sessionId 找到门户会话 ID
	LookupBackendSession(ctx context.Context, backendSessionID string) (string, error)
}

// RedisStore 基于 go-redis 的会话存储
// 键：{prefix}{id} → Session JSON；{prefix}backend:{backendSessionId} → id
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 创建存储
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "doctor-portal:session:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(id string) string { return r.prefix + id }

func (r *RedisStore) backendKey(backendSessionID string) string {
	return r.prefix + "backend:" + backendSessionID
}

func (r *RedisStore) Save(ctx context.Context, s *Session, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("session %s has no remaining ttl", s.ID)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(s.ID), raw, ttl)
	if s.BackendSessionID != "" {
		pipe.Set(ctx, r.backendKey(s.BackendSessionID), s.ID, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	s, err := r.Load(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	keys := []string{r.key(id)}
	if s != nil && s.BackendSessionID != "" {
		keys = append(keys, r.backendKey(s.BackendSessionID))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) LookupBackendSession(ctx context.Context, backendSessionID string) (string, error) {
	id, err := r.client.Get(ctx, r.backendKey(backendSessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to lookup backend session: %w", err)
	}
	return id, nil
}
