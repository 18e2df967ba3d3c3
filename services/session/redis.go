package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisStore keeps sessions in Redis with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a store whose keys are prefix+id.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

func (s *RedisStore) Create(ctx context.Context, id string, v any) error {
	data, err := encode(v, 1)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(id), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists", id)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string, v any) (int64, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load session: %w", err)
	}
	version, err := decode(raw, v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse session: %w", err)
	}
	return version, nil
}

// Save writes v if the stored version still equals version (WATCH/MULTI).
func (s *RedisStore) Save(ctx context.Context, id string, v any, version int64) (int64, error) {
	key := s.key(id)
	next := version + 1
	data, err := encode(v, next)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal session: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var current envelope
		if err := json.Unmarshal(raw, &current); err != nil {
			return err
		}
		if current.Version != version {
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, redis.TxFailedErr):
		return 0, ErrConflict
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return 0, err
	default:
		return 0, fmt.Errorf("failed to update session in cache: %w", err)
	}
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// unlockScript deletes the lock only if it still carries our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *RedisStore) Lock(ctx context.Context, id string, ttl time.Duration) (func(), error) {
	key := s.key(id) + ":lock"
	token := uuid.New().String()
	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to take session lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		_ = unlockScript.Run(context.WithoutCancel(ctx), s.client, []string{key}, token).Err()
	}, nil
}
