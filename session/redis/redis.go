package redis_session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/orchestra/config"
	"github.com/mohammad-safakhou/orchestra/session"
)

// Store keeps sessions as JSON values in redis, with idle eviction
// delegated to key expiry. Suitable for multi-replica deployments where
// the in-memory store would fragment conversations.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redis and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{client: client, ttl: ttl}, nil
}

// NewWithClient wraps an existing client, mainly for tests.
func NewWithClient(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func (s *Store) GetOrCreate(ctx context.Context, id string) (*session.Session, error) {
	if id != "" {
		sess, ok, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			return sess, nil
		}
	} else {
		id = uuid.NewString()
	}
	sess := &session.Session{ID: id, LastTouched: time.Now()}
	if err := s.Put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, id string) (*session.Session, bool, error) {
	val, err := s.client.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var sess session.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, false, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, true, nil
}

func (s *Store) Put(ctx context.Context, sess *session.Session) error {
	sess.LastTouched = time.Now()
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Evict is a no-op: redis key expiry handles idle sessions.
func (s *Store) Evict(time.Time) int { return 0 }
