package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/getbastion/bastion/domain"
	"github.com/getbastion/bastion/identity"
)

// RedisStore implements domain.SessionStorage on Redis for distributed
// deployments. Entries expire with the session, so no sweeper is needed.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-based session store.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "bastion:session:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) CreateSession(sess *identity.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis session: marshal failed: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("redis session: session already expired")
	}

	if err := s.client.Set(context.Background(), s.key(sess.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis session: set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) GetSession(id string) (*identity.Session, error) {
	raw, err := s.client.Get(context.Background(), s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis session: get failed: %w", err)
	}

	var sess identity.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("redis session: unmarshal failed: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) DeleteSession(id string) error {
	if err := s.client.Del(context.Background(), s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis session: delete failed: %w", err)
	}
	return nil
}
