// Package redisstore keeps relation records in Redis sorted sets, one set per
// user and kind, scored by relation time in Unix milliseconds.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/store"
)

// DefaultKeyPrefix namespaces every key this store writes.
const DefaultKeyPrefix = "talespring:rel:"

// Store implements store.RelationStore on Redis.
type Store struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

var _ store.RelationBackend = (*Store)(nil)

// Open connects using a redis:// URL and verifies the connection.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	s := New(redis.NewClient(opts), DefaultKeyPrefix, logger)
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing client.
func New(client *redis.Client, prefix string, logger *slog.Logger) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix, logger: logger}
}

func (s *Store) setKey(userID string, kind domain.RelationKind) string {
	return s.prefix + userID + ":" + string(kind)
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return store.Unavailable("redis: ping", err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// RelationExists checks set membership.
func (s *Store) RelationExists(ctx context.Context, key domain.RelationKey) (bool, error) {
	err := s.client.ZScore(ctx, s.setKey(key.UserID, key.Kind), key.ContentID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, store.Unavailable("redis: relation exists", err)
	}
	return true, nil
}

// AddRelation uses ZADD NX, so an existing member keeps its original score.
func (s *Store) AddRelation(ctx context.Context, key domain.RelationKey, at time.Time) error {
	err := s.client.ZAddNX(ctx, s.setKey(key.UserID, key.Kind), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: key.ContentID,
	}).Err()
	if err != nil {
		return store.Unavailable("redis: add relation", err)
	}
	return nil
}

// RemoveRelation removes the member; ZREM of a missing member is a no-op.
func (s *Store) RemoveRelation(ctx context.Context, key domain.RelationKey) error {
	if err := s.client.ZRem(ctx, s.setKey(key.UserID, key.Kind), key.ContentID).Err(); err != nil {
		return store.Unavailable("redis: remove relation", err)
	}
	return nil
}

// ListRelatedContentIDs returns members highest score first.
func (s *Store) ListRelatedContentIDs(ctx context.Context, userID string, kind domain.RelationKind) ([]string, error) {
	ids, err := s.client.ZRevRange(ctx, s.setKey(userID, kind), 0, -1).Result()
	if err != nil {
		return nil, store.Unavailable("redis: list relations", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
