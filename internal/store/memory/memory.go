// Package memory is an in-process store backend for development and tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/store"
)

type relation struct {
	createdAt time.Time
	seq       uint64
}

// Store keeps content and relations in maps guarded by one RWMutex.
type Store struct {
	mu        sync.RWMutex
	content   map[string]*domain.ContentItem
	relations map[domain.RelationKey]relation
	seq       uint64
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		content:   make(map[string]*domain.ContentItem),
		relations: make(map[domain.RelationKey]relation),
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// GetContent returns a copy of the item.
func (s *Store) GetContent(ctx context.Context, id string) (*domain.ContentItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.content[id]
	if !ok {
		return nil, store.ErrContentNotFound
	}
	c := *item
	return &c, nil
}

// ListContent scans every item; fine for the sizes this backend is meant for.
func (s *Store) ListContent(ctx context.Context, filter store.ListFilter) ([]*domain.ContentItem, error) {
	return s.collect(ctx, store.PageSize, filter.Matches)
}

// ListContentByAuthor returns every item by authorID.
func (s *Store) ListContentByAuthor(ctx context.Context, authorID string) ([]*domain.ContentItem, error) {
	return s.collect(ctx, 0, func(item *domain.ContentItem) bool {
		return item.AuthorID == authorID
	})
}

func (s *Store) collect(ctx context.Context, limit int, keep func(*domain.ContentItem) bool) ([]*domain.ContentItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*domain.ContentItem, 0)
	for _, item := range s.content {
		if keep(item) {
			c := *item
			out = append(out, &c)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *domain.ContentItem) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateContent stores a copy of item. Ids must be unique.
func (s *Store) CreateContent(ctx context.Context, item *domain.ContentItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.content[item.ID]; exists {
		return store.ErrAlreadyExists.WithMessage("content id already exists")
	}
	c := *item
	s.content[item.ID] = &c
	return nil
}

// IncrementReadCount bumps the counter under the write lock.
func (s *Store) IncrementReadCount(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.content[id]
	if !ok {
		return store.ErrContentNotFound
	}
	item.ReadCount++
	return nil
}

// DeleteContent removes an item without touching relations that point at it.
// Deletion belongs to the authoring side; this exists for seeding and tests.
func (s *Store) DeleteContent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.content, id)
	return nil
}

// RelationExists reports whether the record exists.
func (s *Store) RelationExists(ctx context.Context, key domain.RelationKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.relations[key]
	return ok, nil
}

// AddRelation inserts the record unless it already exists.
func (s *Store) AddRelation(ctx context.Context, key domain.RelationKey, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.relations[key]; ok {
		return nil
	}
	s.seq++
	s.relations[key] = relation{createdAt: at, seq: s.seq}
	return nil
}

// RemoveRelation deletes the record if present.
func (s *Store) RemoveRelation(ctx context.Context, key domain.RelationKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.relations, key)
	return nil
}

// ListRelatedContentIDs orders by relation time, then insertion order, newest first.
func (s *Store) ListRelatedContentIDs(ctx context.Context, userID string, kind domain.RelationKind) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type entry struct {
		id string
		relation
	}

	s.mu.RLock()
	entries := make([]entry, 0)
	for k, r := range s.relations {
		if k.UserID == userID && k.Kind == kind {
			entries = append(entries, entry{id: k.ContentID, relation: r})
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(entries, func(a, b entry) int {
		if c := b.createdAt.Compare(a.createdAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids, nil
}
