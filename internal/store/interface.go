// Package store defines the persistence contracts for content items and
// relation records, shared by every storage backend.
package store

import (
	"context"
	"time"

	"github.com/talespring/talespring-server/internal/domain"
)

// PageSize bounds every ListContent result.
const PageSize = 20

// ContentRepository stores content items.
type ContentRepository interface {
	// GetContent returns ErrContentNotFound for unknown ids.
	GetContent(ctx context.Context, id string) (*domain.ContentItem, error)
	// ListContent returns at most PageSize items matching filter, newest first.
	ListContent(ctx context.Context, filter ListFilter) ([]*domain.ContentItem, error)
	// ListContentByAuthor returns every item by authorID, newest first.
	ListContentByAuthor(ctx context.Context, authorID string) ([]*domain.ContentItem, error)
	// CreateContent persists a fully populated item.
	CreateContent(ctx context.Context, item *domain.ContentItem) error
	// IncrementReadCount adds one to the item's read counter atomically at the
	// storage layer. Concurrent calls never lose an update.
	IncrementReadCount(ctx context.Context, id string) error
}

// RelationStore stores relation records keyed by (user, content, kind).
type RelationStore interface {
	RelationExists(ctx context.Context, key domain.RelationKey) (bool, error)
	// AddRelation is idempotent. An existing record keeps its original time.
	AddRelation(ctx context.Context, key domain.RelationKey, at time.Time) error
	// RemoveRelation is idempotent. Removing an absent record is not an error.
	RemoveRelation(ctx context.Context, key domain.RelationKey) error
	// ListRelatedContentIDs returns content ids for the user and kind, most recently related first.
	ListRelatedContentIDs(ctx context.Context, userID string, kind domain.RelationKind) ([]string, error)
}

// Pinger reports backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is a backend holding both content and relations.
type Store interface {
	ContentRepository
	RelationStore
	Pinger
	Close() error
}

// RelationBackend is a standalone relation store such as Redis.
type RelationBackend interface {
	RelationStore
	Pinger
	Close() error
}
