package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/talespring/talespring-server/internal/domain"
	domainerrors "github.com/talespring/talespring-server/internal/errors"
	"github.com/talespring/talespring-server/internal/metrics"
	"github.com/talespring/talespring-server/internal/store"
)

// RelationService manages a user's favorites and bookmarks.
//
// Add and Remove are idempotent in both directions, so a client may resend
// either one until it sees a response.
type RelationService struct {
	content   store.ContentRepository
	relations store.RelationStore
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewRelationService creates a relation service. relations may be a
// different backend than content.
func NewRelationService(content store.ContentRepository, relations store.RelationStore, m *metrics.Metrics, logger *slog.Logger) *RelationService {
	return &RelationService{
		content:   content,
		relations: relations,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

func checkKey(key domain.RelationKey) error {
	if key.UserID == "" {
		return domainerrors.Unauthorized("must be signed in")
	}
	if !key.Kind.Valid() {
		return domainerrors.Validationf("unknown relation kind %q", key.Kind)
	}
	if strings.TrimSpace(key.ContentID) == "" {
		return domainerrors.Validation("content id is required")
	}
	return nil
}

// Exists reports whether the relation is recorded.
func (s *RelationService) Exists(ctx context.Context, key domain.RelationKey) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	ok, err := s.relations.RelationExists(ctx, key)
	if err != nil {
		return false, translate(err, "check relation")
	}
	return ok, nil
}

// Add records the relation. The content item must exist.
func (s *RelationService) Add(ctx context.Context, key domain.RelationKey) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := s.content.GetContent(ctx, key.ContentID); err != nil {
		return translate(err, "get content")
	}
	if err := s.relations.AddRelation(ctx, key, s.now()); err != nil {
		return translate(err, "add relation")
	}
	s.logger.Debug("relation added", "user_id", key.UserID, "content_id", key.ContentID, "kind", key.Kind)
	return nil
}

// Remove deletes the relation. Removing an absent relation succeeds, even
// when the content item no longer exists.
func (s *RelationService) Remove(ctx context.Context, key domain.RelationKey) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.relations.RemoveRelation(ctx, key); err != nil {
		return translate(err, "remove relation")
	}
	s.logger.Debug("relation removed", "user_id", key.UserID, "content_id", key.ContentID, "kind", key.Kind)
	return nil
}

// Set adds or removes the relation so that its presence matches present.
func (s *RelationService) Set(ctx context.Context, key domain.RelationKey, present bool) error {
	if present {
		return s.Add(ctx, key)
	}
	return s.Remove(ctx, key)
}

// Toggle flips the stored presence and returns the new one. Two concurrent
// toggles of one key are not linearized; the last write wins.
func (s *RelationService) Toggle(ctx context.Context, key domain.RelationKey) (domain.Presence, error) {
	presence, err := s.toggle(ctx, key)
	s.metrics.RecordToggle(string(key.Kind), err)
	return presence, err
}

func (s *RelationService) toggle(ctx context.Context, key domain.RelationKey) (domain.Presence, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}

	next := domain.PresenceOf(exists).Flip()
	if err := s.Set(ctx, key, next.Exists()); err != nil {
		return "", err
	}
	return next, nil
}

// Status reports both relation kinds for one content item.
func (s *RelationService) Status(ctx context.Context, userID, contentID string) (domain.RelationStatus, error) {
	status := domain.RelationStatus{ContentID: contentID}
	for _, kind := range domain.RelationKinds() {
		ok, err := s.Exists(ctx, domain.RelationKey{UserID: userID, ContentID: contentID, Kind: kind})
		if err != nil {
			return domain.RelationStatus{}, err
		}
		switch kind {
		case domain.RelationFavorite:
			status.Favorite = ok
		case domain.RelationBookmark:
			status.Bookmark = ok
		}
	}
	return status, nil
}

// ListByUser returns related content ids, most recently related first.
func (s *RelationService) ListByUser(ctx context.Context, userID string, kind domain.RelationKind) ([]string, error) {
	if userID == "" {
		return nil, domainerrors.Unauthorized("must be signed in")
	}
	ids, err := s.relations.ListRelatedContentIDs(ctx, userID, kind)
	if err != nil {
		return nil, translate(err, "list relations")
	}
	return ids, nil
}
