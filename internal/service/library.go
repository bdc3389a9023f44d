package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talespring/talespring-server/internal/domain"
	domainerrors "github.com/talespring/talespring-server/internal/errors"
	"github.com/talespring/talespring-server/internal/metrics"
	"github.com/talespring/talespring-server/internal/sanitize"
	"github.com/talespring/talespring-server/internal/store"
)

// DefaultFetchConcurrency bounds concurrent content fetches per relation kind.
const DefaultFetchConcurrency = 8

// LibraryService assembles a user's library from relation records and
// content items.
type LibraryService struct {
	content     store.ContentRepository
	relations   store.RelationStore
	sanitizer   *sanitize.Sanitizer
	metrics     *metrics.Metrics
	logger      *slog.Logger
	concurrency int
}

// NewLibraryService creates a library service.
func NewLibraryService(content store.ContentRepository, relations store.RelationStore, sanitizer *sanitize.Sanitizer, m *metrics.Metrics, logger *slog.Logger, concurrency int) *LibraryService {
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}
	return &LibraryService{
		content:     content,
		relations:   relations,
		sanitizer:   sanitizer,
		metrics:     m,
		logger:      logger,
		concurrency: concurrency,
	}
}

// BuildLibraryView lists both relation kinds concurrently and resolves each
// content id. Ids whose content cannot be loaded are left out; only a failed
// relation listing fails the view, as a retryable error.
func (s *LibraryService) BuildLibraryView(ctx context.Context, userID string) (*domain.LibraryView, error) {
	if userID == "" {
		return nil, domainerrors.Unauthorized("must be signed in")
	}
	defer s.metrics.ObserveLibraryBuild(time.Now())

	view := &domain.LibraryView{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.collect(gctx, userID, domain.RelationBookmark)
		view.Bookmarked = items
		return err
	})
	g.Go(func() error {
		items, err := s.collect(gctx, userID, domain.RelationFavorite)
		view.Favorited = items
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *LibraryService) collect(ctx context.Context, userID string, kind domain.RelationKind) ([]*domain.ContentItem, error) {
	ids, err := s.relations.ListRelatedContentIDs(ctx, userID, kind)
	if err != nil {
		return nil, domainerrors.Unavailable("list "+kind.Plural(), err)
	}

	// One slot per id keeps relation order without sorting afterwards.
	slots := make([]*domain.ContentItem, len(ids))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, contentID := range ids {
		g.Go(func() error {
			slots[i] = s.fetch(ctx, userID, kind, contentID)
			return nil
		})
	}
	_ = g.Wait()

	items := make([]*domain.ContentItem, 0, len(ids))
	for _, item := range slots {
		if item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}

// fetch loads one item and absorbs every failure, returning nil.
func (s *LibraryService) fetch(ctx context.Context, userID string, kind domain.RelationKind, contentID string) *domain.ContentItem {
	item, err := s.content.GetContent(ctx, contentID)
	switch {
	case err == nil:
		return present(s.sanitizer, item, sanitize.FormatHTML)
	case errors.Is(err, store.ErrNotFound):
		s.metrics.RecordDrop(metrics.DropNotFound)
		s.logger.Debug("library entry references missing content",
			"user_id", userID,
			"kind", kind,
			"content_id", contentID,
		)
	default:
		s.metrics.RecordDrop(metrics.DropError)
		s.logger.Warn("library entry dropped",
			"user_id", userID,
			"kind", kind,
			"content_id", contentID,
			"error", err,
		)
	}
	return nil
}
