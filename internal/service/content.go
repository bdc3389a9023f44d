package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/talespring/talespring-server/internal/domain"
	domainerrors "github.com/talespring/talespring-server/internal/errors"
	"github.com/talespring/talespring-server/internal/id"
	"github.com/talespring/talespring-server/internal/metrics"
	"github.com/talespring/talespring-server/internal/sanitize"
	"github.com/talespring/talespring-server/internal/store"
	"github.com/talespring/talespring-server/internal/validation"
)

// DefaultIncrementTimeout bounds a background read count increment.
const DefaultIncrementTimeout = 5 * time.Second

// ContentService orchestrates content reads, publishing, and read counting.
// Every item it returns has had its body sanitized.
type ContentService struct {
	repo      store.ContentRepository
	sanitizer *sanitize.Sanitizer
	validator *validation.Validator
	metrics   *metrics.Metrics
	logger    *slog.Logger

	incrementTimeout time.Duration
	now              func() time.Time

	// pending tracks background increments so shutdown can wait for them.
	pending sync.WaitGroup
}

// NewContentService creates a new content service.
func NewContentService(repo store.ContentRepository, sanitizer *sanitize.Sanitizer, m *metrics.Metrics, logger *slog.Logger, incrementTimeout time.Duration) *ContentService {
	if incrementTimeout <= 0 {
		incrementTimeout = DefaultIncrementTimeout
	}
	return &ContentService{
		repo:             repo,
		sanitizer:        sanitizer,
		validator:        validation.New(),
		metrics:          m,
		logger:           logger,
		incrementTimeout: incrementTimeout,
		now:              time.Now,
	}
}

// ListContentRequest holds the list filters as received from a caller.
type ListContentRequest struct {
	Category string
	Query    string
}

// Get returns a single item with its body sanitized as HTML.
func (s *ContentService) Get(ctx context.Context, contentID string) (*domain.ContentItem, error) {
	item, err := s.repo.GetContent(ctx, contentID)
	if err != nil {
		return nil, translate(err, "get content")
	}
	return s.present(item, sanitize.FormatHTML), nil
}

// View returns an item for reading and counts the read in the background.
// The increment never delays or fails the view.
func (s *ContentService) View(ctx context.Context, contentID string, format sanitize.Format) (*domain.ContentItem, error) {
	item, err := s.repo.GetContent(ctx, contentID)
	if err != nil {
		return nil, translate(err, "get content")
	}

	s.recordReadAsync(ctx, contentID)

	return s.present(item, format), nil
}

// List returns at most store.PageSize items matching req, newest first.
func (s *ContentService) List(ctx context.Context, req ListContentRequest) ([]*domain.ContentItem, error) {
	category := domain.Category(strings.TrimSpace(req.Category))
	if !category.IsAll() && !category.Valid() {
		return nil, domainerrors.ValidationWithDetails("unknown category", map[string]any{
			"category": req.Category,
			"allowed":  domain.Categories(),
		})
	}

	items, err := s.repo.ListContent(ctx, store.ListFilter{Category: category, Query: req.Query}.Normalize())
	if err != nil {
		return nil, translate(err, "list content")
	}
	return s.presentAll(items), nil
}

// ListByAuthor returns every item published by authorID, newest first.
func (s *ContentService) ListByAuthor(ctx context.Context, authorID string) ([]*domain.ContentItem, error) {
	if strings.TrimSpace(authorID) == "" {
		return nil, domainerrors.Validation("author id is required")
	}
	items, err := s.repo.ListContentByAuthor(ctx, authorID)
	if err != nil {
		return nil, translate(err, "list content by author")
	}
	return s.presentAll(items), nil
}

// Create validates a draft and publishes it under author.
func (s *ContentService) Create(ctx context.Context, author domain.Identity, draft domain.ContentDraft) (*domain.ContentItem, error) {
	if author.Anonymous() {
		return nil, domainerrors.Unauthorized("must be signed in")
	}
	if err := s.validator.Validate(draft); err != nil {
		return nil, err
	}

	contentID, err := id.Generate(id.PrefixContent)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate content id")
	}

	item := draft.Publish(contentID, author, s.now())
	if err := s.repo.CreateContent(ctx, item); err != nil {
		return nil, translate(err, "create content")
	}

	s.logger.Info("content created",
		"content_id", item.ID,
		"author_id", item.AuthorID,
		"category", item.Category,
	)
	return s.present(item, sanitize.FormatHTML), nil
}

// IncrementReadCount counts one read synchronously.
func (s *ContentService) IncrementReadCount(ctx context.Context, contentID string) error {
	err := s.repo.IncrementReadCount(ctx, contentID)
	s.metrics.RecordRead(err)
	return translate(err, "increment read count")
}

// recordReadAsync increments the read count on a context detached from the
// caller's cancellation. Failures are logged and counted only.
func (s *ContentService) recordReadAsync(ctx context.Context, contentID string) {
	detached := context.WithoutCancel(ctx)
	s.pending.Go(func() {
		ctx, cancel := context.WithTimeout(detached, s.incrementTimeout)
		defer cancel()

		err := s.repo.IncrementReadCount(ctx, contentID)
		s.metrics.RecordRead(err)
		if err != nil {
			s.logger.Warn("read count increment failed",
				"content_id", contentID,
				"error", err,
			)
		}
	})
}

// Drain waits for background increments to finish or ctx to end.
func (s *ContentService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ContentService) present(item *domain.ContentItem, format sanitize.Format) *domain.ContentItem {
	return present(s.sanitizer, item, format)
}

func (s *ContentService) presentAll(items []*domain.ContentItem) []*domain.ContentItem {
	out := make([]*domain.ContentItem, len(items))
	for i, item := range items {
		out[i] = s.present(item, sanitize.FormatHTML)
	}
	return out
}

// present returns a copy of item with the body sanitized into format.
func present(sanitizer *sanitize.Sanitizer, item *domain.ContentItem, format sanitize.Format) *domain.ContentItem {
	out := *item
	out.Body = sanitizer.Render(item.Body, format)
	return &out
}
