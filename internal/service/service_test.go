package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/logger"
	"github.com/talespring/talespring-server/internal/metrics"
	"github.com/talespring/talespring-server/internal/sanitize"
	"github.com/talespring/talespring-server/internal/store/memory"
	"github.com/talespring/talespring-server/internal/store/storetest"
)

// faultyStore wraps the memory store and injects failures per operation.
type faultyStore struct {
	*memory.Store

	mu           sync.Mutex
	getErr       map[string]error
	listErr      map[domain.RelationKind]error
	addErr       error
	incrementErr error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		Store:   memory.New(),
		getErr:  make(map[string]error),
		listErr: make(map[domain.RelationKind]error),
	}
}

func (f *faultyStore) failGet(contentID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr[contentID] = err
}

func (f *faultyStore) failList(kind domain.RelationKind, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr[kind] = err
}

func (f *faultyStore) GetContent(ctx context.Context, id string) (*domain.ContentItem, error) {
	f.mu.Lock()
	err := f.getErr[id]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.GetContent(ctx, id)
}

func (f *faultyStore) ListRelatedContentIDs(ctx context.Context, userID string, kind domain.RelationKind) ([]string, error) {
	f.mu.Lock()
	err := f.listErr[kind]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.ListRelatedContentIDs(ctx, userID, kind)
}

func (f *faultyStore) AddRelation(ctx context.Context, key domain.RelationKey, at time.Time) error {
	f.mu.Lock()
	err := f.addErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.AddRelation(ctx, key, at)
}

func (f *faultyStore) IncrementReadCount(ctx context.Context, id string) error {
	f.mu.Lock()
	err := f.incrementErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.IncrementReadCount(ctx, id)
}

type fixture struct {
	store    *faultyStore
	metrics  *metrics.Metrics
	content  *ContentService
	relation *RelationService
	library  *LibraryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := newFaultyStore()
	m := metrics.New(prometheus.NewRegistry())
	san := sanitize.New()
	log := logger.Discard()

	return &fixture{
		store:    st,
		metrics:  m,
		content:  NewContentService(st, san, m, log, time.Second),
		relation: NewRelationService(st, st, m, log),
		library:  NewLibraryService(st, st, san, m, log, 2),
	}
}

// seed stores items created offset minutes after the fixed base time.
func (f *fixture) seed(t *testing.T, items ...*domain.ContentItem) {
	t.Helper()
	for _, item := range items {
		require.NoError(t, f.store.CreateContent(context.Background(), item))
	}
}

func item(id string, category domain.Category, title, description string, minutes int) *domain.ContentItem {
	return storetest.Item(id, category, title, description, time.Duration(minutes)*time.Minute)
}

var relatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// relate records a relation directly in the store at relatedAt+minutes.
func (f *fixture) relate(t *testing.T, userID, contentID string, kind domain.RelationKind, minutes int) {
	t.Helper()
	key := domain.RelationKey{UserID: userID, ContentID: contentID, Kind: kind}
	require.NoError(t, f.store.Store.AddRelation(context.Background(), key, relatedAt.Add(time.Duration(minutes)*time.Minute)))
}
