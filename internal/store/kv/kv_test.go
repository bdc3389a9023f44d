package kv

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/logger"
	"github.com/talespring/talespring-server/internal/store"
	"github.com/talespring/talespring-server/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", logger.Discard(), Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestContentRepository(t *testing.T) {
	storetest.RunContentRepository(t, func(t *testing.T) store.ContentRepository { return newTestStore(t) })
}

func TestRelationStore(t *testing.T) {
	storetest.RunRelationStore(t, func(t *testing.T) store.RelationStore { return newTestStore(t) })
}

func TestInvTimestamp_OrdersNewestFirst(t *testing.T) {
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Nanosecond)

	assert.Len(t, invTimestamp(older), invTimestampWidth)
	assert.Less(t, invTimestamp(newer), invTimestamp(older))
}

func TestOnDisk_PersistsCounter(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, logger.Discard(), Options{})
	require.NoError(t, err)
	require.NoError(t, s.CreateContent(ctx, storetest.Item("story-a", domain.CategoryHorror, "A", "", 0)))
	require.NoError(t, s.IncrementReadCount(ctx, "story-a"))
	require.NoError(t, s.Close())

	s, err = Open(dir, logger.Discard(), Options{})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetContent(ctx, "story-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ReadCount)
}

func TestDeleteContent_RemovesIndexes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateContent(ctx, storetest.Item("story-a", domain.CategoryHorror, "A", "", 0)))
	require.NoError(t, s.AddRelation(ctx, domain.RelationKey{UserID: "u1", ContentID: "story-a", Kind: domain.RelationFavorite}, time.Now()))

	require.NoError(t, s.DeleteContent(ctx, "story-a"))

	items, err := s.ListContent(ctx, store.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	byAuthor, err := s.ListContentByAuthor(ctx, "author-1")
	require.NoError(t, err)
	assert.Empty(t, byAuthor)

	ids, err := s.ListRelatedContentIDs(ctx, "u1", domain.RelationFavorite)
	require.NoError(t, err)
	assert.Equal(t, []string{"story-a"}, ids)
}

func TestInspect(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateContent(ctx, storetest.Item("story-a", domain.CategoryHorror, "A", "", 0)))
	require.NoError(t, s.CreateContent(ctx, storetest.Item("story-b", domain.CategoryFantasy, "B", "", time.Minute)))
	for range 3 {
		require.NoError(t, s.IncrementReadCount(ctx, "story-b"))
	}
	require.NoError(t, s.IncrementReadCount(ctx, "story-a"))
	require.NoError(t, s.AddRelation(ctx, domain.RelationKey{UserID: "u1", ContentID: "story-a", Kind: domain.RelationFavorite}, time.Now()))
	require.NoError(t, s.AddRelation(ctx, domain.RelationKey{UserID: "u1", ContentID: "story-gone", Kind: domain.RelationBookmark}, time.Now()))

	st, err := s.Inspect(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, st.ContentItems)
	assert.Equal(t, uint64(4), st.TotalReads)
	assert.Equal(t, 1, st.ByCategory[domain.CategoryHorror])
	assert.Equal(t, 1, st.Relations[domain.RelationFavorite])
	assert.Equal(t, 1, st.Relations[domain.RelationBookmark])
	assert.Equal(t, 1, st.DanglingRelation)
	require.Len(t, st.TopRead, 1)
	assert.Equal(t, "story-b", st.TopRead[0].ID)
}

func TestPing_AfterClose(t *testing.T) {
	s, err := Open("", logger.Discard(), Options{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), store.ErrUnavailable)
}

func TestIncrementReadCount_HeavyContention(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateContent(ctx, storetest.Item("story-hot", domain.CategoryHorror, "Hot", "", 0)))

	const k = 1000
	var failed atomic.Int64
	var wg sync.WaitGroup
	for range k {
		wg.Go(func() {
			if err := s.IncrementReadCount(ctx, "story-hot"); err != nil {
				failed.Add(1)
			}
		})
	}
	wg.Wait()

	assert.Zero(t, failed.Load())
	got, err := s.GetContent(ctx, "story-hot")
	require.NoError(t, err)
	assert.Equal(t, int64(k), got.ReadCount)
}

func TestIncrementReadCount_StopsWithContext(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateContent(context.Background(), storetest.Item("story-a", domain.CategoryHorror, "A", "", 0)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.IncrementReadCount(ctx, "story-a"), context.Canceled)
}

func TestIndexKeysAreNotContentIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := storetest.Item("story-a", domain.CategoryHorror, "A", "", 0)
	require.NoError(t, s.CreateContent(ctx, item))

	for _, id := range []string{
		"idx:created:" + invTimestamp(item.CreatedAt) + ":story-a",
		"idx:author:" + item.AuthorID + ":" + invTimestamp(item.CreatedAt) + ":story-a",
	} {
		_, err := s.GetContent(ctx, id)
		assert.ErrorIs(t, err, store.ErrNotFound, id)
		assert.ErrorIs(t, s.IncrementReadCount(ctx, id), store.ErrNotFound, id)
	}
}
