// Package storetest holds the behavioral suite every store backend must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/store"
)

// base is a fixed instant so ordering assertions do not depend on the clock.
var base = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// Item builds a content item created offset after a fixed base time.
func Item(id string, category domain.Category, title, description string, offset time.Duration) *domain.ContentItem {
	return &domain.ContentItem{
		ID:                id,
		AuthorID:          "author-1",
		AuthorDisplayName: "Ada",
		Title:             title,
		Description:       description,
		Body:              "<p>" + title + "</p>",
		Category:          category,
		CreatedAt:         base.Add(offset),
	}
}

// RunContentRepository exercises a ContentRepository built fresh per subtest.
func RunContentRepository(t *testing.T, newRepo func(t *testing.T) store.ContentRepository) {
	t.Helper()
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		repo := newRepo(t)
		in := Item("story-a", domain.CategoryMystery, "Locked Room", "who did it", 0)
		in.CoverImageRef = "https://blobs.example/covers/a.jpg"
		require.NoError(t, repo.CreateContent(ctx, in))

		got, err := repo.GetContent(ctx, "story-a")
		require.NoError(t, err)
		assert.Equal(t, in.Title, got.Title)
		assert.Equal(t, in.Description, got.Description)
		assert.Equal(t, in.Body, got.Body)
		assert.Equal(t, in.Category, got.Category)
		assert.Equal(t, in.AuthorID, got.AuthorID)
		assert.Equal(t, in.AuthorDisplayName, got.AuthorDisplayName)
		assert.Equal(t, in.CoverImageRef, got.CoverImageRef)
		assert.Equal(t, int64(0), got.ReadCount)
		assert.True(t, in.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, in.CreatedAt)
	})

	t.Run("GetMissing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetContent(ctx, "story-missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ListNewestFirstBounded", func(t *testing.T) {
		repo := newRepo(t)
		for i := range store.PageSize + 5 {
			item := Item(fmt.Sprintf("story-%02d", i), domain.CategoryHorror, fmt.Sprintf("Night %d", i), "dark", time.Duration(i)*time.Minute)
			require.NoError(t, repo.CreateContent(ctx, item))
		}

		items, err := repo.ListContent(ctx, store.ListFilter{Category: domain.CategoryAll})
		require.NoError(t, err)
		require.Len(t, items, store.PageSize)
		assert.Equal(t, fmt.Sprintf("story-%02d", store.PageSize+4), items[0].ID)
		for i := 1; i < len(items); i++ {
			assert.True(t, items[i-1].CreatedAt.After(items[i].CreatedAt), "not descending at %d", i)
		}
	})

	t.Run("ListCategoryAndText", func(t *testing.T) {
		repo := newRepo(t)
		seed := []*domain.ContentItem{
			Item("story-dragon", domain.CategoryFantasy, "Dragon's Call", "a summons", 1*time.Minute),
			Item("story-hoard", domain.CategoryFantasy, "The Hoard", "where DRAGONS sleep", 2*time.Minute),
			Item("story-elf", domain.CategoryFantasy, "Elf Road", "a long walk", 3*time.Minute),
			Item("story-paris", domain.CategoryRomance, "Romance in Paris", "dragging feet by the Seine", 4*time.Minute),
		}
		for _, it := range seed {
			require.NoError(t, repo.CreateContent(ctx, it))
		}

		items, err := repo.ListContent(ctx, store.ListFilter{Category: domain.CategoryFantasy, Query: "drag"})
		require.NoError(t, err)
		assert.Equal(t, []string{"story-hoard", "story-dragon"}, ids(items))

		items, err = repo.ListContent(ctx, store.ListFilter{Query: "DRAG"})
		require.NoError(t, err)
		assert.Equal(t, []string{"story-paris", "story-hoard", "story-dragon"}, ids(items))

		items, err = repo.ListContent(ctx, store.ListFilter{Category: domain.CategoryRomance})
		require.NoError(t, err)
		assert.Equal(t, []string{"story-paris"}, ids(items))
	})

	t.Run("ListByAuthor", func(t *testing.T) {
		repo := newRepo(t)
		mine := Item("story-mine", domain.CategoryAdventure, "Mine", "", time.Minute)
		theirs := Item("story-theirs", domain.CategoryAdventure, "Theirs", "", 2*time.Minute)
		theirs.AuthorID = "author-2"
		older := Item("story-older", domain.CategoryAdventure, "Older", "", 0)
		for _, it := range []*domain.ContentItem{mine, theirs, older} {
			require.NoError(t, repo.CreateContent(ctx, it))
		}

		items, err := repo.ListContentByAuthor(ctx, "author-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"story-mine", "story-older"}, ids(items))

		items, err = repo.ListContentByAuthor(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("ConcurrentIncrements", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateContent(ctx, Item("story-x", domain.CategoryRomance, "X", "", 0)))

		const k = 500
		var wg sync.WaitGroup
		errs := make(chan error, k)
		for range k {
			wg.Go(func() {
				errs <- repo.IncrementReadCount(ctx, "story-x")
			})
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := repo.GetContent(ctx, "story-x")
		require.NoError(t, err)
		assert.Equal(t, int64(k), got.ReadCount)
	})

	t.Run("TwoReadsCountTwo", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateContent(ctx, Item("story-two", domain.CategoryRomance, "Two", "", 0)))

		var wg sync.WaitGroup
		wg.Go(func() { assert.NoError(t, repo.IncrementReadCount(ctx, "story-two")) })
		wg.Go(func() { assert.NoError(t, repo.IncrementReadCount(ctx, "story-two")) })
		wg.Wait()

		got, err := repo.GetContent(ctx, "story-two")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.ReadCount)
	})

	t.Run("IncrementMissing", func(t *testing.T) {
		repo := newRepo(t)
		assert.ErrorIs(t, repo.IncrementReadCount(ctx, "story-gone"), store.ErrNotFound)
	})
}

// RunRelationStore exercises a RelationStore built fresh per subtest.
func RunRelationStore(t *testing.T, newStore func(t *testing.T) store.RelationStore) {
	t.Helper()
	ctx := context.Background()
	fav := func(user, content string) domain.RelationKey {
		return domain.RelationKey{UserID: user, ContentID: content, Kind: domain.RelationFavorite}
	}

	t.Run("AddIsIdempotent", func(t *testing.T) {
		rs := newStore(t)
		key := fav("u1", "story-a")
		require.NoError(t, rs.AddRelation(ctx, key, base))
		require.NoError(t, rs.AddRelation(ctx, key, base.Add(time.Hour)))

		ok, err := rs.RelationExists(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := rs.ListRelatedContentIDs(ctx, "u1", domain.RelationFavorite)
		require.NoError(t, err)
		assert.Equal(t, []string{"story-a"}, got)
	})

	t.Run("RemoveAbsentIsNoop", func(t *testing.T) {
		rs := newStore(t)
		key := fav("u1", "story-none")
		require.NoError(t, rs.RemoveRelation(ctx, key))
		require.NoError(t, rs.RemoveRelation(ctx, key))

		ok, err := rs.RelationExists(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := rs.ListRelatedContentIDs(ctx, "u1", domain.RelationFavorite)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("AddThenRemove", func(t *testing.T) {
		rs := newStore(t)
		key := fav("u1", "story-a")
		require.NoError(t, rs.AddRelation(ctx, key, base))
		require.NoError(t, rs.RemoveRelation(ctx, key))

		ok, err := rs.RelationExists(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		rs := newStore(t)
		require.NoError(t, rs.AddRelation(ctx, fav("u1", "story-old"), base))
		require.NoError(t, rs.AddRelation(ctx, fav("u1", "story-new"), base.Add(2*time.Minute)))
		require.NoError(t, rs.AddRelation(ctx, fav("u1", "story-mid"), base.Add(time.Minute)))

		got, err := rs.ListRelatedContentIDs(ctx, "u1", domain.RelationFavorite)
		require.NoError(t, err)
		assert.Equal(t, []string{"story-new", "story-mid", "story-old"}, got)
	})

	t.Run("ReAddMovesToFront", func(t *testing.T) {
		rs := newStore(t)
		require.NoError(t, rs.AddRelation(ctx, fav("u1", "story-a"), base))
		require.NoError(t, rs.AddRelation(ctx, fav("u1", "story-b"), base.Add(time.Minute)))
		require.NoError(t, rs.RemoveRelation(ctx, fav("u1", "story-a")))
		require.NoError(t, rs.AddRelation(ctx, fav("u1", "story-a"), base.Add(2*time.Minute)))

		got, err := rs.ListRelatedContentIDs(ctx, "u1", domain.RelationFavorite)
		require.NoError(t, err)
		assert.Equal(t, []string{"story-a", "story-b"}, got)
	})

	t.Run("KindsAndUsersAreIsolated", func(t *testing.T) {
		rs := newStore(t)
		require.NoError(t, rs.AddRelation(ctx, fav("u1", "story-a"), base))
		require.NoError(t, rs.AddRelation(ctx, domain.RelationKey{UserID: "u1", ContentID: "story-b", Kind: domain.RelationBookmark}, base))
		require.NoError(t, rs.AddRelation(ctx, fav("u2", "story-c"), base))

		got, err := rs.ListRelatedContentIDs(ctx, "u1", domain.RelationFavorite)
		require.NoError(t, err)
		assert.Equal(t, []string{"story-a"}, got)

		got, err = rs.ListRelatedContentIDs(ctx, "u1", domain.RelationBookmark)
		require.NoError(t, err)
		assert.Equal(t, []string{"story-b"}, got)

		ok, err := rs.RelationExists(ctx, domain.RelationKey{UserID: "u1", ContentID: "story-a", Kind: domain.RelationBookmark})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ConcurrentAddsSameKey", func(t *testing.T) {
		rs := newStore(t)
		key := fav("u1", "story-race")
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Go(func() {
				assert.NoError(t, rs.AddRelation(ctx, key, base.Add(time.Duration(i)*time.Second)))
			})
		}
		wg.Wait()

		got, err := rs.ListRelatedContentIDs(ctx, "u1", domain.RelationFavorite)
		require.NoError(t, err)
		assert.Equal(t, []string{"story-race"}, got)
	})

	t.Run("DanglingReferenceAllowed", func(t *testing.T) {
		rs := newStore(t)
		// Relations never check the content table.
		require.NoError(t, rs.AddRelation(ctx, fav("u1", "story-never-created"), base))
		ok, err := rs.RelationExists(ctx, fav("u1", "story-never-created"))
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func ids(items []*domain.ContentItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
