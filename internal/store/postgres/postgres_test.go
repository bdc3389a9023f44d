package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/logger"
	"github.com/talespring/talespring-server/internal/store"
)

var columns = []string{"id", "author_id", "author_display_name", "title", "description", "body", "category", "cover_image_ref", "created_at", "read_count"}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return New(mock, logger.Discard()), mock
}

func TestInitSchema(t *testing.T) {
	s, mock := newMockStore(t)
	for range schema {
		mock.ExpectExec("CREATE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	require.NoError(t, s.InitSchema(context.Background()))
}

func TestGetContent(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT id, .* FROM content_items WHERE id = \$1`).
		WithArgs("story-a").
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("story-a", "u1", "Ada", "Dragon's Call", "wings", "<p>x</p>", "Fantasy", "", created, int64(7)))

	item, err := s.GetContent(context.Background(), "story-a")
	require.NoError(t, err)
	assert.Equal(t, "Dragon's Call", item.Title)
	assert.Equal(t, domain.CategoryFantasy, item.Category)
	assert.Equal(t, int64(7), item.ReadCount)
	assert.True(t, created.Equal(item.CreatedAt))
}

func TestGetContent_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM content_items WHERE id = \$1`).
		WithArgs("story-missing").
		WillReturnRows(pgxmock.NewRows(columns))

	_, err := s.GetContent(context.Background(), "story-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetContent_ConnectionError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM content_items WHERE id = \$1`).
		WithArgs("story-a").
		WillReturnError(errors.New("connection reset"))

	_, err := s.GetContent(context.Background(), "story-a")
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestListContent_PushesFilters(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)FROM content_items WHERE category = \$1 AND \(strpos\(title_fold, \$2\) > 0 OR strpos\(description_fold, \$2\) > 0\) ORDER BY created_at DESC, id DESC LIMIT \$3`).
		WithArgs("Fantasy", "drag", store.PageSize).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("story-b", "u1", "Ada", "The Hoard", "DRAGONS", "", "Fantasy", "", now, int64(0)).
			AddRow("story-a", "u1", "Ada", "Dragon's Call", "", "", "Fantasy", "", now.Add(-time.Minute), int64(2)))

	items, err := s.ListContent(context.Background(), store.ListFilter{Category: domain.CategoryFantasy, Query: " DRAG "})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "story-b", items[0].ID)
}

func TestListContent_AllCategoryHasNoWhere(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM content_items ORDER BY created_at DESC, id DESC LIMIT \$1`).
		WithArgs(store.PageSize).
		WillReturnRows(pgxmock.NewRows(columns))

	items, err := s.ListContent(context.Background(), store.ListFilter{Category: domain.CategoryAll})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateContent_Duplicate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO content_items").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.CreateContent(context.Background(), &domain.ContentItem{ID: "story-a", Title: "A", Category: domain.CategoryHorror})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestCreateContent_StoresFoldedColumns(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO content_items").
		WithArgs("story-a", "u1", "Ada", "Dragon's Call", "dragon's call", "Wings", "wings",
			"<p>x</p>", "Fantasy", nil, created, int64(0)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.CreateContent(context.Background(), &domain.ContentItem{
		ID: "story-a", AuthorID: "u1", AuthorDisplayName: "Ada", Title: "Dragon's Call", Description: "Wings",
		Body: "<p>x</p>", Category: domain.CategoryFantasy, CreatedAt: created,
	})
	require.NoError(t, err)
}

func TestIncrementReadCount(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE content_items SET read_count = read_count \+ 1 WHERE id = \$1`).
		WithArgs("story-a").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE content_items SET read_count`).
		WithArgs("story-gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, s.IncrementReadCount(context.Background(), "story-a"))
	assert.ErrorIs(t, s.IncrementReadCount(context.Background(), "story-gone"), store.ErrNotFound)
}

func TestRelations(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	key := domain.RelationKey{UserID: "u1", ContentID: "story-a", Kind: domain.RelationFavorite}

	mock.ExpectExec(`INSERT INTO relations .* ON CONFLICT DO NOTHING`).
		WithArgs("u1", "story-a", "favorite", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("u1", "story-a", "favorite").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT content_id FROM relations WHERE user_id = \$1 AND kind = \$2 ORDER BY created_at DESC, seq DESC`).
		WithArgs("u1", "favorite").
		WillReturnRows(pgxmock.NewRows([]string{"content_id"}).AddRow("story-a").AddRow("story-b"))
	mock.ExpectExec(`DELETE FROM relations`).
		WithArgs("u1", "story-a", "favorite").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.AddRelation(ctx, key, time.Now()))
	ok, err := s.RelationExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	ids, err := s.ListRelatedContentIDs(ctx, "u1", domain.RelationFavorite)
	require.NoError(t, err)
	assert.Equal(t, []string{"story-a", "story-b"}, ids)
	require.NoError(t, s.RemoveRelation(ctx, key))
}

func TestListRelated_Error(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT content_id FROM relations`).
		WithArgs("u1", "bookmark").
		WillReturnError(errors.New("timeout"))

	_, err := s.ListRelatedContentIDs(context.Background(), "u1", domain.RelationBookmark)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestPing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.ErrorIs(t, New(mock, logger.Discard()).Ping(context.Background()), store.ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
