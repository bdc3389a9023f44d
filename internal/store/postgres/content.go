package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/store"
)

// contentColumns must match the scan order in scanContent.
const contentColumns = `id, author_id, author_display_name, title, description, body, category, COALESCE(cover_image_ref, ''), created_at, read_count`

func scanContent(row pgx.Row) (*domain.ContentItem, error) {
	var (
		c        domain.ContentItem
		category string
	)
	err := row.Scan(
		&c.ID,
		&c.AuthorID,
		&c.AuthorDisplayName,
		&c.Title,
		&c.Description,
		&c.Body,
		&category,
		&c.CoverImageRef,
		&c.CreatedAt,
		&c.ReadCount,
	)
	if err != nil {
		return nil, err
	}
	c.Category = domain.Category(category)
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// GetContent returns a single item by id.
func (s *Store) GetContent(ctx context.Context, id string) (*domain.ContentItem, error) {
	item, err := scanContent(s.db.QueryRow(ctx, `SELECT `+contentColumns+` FROM content_items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrContentNotFound
	}
	if err != nil {
		return nil, store.Unavailable("postgres: get content", err)
	}
	return item, nil
}

// ListContent pushes both filters into SQL using the folded columns.
func (s *Store) ListContent(ctx context.Context, filter store.ListFilter) ([]*domain.ContentItem, error) {
	filter = filter.Normalize()

	var (
		where []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.Category != "" {
		where = append(where, "category = "+next(string(filter.Category)))
	}
	if filter.Query != "" {
		p := next(filter.FoldedQuery())
		where = append(where, "(strpos(title_fold, "+p+") > 0 OR strpos(description_fold, "+p+") > 0)")
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + contentColumns + ` FROM content_items`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC LIMIT " + next(store.PageSize))

	return s.queryContent(ctx, "postgres: list content", b.String(), args...)
}

// ListContentByAuthor returns every item by authorID.
func (s *Store) ListContentByAuthor(ctx context.Context, authorID string) ([]*domain.ContentItem, error) {
	return s.queryContent(ctx, "postgres: list content by author",
		`SELECT `+contentColumns+` FROM content_items WHERE author_id = $1 ORDER BY created_at DESC, id DESC`, authorID)
}

func (s *Store) queryContent(ctx context.Context, op, query string, args ...any) ([]*domain.ContentItem, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, store.Unavailable(op, err)
	}
	defer rows.Close()

	items := make([]*domain.ContentItem, 0)
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, store.Unavailable(op, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable(op, err)
	}
	return items, nil
}

// CreateContent inserts a new item.
func (s *Store) CreateContent(ctx context.Context, item *domain.ContentItem) error {
	var cover any
	if item.CoverImageRef != "" {
		cover = item.CoverImageRef
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO content_items (
			id, author_id, author_display_name, title, title_fold, description, description_fold,
			body, category, cover_image_ref, created_at, read_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		item.ID,
		item.AuthorID,
		item.AuthorDisplayName,
		item.Title,
		store.Fold(item.Title),
		item.Description,
		store.Fold(item.Description),
		item.Body,
		string(item.Category),
		cover,
		item.CreatedAt.UTC(),
		item.ReadCount,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("content id already exists")
		}
		return store.Unavailable("postgres: create content", err)
	}
	return nil
}

// IncrementReadCount is a single UPDATE; Postgres row locking serializes concurrent writers.
func (s *Store) IncrementReadCount(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `UPDATE content_items SET read_count = read_count + 1 WHERE id = $1`, id)
	if err != nil {
		return store.Unavailable("postgres: increment read count", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrContentNotFound
	}
	return nil
}
