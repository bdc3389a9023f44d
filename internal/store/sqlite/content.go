package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/store"
)

// contentColumns must match the scan order in scanContent.
const contentColumns = `id, author_id, author_display_name, title, description, body, category, cover_image_ref, created_at, read_count`

func scanContent(scanner interface{ Scan(dest ...any) error }) (*domain.ContentItem, error) {
	var (
		c         domain.ContentItem
		category  string
		cover     sql.NullString
		createdAt string
	)
	err := scanner.Scan(
		&c.ID,
		&c.AuthorID,
		&c.AuthorDisplayName,
		&c.Title,
		&c.Description,
		&c.Body,
		&category,
		&cover,
		&createdAt,
		&c.ReadCount,
	)
	if err != nil {
		return nil, err
	}
	c.Category = domain.Category(category)
	c.CoverImageRef = cover.String
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetContent returns a single item by id.
func (s *Store) GetContent(ctx context.Context, id string) (*domain.ContentItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content_items WHERE id = ?`, id)
	item, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrContentNotFound
	}
	if err != nil {
		return nil, store.Unavailable("sqlite: get content", err)
	}
	return item, nil
}

// ListContent filters in SQL against the pre-folded title and description columns.
func (s *Store) ListContent(ctx context.Context, filter store.ListFilter) ([]*domain.ContentItem, error) {
	filter = filter.Normalize()

	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.Query != "" {
		q := filter.FoldedQuery()
		where = append(where, "(instr(title_fold, ?) > 0 OR instr(description_fold, ?) > 0)")
		args = append(args, q, q)
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + contentColumns + ` FROM content_items`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(` ORDER BY created_at DESC, id DESC LIMIT ?`)
	args = append(args, store.PageSize)

	return s.queryContent(ctx, "sqlite: list content", b.String(), args...)
}

// ListContentByAuthor returns every item by authorID.
func (s *Store) ListContentByAuthor(ctx context.Context, authorID string) ([]*domain.ContentItem, error) {
	return s.queryContent(ctx, "sqlite: list content by author",
		`SELECT `+contentColumns+` FROM content_items WHERE author_id = ? ORDER BY created_at DESC, id DESC`, authorID)
}

func (s *Store) queryContent(ctx context.Context, op, query string, args ...any) ([]*domain.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_items (
			id, author_id, author_display_name, title, title_fold, description, description_fold,
			body, category, cover_image_ref, created_at, read_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.AuthorID,
		item.AuthorDisplayName,
		item.Title,
		store.Fold(item.Title),
		item.Description,
		store.Fold(item.Description),
		item.Body,
		string(item.Category),
		nullString(item.CoverImageRef),
		formatTime(item.CreatedAt),
		item.ReadCount,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("content id already exists")
		}
		return store.Unavailable("sqlite: create content", err)
	}
	return nil
}

// IncrementReadCount performs the increment inside a single UPDATE statement.
func (s *Store) IncrementReadCount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE content_items SET read_count = read_count + 1 WHERE id = ?`, id)
	if err != nil {
		return store.Unavailable("sqlite: increment read count", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Unavailable("sqlite: increment read count", err)
	}
	if n == 0 {
		return store.ErrContentNotFound
	}
	return nil
}

// DeleteContent removes an item; relations pointing at it are kept.
func (s *Store) DeleteContent(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM content_items WHERE id = ?`, id); err != nil {
		return store.Unavailable("sqlite: delete content", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
