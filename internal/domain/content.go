package domain

import (
	"slices"
	"strings"
	"time"
)

// Category is one of the fixed content categories.
type Category string

// Content categories.
const (
	CategoryRomance           Category = "Romance"
	CategoryFantasy           Category = "Fantasy"
	CategoryScienceFiction    Category = "Science Fiction"
	CategoryMystery           Category = "Mystery"
	CategoryHorror            Category = "Horror"
	CategoryAdventure         Category = "Adventure"
	CategoryHistoricalFiction Category = "Historical Fiction"
)

// CategoryAll is the list filter sentinel meaning "no category filter".
// It is never a valid category for a stored item.
const CategoryAll Category = "all"

var categories = []Category{
	CategoryRomance,
	CategoryFantasy,
	CategoryScienceFiction,
	CategoryMystery,
	CategoryHorror,
	CategoryAdventure,
	CategoryHistoricalFiction,
}

// Categories returns the enumerated categories in display order.
func Categories() []Category {
	return slices.Clone(categories)
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	return slices.Contains(categories, c)
}

// IsAll reports whether c is the no-filter sentinel. The empty category counts as "all".
func (c Category) IsAll() bool {
	return c == "" || strings.EqualFold(string(c), string(CategoryAll))
}

// ContentItem is one published work.
type ContentItem struct {
	CreatedAt         time.Time `json:"created_at"`
	ID                string    `json:"id"`
	AuthorID          string    `json:"author_id"`
	AuthorDisplayName string    `json:"author_display_name"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Body              string    `json:"body"`
	Category          Category  `json:"category"`
	CoverImageRef     string    `json:"cover_image_ref,omitempty"`
	ReadCount         int64     `json:"read_count"`
}

// ContentDraft is the author-supplied part of a new ContentItem.
// The id, timestamps, counter and author fields are assigned on create.
type ContentDraft struct {
	Title         string   `json:"title" validate:"required,notblank,max=200"`
	Description   string   `json:"description" validate:"required,notblank,max=2000"`
	Body          string   `json:"body" validate:"required"`
	Category      Category `json:"category" validate:"required,category"`
	CoverImageRef string   `json:"cover_image_ref,omitempty" validate:"omitempty,max=2048"`
}

// Publish turns a draft into a stored item owned by author.
func (d ContentDraft) Publish(contentID string, author Identity, now time.Time) *ContentItem {
	return &ContentItem{
		ID:                contentID,
		AuthorID:          author.ID,
		AuthorDisplayName: author.DisplayName,
		Title:             strings.TrimSpace(d.Title),
		Description:       strings.TrimSpace(d.Description),
		Body:              d.Body,
		Category:          d.Category,
		CoverImageRef:     d.CoverImageRef,
		CreatedAt:         now.UTC(),
	}
}
