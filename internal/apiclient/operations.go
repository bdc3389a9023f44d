package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/talespring/talespring-server/internal/domain"
)

// ContentList is the body of a content listing.
type ContentList struct {
	Items []*domain.ContentItem `json:"items"`
}

// RelationState is the body returned by relation writes.
type RelationState struct {
	ContentID string              `json:"content_id"`
	Kind      domain.RelationKind `json:"kind"`
	State     domain.Presence     `json:"state"`
}

// ListContent lists up to one page of content. Empty arguments disable a filter.
func (c *Client) ListContent(ctx context.Context, category, query string) ([]*domain.ContentItem, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if query != "" {
		q.Set("q", query)
	}

	var out ContentList
	if err := c.do(ctx, http.MethodGet, "/api/v1/content", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ListByAuthor lists every item by authorID.
func (c *Client) ListByAuthor(ctx context.Context, authorID string) ([]*domain.ContentItem, error) {
	var out ContentList
	if err := c.do(ctx, http.MethodGet, "/api/v1/authors/"+url.PathEscape(authorID)+"/content", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// View fetches an item for reading; the server counts the read.
// format is "html" or "markdown"; empty means html.
func (c *Client) View(ctx context.Context, contentID, format string) (*domain.ContentItem, error) {
	q := url.Values{}
	if format != "" {
		q.Set("format", format)
	}

	var item domain.ContentItem
	if err := c.do(ctx, http.MethodGet, "/api/v1/content/"+url.PathEscape(contentID), q, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create publishes a draft as the token's user.
func (c *Client) Create(ctx context.Context, draft domain.ContentDraft) (*domain.ContentItem, error) {
	var item domain.ContentItem
	if err := c.do(ctx, http.MethodPost, "/api/v1/content", nil, draft, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// IncrementReadCount counts one read explicitly.
func (c *Client) IncrementReadCount(ctx context.Context, contentID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/content/"+url.PathEscape(contentID)+"/reads", nil, nil, nil)
}

// Library fetches the token user's library.
func (c *Client) Library(ctx context.Context) (*domain.LibraryView, error) {
	var view domain.LibraryView
	if err := c.do(ctx, http.MethodGet, "/api/v1/me/library", nil, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Status reports both relation kinds for contentID.
func (c *Client) Status(ctx context.Context, contentID string) (domain.RelationStatus, error) {
	var status domain.RelationStatus
	err := c.do(ctx, http.MethodGet, "/api/v1/me/relations/"+url.PathEscape(contentID), nil, nil, &status)
	return status, err
}

// Add records a relation. The server takes the user from the token, so
// key.UserID only has to be non-empty for the caller's own bookkeeping.
func (c *Client) Add(ctx context.Context, key domain.RelationKey) error {
	return c.do(ctx, http.MethodPut, relationPath(key.Kind, key.ContentID), nil, nil, &RelationState{})
}

// Remove deletes a relation.
func (c *Client) Remove(ctx context.Context, key domain.RelationKey) error {
	return c.do(ctx, http.MethodDelete, relationPath(key.Kind, key.ContentID), nil, nil, &RelationState{})
}

// Toggle flips a relation on the server and returns its new presence.
func (c *Client) Toggle(ctx context.Context, kind domain.RelationKind, contentID string) (domain.Presence, error) {
	var out RelationState
	if err := c.do(ctx, http.MethodPost, relationPath(kind, contentID)+"/toggle", nil, nil, &out); err != nil {
		return "", err
	}
	return out.State, nil
}
