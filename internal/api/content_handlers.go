package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/sanitize"
	"github.com/talespring/talespring-server/internal/service"
)

func (s *Server) registerContentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listContent",
		Method:      http.MethodGet,
		Path:        "/api/v1/content",
		Summary:     "List content",
		Description: "Returns one page of content, newest first, filtered by category and text",
		Tags:        []string{"Content"},
	}, s.handleListContent)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createContent",
		Method:        http.MethodPost,
		Path:          "/api/v1/content",
		Summary:       "Publish content",
		Description:   "Publishes a new content item authored by the caller",
		Tags:          []string{"Content"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateContent)

	huma.Register(s.api, huma.Operation{
		OperationID: "viewContent",
		Method:      http.MethodGet,
		Path:        "/api/v1/content/{id}",
		Summary:     "View content",
		Description: "Returns a content item for reading and counts the read",
		Tags:        []string{"Content"},
	}, s.handleViewContent)

	huma.Register(s.api, huma.Operation{
		OperationID:   "recordRead",
		Method:        http.MethodPost,
		Path:          "/api/v1/content/{id}/reads",
		Summary:       "Record read",
		Description:   "Counts one read of a content item",
		Tags:          []string{"Content"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleRecordRead)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAuthorContent",
		Method:      http.MethodGet,
		Path:        "/api/v1/authors/{id}/content",
		Summary:     "List author content",
		Description: "Returns every item published by an author, newest first",
		Tags:        []string{"Content"},
	}, s.handleListAuthorContent)
}

// === DTOs ===

// ListContentInput contains parameters for listing content.
type ListContentInput struct {
	Category string `query:"category" doc:"Category name, or 'all'"`
	Query    string `query:"q" maxLength:"200" doc:"Case-insensitive text matched against title and description"`
}

// ContentListResponse is a page of content items.
type ContentListResponse struct {
	Items []*domain.ContentItem `json:"items" doc:"Content items"`
}

// ContentListOutput wraps the list response for Huma.
type ContentListOutput struct {
	Body ContentListResponse
}

// CreateContentInput contains the draft to publish.
type CreateContentInput struct {
	Body domain.ContentDraft
}

// ContentOutput wraps a single content item for Huma.
type ContentOutput struct {
	Body *domain.ContentItem
}

// ViewContentInput contains parameters for viewing content.
type ViewContentInput struct {
	ID     string `path:"id" doc:"Content ID"`
	Format string `query:"format" enum:"html,markdown" doc:"Body format, html by default"`
}

// ContentIDInput identifies a content item.
type ContentIDInput struct {
	ID string `path:"id" doc:"Content ID"`
}

// AuthorIDInput identifies an author.
type AuthorIDInput struct {
	ID string `path:"id" doc:"Author user ID"`
}

// === Handlers ===

func (s *Server) handleListContent(ctx context.Context, input *ListContentInput) (*ContentListOutput, error) {
	items, err := s.services.Content.List(ctx, service.ListContentRequest{
		Category: input.Category,
		Query:    input.Query,
	})
	if err != nil {
		return nil, err
	}
	return &ContentListOutput{Body: ContentListResponse{Items: items}}, nil
}

func (s *Server) handleCreateContent(ctx context.Context, input *CreateContentInput) (*ContentOutput, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	item, err := s.services.Content.Create(ctx, identity, input.Body)
	if err != nil {
		return nil, err
	}
	return &ContentOutput{Body: item}, nil
}

func (s *Server) handleViewContent(ctx context.Context, input *ViewContentInput) (*ContentOutput, error) {
	format, err := sanitize.ParseFormat(input.Format)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	item, err := s.services.Content.View(ctx, input.ID, format)
	if err != nil {
		return nil, err
	}
	return &ContentOutput{Body: item}, nil
}

func (s *Server) handleRecordRead(ctx context.Context, input *ContentIDInput) (*struct{}, error) {
	if err := s.services.Content.IncrementReadCount(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleListAuthorContent(ctx context.Context, input *AuthorIDInput) (*ContentListOutput, error) {
	items, err := s.services.Content.ListByAuthor(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ContentListOutput{Body: ContentListResponse{Items: items}}, nil
}
