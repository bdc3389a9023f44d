package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/talespring/talespring-server/internal/domain"
)

func (s *Server) registerRelationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getRelationStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/relations/{contentId}",
		Summary:     "Get relation status",
		Description: "Returns whether the caller has favorited and bookmarked an item",
		Tags:        []string{"Relations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRelationStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "addRelation",
		Method:      http.MethodPut,
		Path:        "/api/v1/me/{kind}/{contentId}",
		Summary:     "Add relation",
		Description: "Favorites or bookmarks an item. Adding an existing relation is a no-op.",
		Tags:        []string{"Relations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddRelation)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeRelation",
		Method:      http.MethodDelete,
		Path:        "/api/v1/me/{kind}/{contentId}",
		Summary:     "Remove relation",
		Description: "Removes a favorite or bookmark. Removing an absent relation is a no-op.",
		Tags:        []string{"Relations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveRelation)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleRelation",
		Method:      http.MethodPost,
		Path:        "/api/v1/me/{kind}/{contentId}/toggle",
		Summary:     "Toggle relation",
		Description: "Flips a favorite or bookmark and returns the new state",
		Tags:        []string{"Relations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleRelation)
}

// === DTOs ===

// RelationStatusInput identifies the content item to report on.
type RelationStatusInput struct {
	ContentID string `path:"contentId" doc:"Content ID"`
}

// RelationStatusOutput wraps the relation status for Huma.
type RelationStatusOutput struct {
	Body domain.RelationStatus
}

// RelationInput identifies one relation of the caller.
type RelationInput struct {
	Kind      string `path:"kind" enum:"favorites,bookmarks" doc:"Relation collection"`
	ContentID string `path:"contentId" doc:"Content ID"`
}

// RelationStateResponse is the state of a relation after a write.
type RelationStateResponse struct {
	ContentID string              `json:"content_id" doc:"Content ID"`
	Kind      domain.RelationKind `json:"kind" doc:"Relation kind"`
	State     domain.Presence     `json:"state" doc:"present or absent"`
}

// RelationStateOutput wraps the relation state for Huma.
type RelationStateOutput struct {
	Body RelationStateResponse
}

// === Handlers ===

func (s *Server) handleRelationStatus(ctx context.Context, input *RelationStatusInput) (*RelationStatusOutput, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	status, err := s.services.Relations.Status(ctx, identity.ID, input.ContentID)
	if err != nil {
		return nil, err
	}
	return &RelationStatusOutput{Body: status}, nil
}

func (s *Server) handleAddRelation(ctx context.Context, input *RelationInput) (*RelationStateOutput, error) {
	key, err := relationKey(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.services.Relations.Add(ctx, key); err != nil {
		return nil, err
	}
	return relationState(key, domain.Present), nil
}

func (s *Server) handleRemoveRelation(ctx context.Context, input *RelationInput) (*RelationStateOutput, error) {
	key, err := relationKey(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.services.Relations.Remove(ctx, key); err != nil {
		return nil, err
	}
	return relationState(key, domain.Absent), nil
}

func (s *Server) handleToggleRelation(ctx context.Context, input *RelationInput) (*RelationStateOutput, error) {
	key, err := relationKey(ctx, input)
	if err != nil {
		return nil, err
	}
	state, err := s.services.Relations.Toggle(ctx, key)
	if err != nil {
		return nil, err
	}
	return relationState(key, state), nil
}

func relationKey(ctx context.Context, input *RelationInput) (domain.RelationKey, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return domain.RelationKey{}, err
	}
	kind, err := domain.ParseRelationKind(input.Kind)
	if err != nil {
		return domain.RelationKey{}, huma.Error422UnprocessableEntity(err.Error())
	}
	return domain.RelationKey{UserID: identity.ID, ContentID: input.ContentID, Kind: kind}, nil
}

func relationState(key domain.RelationKey, state domain.Presence) *RelationStateOutput {
	return &RelationStateOutput{Body: RelationStateResponse{
		ContentID: key.ContentID,
		Kind:      key.Kind,
		State:     state,
	}}
}
