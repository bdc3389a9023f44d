package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/talespring/talespring-server/internal/domain"
)

func (s *Server) registerLibraryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getLibrary",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/library",
		Summary:     "Get library",
		Description: "Returns the caller's bookmarked and favorited items, most recently related first. Items that no longer exist are omitted.",
		Tags:        []string{"Library"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetLibrary)
}

// LibraryOutput wraps the library view for Huma.
type LibraryOutput struct {
	Body *domain.LibraryView
}

func (s *Server) handleGetLibrary(ctx context.Context, _ *struct{}) (*LibraryOutput, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Library.BuildLibraryView(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	return &LibraryOutput{Body: view}, nil
}
