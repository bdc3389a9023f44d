package api

import (
	"github.com/talespring/talespring-server/internal/auth"
	"github.com/talespring/talespring-server/internal/metrics"
	"github.com/talespring/talespring-server/internal/service"
	"github.com/talespring/talespring-server/internal/store"
)

// Services groups everything the handlers call.
type Services struct {
	Content   *service.ContentService
	Relations *service.RelationService
	Library   *service.LibraryService
	Tokens    *auth.TokenService
	Metrics   *metrics.Metrics
	// Health lists backends reported by /health, by component name.
	Health map[string]store.Pinger
}
