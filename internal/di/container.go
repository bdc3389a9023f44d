// Package di provides dependency injection configuration for the Talespring server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/talespring/talespring-server/internal/auth"
	"github.com/talespring/talespring-server/internal/config"
	"github.com/talespring/talespring-server/internal/di/providers"
	"github.com/talespring/talespring-server/internal/logger"
	"github.com/talespring/talespring-server/internal/metrics"
	"github.com/talespring/talespring-server/internal/sanitize"
	"github.com/talespring/talespring-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)
	do.Provide(injector, providers.ProvideSanitizer)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideRelations)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideContentService)
	do.Provide(injector, providers.ProvideRelationService)
	do.Provide(injector, providers.ProvideLibraryService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns the HTTP server handle.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) (*providers.HTTPServerHandle, error) {
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return nil, err
	}
	if _, err := do.Invoke[*metrics.Metrics](injector); err != nil {
		return nil, err
	}
	if _, err := do.Invoke[*sanitize.Sanitizer](injector); err != nil {
		return nil, err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return nil, err
	}
	if _, err := do.Invoke[*providers.RelationsHandle](injector); err != nil {
		return nil, err
	}
	if _, err := do.Invoke[*auth.TokenService](injector); err != nil {
		return nil, err
	}

	// Business services
	if _, err := do.Invoke[*providers.ContentServiceHandle](injector); err != nil {
		return nil, err
	}
	if _, err := do.Invoke[*service.RelationService](injector); err != nil {
		return nil, err
	}
	if _, err := do.Invoke[*service.LibraryService](injector); err != nil {
		return nil, err
	}

	return do.Invoke[*providers.HTTPServerHandle](injector)
}
