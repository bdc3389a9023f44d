package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/talespring/talespring-server/internal/config"
	"github.com/talespring/talespring-server/internal/logger"
	"github.com/talespring/talespring-server/internal/metrics"
	"github.com/talespring/talespring-server/internal/sanitize"
	"github.com/talespring/talespring-server/internal/service"
)

// ContentServiceHandle wraps the content service so shutdown waits for
// background read increments.
type ContentServiceHandle struct {
	*service.ContentService
}

// Shutdown implements do.Shutdownable.
func (h *ContentServiceHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Drain(ctx)
}

// ProvideContentService provides the content service.
func ProvideContentService(i do.Injector) (*ContentServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sanitizer := do.MustInvoke[*sanitize.Sanitizer](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewContentService(storeHandle.Store, sanitizer, m, log.Component("content"), cfg.Reads.IncrementTimeout)
	return &ContentServiceHandle{ContentService: svc}, nil
}

// ProvideRelationService provides the relation service.
func ProvideRelationService(i do.Injector) (*service.RelationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	relations := do.MustInvoke[*RelationsHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRelationService(storeHandle.Store, relations.RelationStore, m, log.Component("relations")), nil
}

// ProvideLibraryService provides the library view aggregator.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	relations := do.MustInvoke[*RelationsHandle](i)
	sanitizer := do.MustInvoke[*sanitize.Sanitizer](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLibraryService(
		storeHandle.Store,
		relations.RelationStore,
		sanitizer,
		m,
		log.Component("library"),
		cfg.Library.FetchConcurrency,
	), nil
}
