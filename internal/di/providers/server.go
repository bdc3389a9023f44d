package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/talespring/talespring-server/internal/api"
	"github.com/talespring/talespring-server/internal/auth"
	"github.com/talespring/talespring-server/internal/config"
	"github.com/talespring/talespring-server/internal/logger"
	"github.com/talespring/talespring-server/internal/metrics"
	"github.com/talespring/talespring-server/internal/service"
)

// HTTPServerHandle wraps api.Server with Shutdownable.
type HTTPServerHandle struct {
	*api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server. It does not start listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	relations := do.MustInvoke[*RelationsHandle](i)
	content := do.MustInvoke[*ContentServiceHandle](i)

	services := &api.Services{
		Content:   content.ContentService,
		Relations: do.MustInvoke[*service.RelationService](i),
		Library:   do.MustInvoke[*service.LibraryService](i),
		Tokens:    do.MustInvoke[*auth.TokenService](i),
		Metrics:   do.MustInvoke[*metrics.Metrics](i),
		Health:    healthChecks(storeHandle, relations),
	}

	srv := api.NewServer(api.Config{
		Port:               cfg.Server.Port,
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		IdleTimeout:        cfg.Server.IdleTimeout,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		RateLimitBurst:     cfg.Server.RateLimitBurst,
	}, services, log.Component("http"))

	return &HTTPServerHandle{Server: srv}, nil
}
