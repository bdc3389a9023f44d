// Package providers contains dependency injection providers for the Talespring server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/talespring/talespring-server/internal/config"
	"github.com/talespring/talespring-server/internal/logger"
	"github.com/talespring/talespring-server/internal/metrics"
	"github.com/talespring/talespring-server/internal/sanitize"
)

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Talespring Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"store_backend", cfg.Storage.Backend,
		"relation_backend", cfg.Storage.RelationBackend,
		"data_path", cfg.Storage.DataPath,
	)

	return log, nil
}

// ProvideMetrics provides the Prometheus instruments, including runtime collectors.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.NewWithRuntime(), nil
}

// ProvideSanitizer provides the body sanitizer.
func ProvideSanitizer(i do.Injector) (*sanitize.Sanitizer, error) {
	return sanitize.New(), nil
}
