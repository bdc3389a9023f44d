package providers

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/talespring/talespring-server/internal/config"
	"github.com/talespring/talespring-server/internal/logger"
	"github.com/talespring/talespring-server/internal/store"
	"github.com/talespring/talespring-server/internal/store/kv"
	"github.com/talespring/talespring-server/internal/store/memory"
	"github.com/talespring/talespring-server/internal/store/postgres"
	"github.com/talespring/talespring-server/internal/store/redisstore"
	"github.com/talespring/talespring-server/internal/store/sqlite"
)

// StoreHandle wraps the primary store with shutdown capability.
type StoreHandle struct {
	store.Store
	Backend string
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured content and relation store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var (
		st  store.Store
		err error
	)
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		st = memory.New()
	case config.BackendSQLite:
		st, err = sqlite.Open(filepath.Join(cfg.Storage.DataPath, "talespring.db"), log.Component("sqlite"))
	case config.BackendKV:
		st, err = kv.Open(filepath.Join(cfg.Storage.DataPath, "kv"), log.Component("kv"), kv.Options{})
	case config.BackendPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		st, err = postgres.Connect(ctx, cfg.Storage.PostgresDSN, log.Component("postgres"), postgres.PoolConfig{})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}

	log.Info("Store initialized", "backend", cfg.Storage.Backend)
	return &StoreHandle{Store: st, Backend: cfg.Storage.Backend}, nil
}

// RelationsHandle holds the relation store in use. It is the primary store
// unless a standalone relation backend is configured.
type RelationsHandle struct {
	store.RelationStore
	Backend string
	closer  func() error
	pinger  store.Pinger
}

// Shutdown implements do.Shutdownable.
func (h *RelationsHandle) Shutdown() error {
	if h.closer == nil {
		return nil
	}
	return h.closer()
}

// Standalone reports whether relations live outside the primary store.
func (h *RelationsHandle) Standalone() bool {
	return h.closer != nil
}

// ProvideRelations provides the configured relation store.
func ProvideRelations(i do.Injector) (*RelationsHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	switch cfg.Storage.RelationBackend {
	case config.RelationBackendStore:
		return &RelationsHandle{RelationStore: storeHandle.Store, Backend: storeHandle.Backend}, nil
	case config.RelationBackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		rs, err := redisstore.Open(ctx, cfg.Storage.RedisURL, log.Component("redis"))
		if err != nil {
			return nil, fmt.Errorf("open redis relation store: %w", err)
		}
		log.Info("Relation store initialized", "backend", "redis")
		return &RelationsHandle{RelationStore: rs, Backend: "redis", closer: rs.Close, pinger: rs}, nil
	default:
		return nil, fmt.Errorf("unknown relation backend %q", cfg.Storage.RelationBackend)
	}
}

// healthChecks lists the backends /health should ping.
func healthChecks(storeHandle *StoreHandle, relations *RelationsHandle) map[string]store.Pinger {
	checks := map[string]store.Pinger{storeHandle.Backend: storeHandle.Store}
	if relations.pinger != nil {
		checks[relations.Backend] = relations.pinger
	}
	return checks
}
