package di

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talespring/talespring-server/internal/config"
	"github.com/talespring/talespring-server/internal/di/providers"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		App:    config.AppConfig{Environment: "test"},
		Logger: config.LoggerConfig{Level: "error"},
		Storage: config.StorageConfig{
			DataPath:        t.TempDir(),
			Backend:         backend,
			RelationBackend: config.RelationBackendStore,
		},
		Server: config.ServerConfig{
			Port:               "0",
			RateLimitPerMinute: 60,
			RateLimitBurst:     10,
		},
	}
}

func TestBootstrap(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendSQLite, config.BackendKV} {
		t.Run(backend, func(t *testing.T) {
			injector := NewContainer(testConfig(t, backend))

			srv, err := Bootstrap(injector)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), backend)

			storeHandle := do.MustInvoke[*providers.StoreHandle](injector)
			assert.Equal(t, backend, storeHandle.Backend)

			report := injector.Shutdown()
			assert.True(t, report.Succeed, report.Error())
			assert.Empty(t, report.Errors)
		})
	}
}

func TestBootstrap_UnknownBackend(t *testing.T) {
	injector := NewContainer(testConfig(t, "cassandra"))

	t.Cleanup(func() { _ = injector.Shutdown() })

	_, err := Bootstrap(injector)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cassandra")
}
