package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRead(nil)
	m.RecordRead(nil)
	m.RecordRead(errors.New("boom"))
	m.RecordToggle("favorite", nil)
	m.RecordDrop(DropNotFound)
	m.ObserveLibraryBuild(time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReadIncrements.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReadIncrements.WithLabelValues(ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Toggles.WithLabelValues("favorite", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LibraryDropped.WithLabelValues(DropNotFound)))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRead(nil)
		m.RecordToggle("bookmark", nil)
		m.RecordDrop(DropError)
		m.ObserveLibraryBuild(time.Now())
	})
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordRead(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `talespring_read_increments_total{result="ok"} 1`)
}
