package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/user/image-scraper-service/pkg/metrics"
)

func requestCount(t *testing.T, method, path, status string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Write(&m))
	return m.GetCounter().GetValue()
}

func newRouter(logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(Logging(logger), Metrics)
	r.Get("/image/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "404" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	})
	return r
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	h := newRouter(zap.NewNop())
	before := requestCount(t, http.MethodGet, "/image/{id}", "404")
	beforeOK := requestCount(t, http.MethodGet, "/image/{id}", "200")

	for _, id := range []string{"404", "404", "7"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/image/"+id, nil))
	}

	assert.Equal(t, before+2, requestCount(t, http.MethodGet, "/image/{id}", "404"))
	assert.Equal(t, beforeOK+1, requestCount(t, http.MethodGet, "/image/{id}", "200"), "implicit 200 is recorded")
}

func TestLogging_RecordsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := newRouter(zap.New(core))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/image/404", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/image/1", nil))

	entries := logs.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 2)
	assert.EqualValues(t, http.StatusNotFound, entries[0].ContextMap()["status"])
	assert.EqualValues(t, http.StatusOK, entries[1].ContextMap()["status"])
}
