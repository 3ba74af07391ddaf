package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAdapter(t *testing.T) {
	before := testutil.ToFloat64(AdapterResults.WithLabelValues("test_adapter", "ok"))
	ObserveAdapter("test_adapter", "ok", 120*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(AdapterResults.WithLabelValues("test_adapter", "ok")))
}

func TestSetUpstreamUp(t *testing.T) {
	SetUpstreamUp("test_upstream", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(UpstreamUp.WithLabelValues("test_upstream")))
	SetUpstreamUp("test_upstream", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(UpstreamUp.WithLabelValues("test_upstream")))
}

func TestMiddleware_LabelsByRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Middleware)
	r.HandleFunc("/api/subtitles/tmdb/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("/api/subtitles/tmdb/{id}", "GET", "418"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/subtitles/tmdb/550", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequests.WithLabelValues("/api/subtitles/tmdb/{id}", "GET", "418")))
}

func TestHandler_Exposition(t *testing.T) {
	SyntheticFallbacks.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "subgate_synthetic_fallbacks_total"))
}
