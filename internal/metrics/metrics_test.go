package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveLogin(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveLogin(OutcomeSuccess)
	m.ObserveLogin(OutcomeSuccess)
	m.ObserveLogin(OutcomeNotCollaborator)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues(OutcomeNotCollaborator)))
}

func TestInstrument_UsesRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/auth/callback", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, code := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?code="+code, nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/auth/callback", "404"))
	assert.Equal(t, 3.0, got)
}

func TestHandler_Exposes(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveLogin(OutcomeExchangeFailed)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `auth_callback_total{outcome="exchange_failed"} 1`))
}
