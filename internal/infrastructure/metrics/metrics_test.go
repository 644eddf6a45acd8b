package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TransitionCommitted("assigned")
	m.TransitionCommitted("assigned")
	m.NotificationSent("order_created")
	m.NotificationFailed("order_completed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("assigned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("order_created", "delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("order_completed", "failed")))
}

func TestMetrics_RegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	first.TransitionCommitted("created")
	second.TransitionCommitted("created")

	assert.Equal(t, 2.0, testutil.ToFloat64(first.transitions.WithLabelValues("created")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.TransitionCommitted("created")
		m.NotificationSent("order_created")
		m.NotificationFailed("order_created")
	})
}

func TestMetrics_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/12", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/orders/{orderId}", "GET", "404")))
}
