package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := New()
	m.ObserveSelection(true)
	m.ObserveSelection(false)
	m.ObserveSelection(false)
	m.ObserveValidation(OutcomeApplied, 3)
	m.ObserveTransition("pending", "processing")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.selections.WithLabelValues("default")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.selections.WithLabelValues("conditional")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validations.WithLabelValues(OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("pending", "processing")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveSelection(true)
	m.ObserveValidation(OutcomeBlocked, 0)
	m.ObserveTransition("a", "b")
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveValidation(OutcomeRequiresApproval, 10)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "quote_price_validations_total"))
}
