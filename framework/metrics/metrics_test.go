package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector_DefaultNamespace(t *testing.T) {
	c := NewCollector("")
	require.NotNil(t, c)
	require.NotNil(t, c.Registry())

	c.ObserveDispatch("SET_THEME", time.Millisecond, nil)
	families, err := c.Registry().Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "portal_store_dispatch_total" {
			found = true
		}
	}
	assert.True(t, found, "expected portal_store_dispatch_total to be registered")
}

func TestCollector_RecordResolve(t *testing.T) {
	c := NewCollector("test")
	errCycle := errors.New("circular dependency")

	c.RecordResolve("theme", 2*time.Millisecond, nil)
	c.RecordResolve("theme", time.Millisecond, errors.New("boom"))
	c.RecordResolve("nav", time.Millisecond, errCycle, errCycle)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.resolutions.WithLabelValues("theme", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resolutions.WithLabelValues("theme", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dependencyFails.WithLabelValues("theme", "factory")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dependencyFails.WithLabelValues("nav", "circular dependency")))
}

func TestCollector_StoreMetrics(t *testing.T) {
	c := NewCollector("test")

	c.ObserveDispatch("TOGGLE_NAV", time.Microsecond, nil)
	c.ObserveDispatch("TOGGLE_NAV", time.Microsecond, errors.New("reducer failed"))
	c.RecordStoreSize(12, 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatchTotal.WithLabelValues("TOGGLE_NAV", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatchTotal.WithLabelValues("TOGGLE_NAV", "error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.historyEntries))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.listeners))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("test")
	c.RecordResolveFailure("missing", "not registered")

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "test_container_resolve_failures_total"))
}
