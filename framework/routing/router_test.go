package routing_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/km-arc/portal-runtime/framework/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func newRouter(t *testing.T) (*routing.Router, *logtest.Hook) {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return routing.New(log), hook
}

func do(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// ── HTTP verbs ────────────────────────────────────────────────────────────────

func TestRouter_Verbs(t *testing.T) {
	r, _ := newRouter(t)
	r.Get("/store", okHandler)
	r.Post("/store/undo", okHandler)
	r.Delete("/store/state/{key}", okHandler)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/store"},
		{http.MethodPost, "/store/undo"},
		{http.MethodDelete, "/store/state/theme"},
	} {
		if rr := do(t, r, tc.method, tc.path); rr.Code != http.StatusOK {
			t.Errorf("%s %s: got %d want 200", tc.method, tc.path, rr.Code)
		}
	}
}

func TestRouter_NotFound(t *testing.T) {
	r, _ := newRouter(t)
	if rr := do(t, r, http.MethodGet, "/not-registered"); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestRouter_Handle(t *testing.T) {
	r, _ := newRouter(t)
	r.Handle("/metrics", http.HandlerFunc(okHandler))

	if rr := do(t, r, http.MethodGet, "/metrics"); rr.Code != http.StatusOK {
		t.Errorf("GET /metrics: got %d want 200", rr.Code)
	}
}

// ── Prefix / Middleware ──────────────────────────────────────────────────────

func TestRouter_Prefix(t *testing.T) {
	r, _ := newRouter(t)
	r.Prefix("/debug", func(d *routing.Router) {
		d.Get("/container", okHandler)
	})

	if rr := do(t, r, http.MethodGet, "/debug/container"); rr.Code != http.StatusOK {
		t.Errorf("GET /debug/container: got %d want 200", rr.Code)
	}
	if rr := do(t, r, http.MethodGet, "/container"); rr.Code != http.StatusNotFound {
		t.Errorf("GET /container: expected 404, got %d", rr.Code)
	}
}

func TestRouter_PrefixMiddleware(t *testing.T) {
	called := false
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r)
		})
	}

	r, _ := newRouter(t)
	r.Prefix("/debug", func(d *routing.Router) {
		d.Middleware(mw)
		d.Get("/store", okHandler)
	})

	do(t, r, http.MethodGet, "/debug/store")
	if !called {
		t.Error("expected middleware to be called")
	}
}

// ── Logging and recovery ─────────────────────────────────────────────────────

func TestRouter_LogsRequests(t *testing.T) {
	r, hook := newRouter(t)
	r.Get("/store", okHandler)

	do(t, r, http.MethodGet, "/store")

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Data["path"] != "/store" || entry.Data["status"] != http.StatusOK {
		t.Errorf("unexpected fields: %v", entry.Data)
	}
	if id, _ := entry.Data["request_id"].(string); id == "" {
		t.Error("expected a request id")
	}
}

func TestRouter_RecoversPanics(t *testing.T) {
	r, hook := newRouter(t)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rr := do(t, r, http.MethodGet, "/boom")

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("got %d want 500", rr.Code)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.WarnLevel {
		t.Errorf("expected a warning for the failed request, got %v", entry)
	}
}

func TestRouter_HandlerInterface(t *testing.T) {
	r, _ := newRouter(t)
	r.Get("/", okHandler)

	var h http.Handler = r.Handler()
	if rr := do(t, h, http.MethodGet, "/"); rr.Code != http.StatusOK {
		t.Errorf("Handler(): got %d want 200", rr.Code)
	}
}
