package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/km-arc/portal-runtime/framework/config"
	"github.com/km-arc/portal-runtime/framework/container"
	"github.com/km-arc/portal-runtime/framework/inspector"
	"github.com/km-arc/portal-runtime/framework/metrics"
	"github.com/km-arc/portal-runtime/framework/store"
)

// ── CoreProvider ──────────────────────────────────────────────────────────────

// CoreProvider binds the objects the application builds up front. They
// outlive a hot reload: Rebuild replays this provider with the same values.
//
// Bound abstracts:
//   - "config"   → *config.Config   (alias "configuration")
//   - "logger"   → *logrus.Logger   (alias "log")
//   - "metrics"  → *metrics.Collector
//   - "store"    → *store.Store     (alias "state")
type CoreProvider struct {
	container.BaseProvider
	Config  *config.Config
	Log     *logrus.Logger
	Metrics *metrics.Collector
	Store   *store.Store
}

func (p *CoreProvider) Register(app *container.Container) {
	app.Instance("config", p.Config)
	app.Alias("config", "configuration")

	app.Instance("logger", p.Log)
	app.Alias("logger", "log")

	app.Instance("metrics", p.Metrics)

	app.Instance("store", p.Store)
	app.Alias("store", "state")
}

// ── InspectorProvider ─────────────────────────────────────────────────────────

// InspectorProvider registers the debug HTTP server and starts it on Boot
// when INSPECTOR_ENABLED is set.
//
// Bound abstracts:
//   - "inspector" → *inspector.Server
type InspectorProvider struct {
	container.BaseProvider
}

func (p *InspectorProvider) Register(app *container.Container) {
	app.Register("inspector", func(_ context.Context, deps ...any) (any, error) {
		cfg := deps[0].(*config.Config)
		st := deps[1].(*store.Store)
		m := deps[2].(*metrics.Collector)
		c := deps[3].(*container.Container)
		log := deps[4].(logrus.FieldLogger)

		return inspector.New(cfg.Inspector.Addr, c, st, storeMetrics(m, st),
			log.WithField("component", "inspector")), nil
	}, container.DependsOn("config", "store", "metrics", "container", "logger"))
}

func (p *InspectorProvider) Boot(ctx context.Context, app *container.Container) error {
	cfg, err := container.Resolve[*config.Config](ctx, app, "config")
	if err != nil {
		return err
	}
	if !cfg.Inspector.Enabled {
		return nil
	}
	srv, err := container.Resolve[*inspector.Server](ctx, app, "inspector")
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("inspector: listen on %s: %w", cfg.Inspector.Addr, err)
	}
	return nil
}

// storeMetrics refreshes the store gauges before each scrape.
func storeMetrics(m *metrics.Collector, st *store.Store) http.Handler {
	h := m.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RecordStoreSize(st.HistorySize(), st.ListenerCount())
		h.ServeHTTP(w, r)
	})
}
