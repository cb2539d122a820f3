package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/km-arc/portal-runtime/framework/config"
	"github.com/km-arc/portal-runtime/framework/container"
	"github.com/km-arc/portal-runtime/framework/inspector"
	"github.com/km-arc/portal-runtime/framework/logging"
	"github.com/km-arc/portal-runtime/framework/metrics"
	"github.com/km-arc/portal-runtime/framework/providers"
	"github.com/km-arc/portal-runtime/framework/store"
)

// Application is the composition root. It embeds the Container and owns the
// ProviderRegistry, so user code can call app.Register(), app.Resolve()
// directly. Nothing here is a package-level singleton: tests build as many
// isolated applications as they like.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	Config  *config.Config
	Log     *logrus.Logger
	Metrics *metrics.Collector
	Store   *store.Store

	startup []string
	initial store.State
}

// Option configures an Application.
type Option func(*Application)

// WithLogger replaces the logger built from the configuration.
func WithLogger(log *logrus.Logger) Option {
	return func(a *Application) { a.Log = log }
}

// WithInitialState sets the state the store starts from.
func WithInitialState(initial store.State) Option {
	return func(a *Application) { a.initial = initial }
}

// New builds the logger, metrics, container and store from cfg and registers
// the framework providers.
//
//	application := app.New(config.Load())
//	application.Register(ctx, &ThemeProvider{})
//	application.Startup("theme")
//	if err := application.Boot(ctx); err != nil { ... }
func New(cfg *config.Config, opts ...Option) *Application {
	a := &Application{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.Log == nil {
		a.Log = logging.New(cfg.Log, cfg.App.Name)
	}
	a.Metrics = metrics.NewCollector(cfg.Inspector.MetricsNamespace)

	a.Container = container.New(container.WithLogger(a.Log.WithField("component", "container")))
	a.Container.AfterResolving(func(r container.Resolution) {
		a.Metrics.RecordResolve(r.Name, r.Duration, r.Err, container.ErrNotRegistered, container.ErrCircularDependency)
	})

	a.Store = store.New(
		store.WithInitialState(a.initial),
		store.WithLogger(a.Log.WithField("component", "store")),
		store.WithHistoryLimit(cfg.Runtime.HistoryLimit),
		store.WithActionSource(cfg.Runtime.ActionSource),
	)
	a.Store.AddMiddleware(store.LoggingMiddleware(a.Log.WithField("component", "store")))
	a.Store.AddMiddleware(store.Instrument(a.Metrics))
	a.Store.AddMiddleware(store.ErrorRecorder())

	a.Providers = container.NewProviderRegistry(a.Container)
	a.startup = slices.Clone(cfg.Runtime.StartupOrder)

	// Framework providers only bind values and register factories; neither
	// can fail before Boot.
	ctx := context.Background()
	_ = a.Providers.Register(ctx, &providers.CoreProvider{
		Config: cfg, Log: a.Log, Metrics: a.Metrics, Store: a.Store,
	})
	_ = a.Providers.Register(ctx, &providers.InspectorProvider{})

	return a
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(ctx context.Context, provider container.ServiceProvider) error {
	return a.Providers.Register(ctx, provider)
}

// Use appends store middleware. Call it once at bootstrap; middleware
// survives Reload.
func (a *Application) Use(mw ...store.Middleware) {
	for _, m := range mw {
		a.Store.AddMiddleware(m)
	}
}

// Startup appends names resolved, in order, at the end of Boot and Reload.
func (a *Application) Startup(names ...string) {
	a.startup = append(a.startup, names...)
}

// StartupOrder returns the names Boot resolves.
func (a *Application) StartupOrder() []string {
	return slices.Clone(a.startup)
}

// Boot boots every provider, then resolves the startup names in order.
func (a *Application) Boot(ctx context.Context) error {
	if err := a.Providers.Boot(ctx); err != nil {
		return err
	}
	return a.start(ctx)
}

// Reload is the hot-reload path: it stops the inspector, clears the
// container, replays every provider and runs the startup sequence again.
// The store and its state are kept.
func (a *Application) Reload(ctx context.Context) error {
	a.Log.Info("app: reloading")
	if err := a.stopInspector(ctx); err != nil {
		return err
	}
	if err := a.Providers.Rebuild(ctx); err != nil {
		return err
	}
	return a.start(ctx)
}

// Shutdown stops the inspector and destroys the store. The application is
// not reusable afterwards.
func (a *Application) Shutdown(ctx context.Context) error {
	err := a.stopInspector(ctx)
	a.Store.Destroy()
	a.Log.Info("app: shut down")
	return err
}

func (a *Application) start(ctx context.Context) error {
	for _, name := range a.startup {
		if _, err := a.Resolve(ctx, name); err != nil {
			a.recordStartupFailure(name, err)
			return fmt.Errorf("app: starting %q: %w", name, err)
		}
		a.Log.WithField("service", name).Debug("app: started")
	}
	return nil
}

// recordStartupFailure counts failures that happen before any factory runs,
// which AfterResolving never sees.
func (a *Application) recordStartupFailure(name string, err error) {
	var missing *container.NotRegisteredError
	switch {
	case errors.As(err, &missing) && missing.Name == name:
		a.Metrics.RecordResolveFailure(name, container.ErrNotRegistered.Error())
	case errors.Is(err, container.ErrCircularDependency):
		a.Metrics.RecordResolveFailure(name, container.ErrCircularDependency.Error())
	}
}

func (a *Application) stopInspector(ctx context.Context) error {
	if !a.Resolved("inspector") {
		return nil
	}
	srv, err := container.Resolve[*inspector.Server](ctx, a.Container, "inspector")
	if err != nil {
		return err
	}
	return srv.Shutdown(ctx)
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Config.IsProduction() }
func (a *Application) IsDebug() bool       { return a.Config.App.Debug }
