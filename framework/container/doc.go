// Package container provides the service container shared by the marketing
// site, the admin dashboard and the client portal: a named registry of
// factories with dependency lists and singleton caching.
//
// # Overview
//
// Services are registered by name with a factory and an optional list of
// dependency names. Resolving a name resolves its dependencies first
// (concurrently), passes the instances to the factory positionally and caches
// the result when the service is a singleton (the default).
//
// Three guarantees hold under concurrent callers:
//
//   - a singleton factory runs at most once, however many goroutines call
//     Resolve before the first call settles;
//   - a dependency cycle is reported before any factory in the cycle runs;
//   - a failed resolution leaves no in-flight bookkeeping behind, so the name
//     can be resolved again.
//
// # Container Lifecycle
//
//  1. Create: c := container.New(container.WithLogger(log))
//  2. Register providers: registry.Register(ctx, &MyProvider{})
//  3. Boot: registry.Boot(ctx)        (safe to resolve everything after this)
//  4. Hot reload: registry.Rebuild(ctx) clears the container and replays every provider
//
// # Registering
//
//	// Singleton (default), built from one dependency
//	c.Register("theme", func(ctx context.Context, deps ...any) (any, error) {
//	    return NewTheme(deps[0].(*store.Store)), nil
//	}, container.DependsOn("store"))
//
//	// Transient: new instance per resolution
//	c.Register("clock", newClock, container.Transient())
//
//	// Pre-built value
//	c.Instance("config", cfg)
//
//	// Alias
//	c.Alias("store", "state")
//
// # Resolving
//
//	raw, err := c.Resolve(ctx, "theme")
//
//	// Generic (no type assertion required)
//	theme, err := container.Resolve[*Theme](ctx, c, "theme")
//
// # Errors
//
//	_, err := c.Resolve(ctx, "missing")
//	errors.Is(err, container.ErrNotRegistered)      // true
//
//	var cycle *container.CircularDependencyError
//	errors.As(err, &cycle)                           // cycle.Path: [X Y X]
//
// Errors returned by a factory reach every waiting caller unchanged.
//
// # Tags and Extenders
//
//	c.Tag([]string{"theme", "network"}, "modules")
//	modules, err := c.Tagged(ctx, "modules")
//
//	c.Extend("logger", func(instance any, c *container.Container) any {
//	    return instance.(*logrus.Logger).WithField("component", "portal")
//	})
//
// # Deferred Providers
//
//	type ReportsProvider struct{ container.BaseProvider }
//
//	func (p *ReportsProvider) IsDeferred() bool   { return true }
//	func (p *ReportsProvider) Provides() []string { return []string{"reports"} }
//	func (p *ReportsProvider) Register(c *container.Container) {
//	    c.Register("reports", newReports) // only called on first Resolve("reports")
//	}
package container
