package container

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ── Definition types ──────────────────────────────────────────────────────────

// Factory builds a service. deps holds the resolved instances of the
// service's declared dependencies, positionally, in declaration order.
type Factory func(ctx context.Context, deps ...any) (any, error)

// ServiceDefinition is a registered service.
type ServiceDefinition struct {
	Name         string
	Factory      Factory
	Singleton    bool
	Dependencies []string

	// populated once, only for singletons
	instance any
	resolved bool

	placeholder bool
}

// Option configures a ServiceDefinition at registration time.
type Option func(*ServiceDefinition)

// Transient makes every Resolve outside an in-flight resolution run the factory again.
func Transient() Option {
	return func(d *ServiceDefinition) { d.Singleton = false }
}

// WithSingleton sets the singleton flag explicitly. Definitions are
// singletons by default.
func WithSingleton(singleton bool) Option {
	return func(d *ServiceDefinition) { d.Singleton = singleton }
}

// DependsOn declares the services whose instances are passed to the factory.
// Names are not checked at registration time; they may be registered later.
func DependsOn(names ...string) Option {
	return func(d *ServiceDefinition) { d.Dependencies = append(d.Dependencies, names...) }
}

// Extender decorates an instance right after its factory returns.
type Extender func(instance any, c *Container) any

// Resolution describes one factory execution, reported to AfterResolving callbacks.
type Resolution struct {
	Name     string
	Instance any
	Err      error
	Duration time.Duration
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is a named registry of factories with dependency lists,
// singleton caching and cycle and duplication safe resolution.
//
// It supports:
//   - Register / Instance / Alias
//   - Resolve (concurrent callers share one factory run)
//   - Tags (group multiple services under one tag)
//   - Extend (decorate resolved instances)
//   - AfterResolving callbacks
//
// A Container is safe for concurrent use.
type Container struct {
	mu sync.RWMutex

	// name → definition
	definitions map[string]*ServiceDefinition

	// alias → name (canonical key)
	aliases map[string]string

	// name → extender funcs
	extenders map[string][]Extender

	// tag → []name
	tags map[string][]string

	// names whose factory (or dependency fan-out) is currently running
	pending map[string]struct{}

	afterResolving []func(Resolution)

	// in-flight resolutions; replaced on Clear
	flights    *singleflight.Group
	generation uint64

	log logrus.FieldLogger
}

// ContainerOption configures a Container.
type ContainerOption func(*Container)

// WithLogger sets the logger used for resolution tracing.
func WithLogger(log logrus.FieldLogger) ContainerOption {
	return func(c *Container) { c.log = log }
}

// New creates an empty container. The container is registered into itself
// under the name "container".
func New(opts ...ContainerOption) *Container {
	c := &Container{}
	c.reset()
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.log = l
	}
	c.Instance("container", c)
	return c
}

// reset reinitialises every registry map (must hold mu.Lock or be unshared).
func (c *Container) reset() {
	c.definitions = make(map[string]*ServiceDefinition)
	c.aliases = make(map[string]string)
	c.extenders = make(map[string][]Extender)
	c.tags = make(map[string][]string)
	c.pending = make(map[string]struct{})
	c.flights = &singleflight.Group{}
	c.generation++
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register stores or overwrites the definition for name. A cached instance of
// a previous definition is dropped.
//
//	c.Register("theme", func(ctx context.Context, deps ...any) (any, error) {
//	    return NewThemeService(deps[0].(*store.Store)), nil
//	}, container.DependsOn("store"))
func (c *Container) Register(name string, factory Factory, opts ...Option) {
	def := &ServiceDefinition{Name: name, Factory: factory, Singleton: true}
	for _, opt := range opts {
		opt(def)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.definitions[c.canonical(name)] = def
}

// Singleton registers a cached factory. Shorthand for Register with defaults.
func (c *Container) Singleton(name string, factory Factory, deps ...string) {
	c.Register(name, factory, DependsOn(deps...))
}

// Bind registers a transient factory.
func (c *Container) Bind(name string, factory Factory, deps ...string) {
	c.Register(name, factory, Transient(), DependsOn(deps...))
}

// Instance registers a pre-built value as a resolved singleton.
//
//	c.Instance("config", cfg)
func (c *Container) Instance(name string, instance any) {
	def := &ServiceDefinition{
		Name:      name,
		Singleton: true,
		Factory:   func(context.Context, ...any) (any, error) { return instance, nil },
		instance:  instance,
		resolved:  true,
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.definitions[c.canonical(name)] = def
}

// Alias registers an alternative name for a service.
//
//	c.Alias("store", "state")
func (c *Container) Alias(name, alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == alias {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", name))
	}
	c.aliases[alias] = c.canonical(name)
}

// Extend decorates instances of a service. An already-cached singleton is
// decorated immediately.
//
//	c.Extend("logger", func(instance any, c *container.Container) any {
//	    return instance.(*logrus.Logger).WithField("component", "portal")
//	})
func (c *Container) Extend(name string, fn Extender) {
	c.mu.Lock()
	key := c.canonical(name)
	c.extenders[key] = append(c.extenders[key], fn)
	def, ok := c.definitions[key]
	cached := ok && def.Singleton && def.resolved
	var inst any
	if cached {
		inst = def.instance
	}
	c.mu.Unlock()

	if !cached {
		return
	}
	extended := fn(inst, c)
	c.mu.Lock()
	if cur := c.definitions[key]; cur == def {
		def.instance = extended
	}
	c.mu.Unlock()
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates multiple services under a named group.
//
//	c.Tag([]string{"theme", "network"}, "modules")
func (c *Container) Tag(names []string, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[tag] = append(c.tags[tag], names...)
}

// Tagged resolves every service registered under tag, in tag order.
func (c *Container) Tagged(ctx context.Context, tag string) ([]any, error) {
	c.mu.RLock()
	names := slices.Clone(c.tags[tag])
	c.mu.RUnlock()
	return c.ResolveAll(ctx, names...)
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Resolve returns the instance for name, running its factory if needed.
//
// A cached singleton is returned immediately. Otherwise the dependency graph
// reachable from name is checked for cycles before any factory runs, then a
// single resolution is shared by every concurrent caller: dependencies are
// resolved concurrently, the factory is invoked with them, and a singleton
// result is cached. Factory errors are returned unchanged to every caller
// awaiting that resolution; nothing is cached, so a later call retries.
//
// Cancelling ctx stops this caller waiting. The shared factory keeps running
// for the other callers; there is no factory cancellation.
func (c *Container) Resolve(ctx context.Context, name string) (any, error) {
	c.mu.RLock()
	key := c.canonical(name)
	def, ok := c.definitions[key]
	if ok && def.Singleton && def.resolved {
		inst := def.instance
		c.mu.RUnlock()
		return inst, nil
	}
	var cycle *CircularDependencyError
	if ok {
		cycle = c.findCycle(key)
	}
	flights, gen := c.flights, c.generation
	c.mu.RUnlock()

	if !ok {
		return nil, &NotRegisteredError{Name: name}
	}
	if cycle != nil {
		c.log.WithField("service", key).WithError(cycle).Warn("container: refusing to resolve")
		return nil, cycle
	}

	// Detached so one caller giving up does not fail the others sharing the flight.
	base := context.WithoutCancel(ctx)
	ch := flights.DoChan(key, func() (any, error) {
		return c.build(base, key, gen)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// ResolveAll resolves names sequentially in the given order and stops at the
// first failure. Bootstrap code uses it to bring up services in a fixed order.
func (c *Container) ResolveAll(ctx context.Context, names ...string) ([]any, error) {
	out := make([]any, 0, len(names))
	for _, name := range names {
		inst, err := c.Resolve(ctx, name)
		if err != nil {
			return out, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// build runs inside a flight. It is the only place a factory is invoked.
func (c *Container) build(ctx context.Context, key string, gen uint64) (instance any, err error) {
	c.mu.Lock()
	def, ok := c.definitions[key]
	if c.generation != gen || !ok {
		c.mu.Unlock()
		return nil, &NotRegisteredError{Name: key}
	}
	// A previous flight may have cached the instance after our caller checked.
	if def.Singleton && def.resolved {
		inst := def.instance
		c.mu.Unlock()
		return inst, nil
	}
	c.pending[key] = struct{}{}
	deps := slices.Clone(def.Dependencies)
	factory, singleton := def.Factory, def.Singleton
	c.mu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			instance, err = nil, &PanicError{Name: key, Value: r}
		}

		c.mu.Lock()
		if c.generation == gen {
			delete(c.pending, key)
			if err == nil && singleton && c.definitions[key] == def {
				def.instance = instance
				def.resolved = true
			}
		}
		c.mu.Unlock()

		took := time.Since(start)
		entry := c.log.WithFields(logrus.Fields{"service": key, "duration": took})
		if err != nil {
			entry.WithError(err).Debug("container: resolve failed")
		} else {
			entry.Debug("container: resolved")
		}
		c.fireAfterResolving(Resolution{Name: key, Instance: instance, Err: err, Duration: took})
	}()

	args, err := c.resolveDependencies(ctx, deps)
	if err != nil {
		return nil, err
	}

	instance, err = factory(ctx, args...)
	if err != nil {
		return nil, err
	}
	return c.applyExtenders(key, instance), nil
}

// resolveDependencies resolves deps concurrently; the first error wins.
func (c *Container) resolveDependencies(ctx context.Context, deps []string) ([]any, error) {
	if len(deps) == 0 {
		return nil, nil
	}
	args := make([]any, len(deps))
	g, gctx := errgroup.WithContext(ctx)
	for i, dep := range deps {
		g.Go(func() error {
			inst, err := c.Resolve(gctx, dep)
			if err != nil {
				return err
			}
			args[i] = inst
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return args, nil
}

// findCycle walks the registered graph from root (must hold mu.RLock).
// Cached singletons and unregistered names end a branch: resolving them never
// re-enters a factory.
func (c *Container) findCycle(root string) *CircularDependencyError {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int)
	var stack []string

	var walk func(name string) *CircularDependencyError
	walk = func(name string) *CircularDependencyError {
		switch state[name] {
		case onStack:
			i := slices.Index(stack, name)
			path := append(slices.Clone(stack[i:]), name)
			return &CircularDependencyError{Name: name, Path: path}
		case done:
			return nil
		}
		def, ok := c.definitions[name]
		if !ok || (def.Singleton && def.resolved) {
			state[name] = done
			return nil
		}
		state[name] = onStack
		stack = append(stack, name)
		for _, dep := range def.Dependencies {
			if err := walk(c.canonical(dep)); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}
	return walk(root)
}

func (c *Container) applyExtenders(key string, instance any) any {
	c.mu.RLock()
	exts := slices.Clone(c.extenders[key])
	c.mu.RUnlock()
	for _, ext := range exts {
		instance = ext(instance, c)
	}
	return instance
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Has returns true if a service has been registered.
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.definitions[c.canonical(name)]
	return ok
}

// Resolved returns true if a singleton instance is cached for name.
func (c *Container) Resolved(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.definitions[c.canonical(name)]
	return ok && def.Singleton && def.resolved
}

// Forget removes the registration (and cached instance) for a service.
func (c *Container) Forget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.definitions, c.canonical(name))
}

// Clear drops every registration, alias, tag, extender and cached instance,
// and forgets in-flight resolutions. Resolutions still running settle for
// their callers but never populate the cleared registry. The container
// re-registers itself as "container". Used by hot reload.
func (c *Container) Clear() {
	c.mu.Lock()
	c.reset()
	c.mu.Unlock()
	c.Instance("container", c)
	c.log.Debug("container: cleared")
}

// RegisteredServices returns the sorted names of all registered services.
func (c *Container) RegisteredServices() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.definitions))
	for k := range c.definitions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ServiceStatus describes one registered service.
type ServiceStatus struct {
	Name         string   `json:"name"`
	Singleton    bool     `json:"singleton"`
	Dependencies []string `json:"dependencies"`
	Resolved     bool     `json:"resolved"`
	Pending      bool     `json:"pending"`
}

// Status is a point-in-time view of the container. Introspection only.
type Status struct {
	Registered int               `json:"registered"`
	Instances  int               `json:"instances"`
	Pending    []string          `json:"pending"`
	Services   []ServiceStatus   `json:"services"`
	Aliases    map[string]string `json:"aliases,omitempty"`
}

// Status reports registrations, cached instances and in-flight resolutions.
func (c *Container) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Status{
		Registered: len(c.definitions),
		Pending:    make([]string, 0, len(c.pending)),
		Services:   make([]ServiceStatus, 0, len(c.definitions)),
	}
	for name := range c.pending {
		st.Pending = append(st.Pending, name)
	}
	sort.Strings(st.Pending)

	for name, def := range c.definitions {
		resolved := def.Singleton && def.resolved
		if resolved {
			st.Instances++
		}
		_, pending := c.pending[name]
		st.Services = append(st.Services, ServiceStatus{
			Name:         name,
			Singleton:    def.Singleton,
			Dependencies: slices.Clone(def.Dependencies),
			Resolved:     resolved,
			Pending:      pending,
		})
	}
	sort.Slice(st.Services, func(i, j int) bool { return st.Services[i].Name < st.Services[j].Name })

	if len(c.aliases) > 0 {
		st.Aliases = make(map[string]string, len(c.aliases))
		for k, v := range c.aliases {
			st.Aliases[k] = v
		}
	}
	return st
}

// canonical resolves an alias to its canonical key (must hold mu).
func (c *Container) canonical(name string) string {
	if target, ok := c.aliases[name]; ok {
		return target
	}
	return name
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired after every factory execution,
// successful or not. Cache hits do not fire it.
func (c *Container) AfterResolving(cb func(Resolution)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) fireAfterResolving(r Resolution) {
	c.mu.RLock()
	cbs := slices.Clone(c.afterResolving)
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(r)
	}
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve is a generic helper that resolves name and type-asserts the result.
//
//	theme, err := container.Resolve[*ThemeService](ctx, c, "theme")
func Resolve[T any](ctx context.Context, c *Container, name string) (T, error) {
	var zero T
	instance, err := c.Resolve(ctx, name)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, &TypeError{Name: name, Want: reflect.TypeFor[T]().String(), Got: fmt.Sprintf("%T", instance)}
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure. Meant for bootstrap code
// where a missing service is a programming error.
func MustResolve[T any](ctx context.Context, c *Container, name string) T {
	typed, err := Resolve[T](ctx, c, name)
	if err != nil {
		panic(err)
	}
	return typed
}
