package container

import (
	"context"
	"fmt"
	"sync"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the registrations of one subsystem.
//
// Register is called first for every provider; Boot is called after ALL
// providers have been registered, making it safe to resolve other services
// inside Boot.
//
//	type ThemeProvider struct{ container.BaseProvider }
//
//	func (p *ThemeProvider) Register(c *container.Container) {
//	    c.Register("theme", newTheme, container.DependsOn("store"))
//	}
//
//	func (p *ThemeProvider) Boot(ctx context.Context, c *container.Container) error {
//	    _, err := c.Resolve(ctx, "theme")
//	    return err
//	}
type ServiceProvider interface {
	// Register adds definitions to the container.
	// Do NOT resolve other services here; use Boot for that.
	Register(c *Container)

	// Boot is called after all providers are registered.
	Boot(ctx context.Context, c *Container) error

	// Provides returns the names this provider registers.
	// Used for deferred (lazy) provider loading.
	Provides() []string

	// IsDeferred returns true if this provider should be loaded lazily,
	// only when one of its Provides() names is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct that provides no-op implementations
// of Boot(), Provides(), and IsDeferred().
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(c *container.Container) { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(context.Context, *Container) error { return nil }
func (p *BaseProvider) Provides() []string                    { return nil }
func (p *BaseProvider) IsDeferred() bool                      { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred (lazy) providers, and replays them after a Clear.
type ProviderRegistry struct {
	app *Container

	mu         sync.Mutex
	ordered    []ServiceProvider // registration order, eager and deferred
	eager      []ServiceProvider
	loaded     map[ServiceProvider]bool // deferred providers already registered for real
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		loaded:     make(map[ServiceProvider]bool),
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register() method (unless deferred).
// A provider added after Boot is booted immediately.
func (r *ProviderRegistry) Register(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true
	r.ordered = append(r.ordered, provider)
	booted := r.booted
	r.mu.Unlock()

	return r.install(ctx, provider, booted)
}

// install wires a provider into the container: placeholders for deferred
// providers, Register (and Boot when already booted) for eager ones.
func (r *ProviderRegistry) install(ctx context.Context, provider ServiceProvider, booted bool) error {
	if provider.IsDeferred() {
		r.interceptDeferred(provider)
		return nil
	}

	provider.Register(r.app)
	r.mu.Lock()
	r.eager = append(r.eager, provider)
	r.mu.Unlock()

	if booted {
		return bootProvider(ctx, r.app, provider)
	}
	return nil
}

// interceptDeferred registers a placeholder for each deferred name.
// The first Resolve of any of them registers the provider for real.
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider) {
	for _, name := range provider.Provides() {
		r.app.Register(name, func(ctx context.Context, _ ...any) (any, error) {
			if err := r.loadDeferred(ctx, provider); err != nil {
				return nil, err
			}
			return r.app.resolveReplaced(ctx, name)
		}, Transient(), placeholder())
	}
}

func (r *ProviderRegistry) loadDeferred(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	if r.loaded[provider] {
		r.mu.Unlock()
		return nil
	}
	r.loaded[provider] = true
	provider.Register(r.app)
	booted := r.booted
	r.mu.Unlock()

	if booted {
		return bootProvider(ctx, r.app, provider)
	}
	return nil
}

// Boot calls Boot() on all eager providers, in registration order, and stops
// at the first error. Must be called after ALL providers have been registered.
func (r *ProviderRegistry) Boot(ctx context.Context) error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	eager := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range eager {
		if err := bootProvider(ctx, r.app, provider); err != nil {
			return err
		}
	}
	return nil
}

// Rebuild clears the container and replays every provider in registration
// order, then boots again. This is the hot-reload path.
func (r *ProviderRegistry) Rebuild(ctx context.Context) error {
	r.app.Clear()

	r.mu.Lock()
	providers := append([]ServiceProvider(nil), r.ordered...)
	r.eager = nil
	r.loaded = make(map[ServiceProvider]bool)
	r.booted = false
	r.mu.Unlock()

	for _, provider := range providers {
		if err := r.install(ctx, provider, false); err != nil {
			return err
		}
	}
	return r.Boot(ctx)
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}

// placeholder marks the stand-in definition of a deferred provider.
func placeholder() Option {
	return func(d *ServiceDefinition) { d.placeholder = true }
}

func bootProvider(ctx context.Context, c *Container, provider ServiceProvider) error {
	if err := provider.Boot(ctx, c); err != nil {
		return fmt.Errorf("container: booting %T: %w", provider, err)
	}
	return nil
}

// resolveReplaced resolves a name whose placeholder factory is currently
// running and has just replaced its own definition. It bypasses the in-flight
// group, which is already held for name by the placeholder.
func (c *Container) resolveReplaced(ctx context.Context, name string) (any, error) {
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
	gen := c.generation
	c.mu.RUnlock()

	switch {
	case !ok:
		return nil, &NotRegisteredError{Name: name}
	case cycle != nil:
		return nil, cycle
	case def.placeholder:
		return nil, fmt.Errorf("container: deferred provider did not register %q", name)
	}
	return c.build(ctx, key, gen)
}
