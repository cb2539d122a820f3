package container_test

import (
	"context"
	"errors"
	"testing"

	"github.com/km-arc/portal-runtime/framework/container"
)

// ── stub providers ────────────────────────────────────────────────────────────

type eagerProvider struct {
	container.BaseProvider
	registerCalls int
	bootCalls     int
}

func (p *eagerProvider) Register(c *container.Container) {
	p.registerCalls++
	c.Register("eager-svc", func(context.Context, ...any) (any, error) { return "eager", nil })
}

func (p *eagerProvider) Boot(ctx context.Context, c *container.Container) error {
	p.bootCalls++
	_, err := c.Resolve(ctx, "eager-svc")
	return err
}

// deferredProvider is lazy: only registered when "deferred-svc" is first resolved.
type deferredProvider struct {
	container.BaseProvider
	registerCalls int
	bootCalls     int
}

func (p *deferredProvider) Register(c *container.Container) {
	p.registerCalls++
	c.Register("deferred-svc", func(context.Context, ...any) (any, error) { return "deferred-value", nil },
		container.DependsOn("eager-svc"))
}

func (p *deferredProvider) Boot(context.Context, *container.Container) error {
	p.bootCalls++
	return nil
}

func (p *deferredProvider) IsDeferred() bool   { return true }
func (p *deferredProvider) Provides() []string { return []string{"deferred-svc"} }

// lazyLiar claims a name it never registers.
type lazyLiar struct{ container.BaseProvider }

func (p *lazyLiar) Register(*container.Container) {}
func (p *lazyLiar) IsDeferred() bool               { return true }
func (p *lazyLiar) Provides() []string             { return []string{"phantom"} }

type failingProvider struct{ container.BaseProvider }

var errBootFailed = errors.New("boot failed")

func (p *failingProvider) Register(*container.Container) {}
func (p *failingProvider) Boot(context.Context, *container.Container) error {
	return errBootFailed
}

func mustRegister(t *testing.T, reg *container.ProviderRegistry, p container.ServiceProvider) {
	t.Helper()
	if err := reg.Register(context.Background(), p); err != nil {
		t.Fatalf("Register(%T): %v", p, err)
	}
}

// ── ProviderRegistry ──────────────────────────────────────────────────────────

func TestRegistry_EagerProvider_RegisterCalled(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())

	p := &eagerProvider{}
	mustRegister(t, reg, p)

	if p.registerCalls != 1 {
		t.Errorf("Register() should be called immediately for eager providers, got %d calls", p.registerCalls)
	}
}

func TestRegistry_EagerProvider_BootCalledAfterBoot(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())

	p := &eagerProvider{}
	mustRegister(t, reg, p)

	if p.bootCalls != 0 {
		t.Error("Boot() should NOT be called before registry.Boot()")
	}
	if err := reg.Boot(context.Background()); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if p.bootCalls != 1 {
		t.Error("Boot() should be called after registry.Boot()")
	}
}

func TestRegistry_Boot_IdempotentCallsAreIgnored(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	p := &eagerProvider{}
	mustRegister(t, reg, p)

	_ = reg.Boot(context.Background())
	_ = reg.Boot(context.Background())

	if !reg.Booted() {
		t.Error("Booted() should be true after Boot()")
	}
	if p.bootCalls != 1 {
		t.Errorf("boot calls: got %d want 1", p.bootCalls)
	}
}

func TestRegistry_Boot_PropagatesProviderError(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	mustRegister(t, reg, &failingProvider{})

	if err := reg.Boot(context.Background()); !errors.Is(err, errBootFailed) {
		t.Errorf("Boot: got %v, want errBootFailed", err)
	}
}

func TestRegistry_DuplicateRegister_Ignored(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())

	p := &eagerProvider{}
	mustRegister(t, reg, p)
	mustRegister(t, reg, p)

	if p.registerCalls != 1 {
		t.Errorf("provider should have been registered once, got %d", p.registerCalls)
	}
}

// ── Deferred providers ────────────────────────────────────────────────────────

func TestRegistry_DeferredProvider_NotRegisteredEagerly(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())

	p := &deferredProvider{}
	mustRegister(t, reg, p)
	_ = reg.Boot(context.Background())

	if p.registerCalls != 0 {
		t.Error("deferred provider Register() should not be called until Resolve()")
	}
}

func TestRegistry_DeferredProvider_RegisteredOnFirstResolve(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &deferredProvider{}
	mustRegister(t, reg, &eagerProvider{})
	mustRegister(t, reg, p)
	if err := reg.Boot(context.Background()); err != nil {
		t.Fatalf("Boot: %v", err)
	}

	for range 2 {
		got, err := container.Resolve[string](context.Background(), c, "deferred-svc")
		if err != nil {
			t.Fatalf("deferred-svc: %v", err)
		}
		if got != "deferred-value" {
			t.Errorf("deferred-svc: got %q, want 'deferred-value'", got)
		}
	}
	if p.registerCalls != 1 || p.bootCalls != 1 {
		t.Errorf("deferred provider: register=%d boot=%d, want 1/1", p.registerCalls, p.bootCalls)
	}
	if !c.Resolved("deferred-svc") {
		t.Error("deferred singleton should be cached after first resolve")
	}
}

func TestRegistry_DeferredProvider_MissingRegistration(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	mustRegister(t, reg, &lazyLiar{})

	if _, err := c.Resolve(context.Background(), "phantom"); err == nil {
		t.Error("expected an error for a deferred name the provider never registers")
	}
}

// ── Providers list ────────────────────────────────────────────────────────────

func TestRegistry_Providers_ReturnsEagerOnes(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	mustRegister(t, reg, &eagerProvider{})
	mustRegister(t, reg, &deferredProvider{})

	if len(reg.Providers()) != 1 {
		t.Errorf("Providers(): got %d, want 1 (eager only)", len(reg.Providers()))
	}
}

// ── BaseProvider defaults ─────────────────────────────────────────────────────

func TestBaseProvider_Defaults(t *testing.T) {
	var p container.BaseProvider

	if err := p.Boot(context.Background(), container.New()); err != nil {
		t.Errorf("BaseProvider.Boot() should be a no-op, got %v", err)
	}
	if p.IsDeferred() {
		t.Error("BaseProvider.IsDeferred() should be false")
	}
	if len(p.Provides()) != 0 {
		t.Error("BaseProvider.Provides() should return empty slice")
	}
}

// ── Boot after registration (late provider) ───────────────────────────────────

func TestRegistry_RegisterAfterBoot_BootsImmediately(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	_ = reg.Boot(context.Background())

	p := &eagerProvider{}
	mustRegister(t, reg, p)

	if p.bootCalls != 1 {
		t.Error("provider registered after Boot() should be booted immediately")
	}
}

// ── Rebuild (hot reload) ──────────────────────────────────────────────────────

func TestRegistry_Rebuild_ReplaysProviders(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	eager := &eagerProvider{}
	lazy := &deferredProvider{}
	mustRegister(t, reg, eager)
	mustRegister(t, reg, lazy)
	_ = reg.Boot(context.Background())
	c.Instance("stale", true)

	if err := reg.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	if c.Has("stale") {
		t.Error("Rebuild should clear registrations made outside providers")
	}
	if eager.registerCalls != 2 || eager.bootCalls != 2 {
		t.Errorf("eager provider: register=%d boot=%d, want 2/2", eager.registerCalls, eager.bootCalls)
	}
	if _, err := c.Resolve(context.Background(), "deferred-svc"); err != nil {
		t.Errorf("deferred-svc after rebuild: %v", err)
	}
	if lazy.registerCalls != 1 {
		t.Errorf("deferred provider should load lazily after rebuild, got %d registers", lazy.registerCalls)
	}
}
