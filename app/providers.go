package app

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/km-arc/portal-runtime/framework/config"
	"github.com/km-arc/portal-runtime/framework/container"
	"github.com/km-arc/portal-runtime/framework/store"
)

// Modules is the startup order of the portal modules. The intro module is
// not in it: its provider is deferred and builds on first use.
var Modules = []string{"theme", "navigation", "network"}

// Providers returns one provider per module, in startup order.
func Providers() []container.ServiceProvider {
	return []container.ServiceProvider{
		&ThemeProvider{},
		&NavigationProvider{},
		&NetworkProvider{},
		&IntroProvider{},
	}
}

// Middleware returns the store middleware the modules need. Install it once;
// it is not replayed on reload.
func Middleware(cfg *config.Config) []store.Middleware {
	if cfg.Runtime.NetworkThrottle <= 0 {
		return nil
	}
	return []store.Middleware{
		store.Throttle(rate.Limit(cfg.Runtime.NetworkThrottle), 1, NetworkStatusChanged),
	}
}

func storeDep(deps []any) *store.Store { return deps[0].(*store.Store) }

// ── Providers ─────────────────────────────────────────────────────────────────

// ThemeProvider binds "theme" → *Theme.
type ThemeProvider struct{ container.BaseProvider }

func (p *ThemeProvider) Register(c *container.Container) {
	c.Singleton("theme", func(_ context.Context, deps ...any) (any, error) {
		return NewTheme(storeDep(deps)), nil
	}, "store")
}

// NavigationProvider binds "navigation" → *Navigation (alias "nav").
type NavigationProvider struct{ container.BaseProvider }

func (p *NavigationProvider) Register(c *container.Container) {
	c.Singleton("navigation", func(_ context.Context, deps ...any) (any, error) {
		return NewNavigation(storeDep(deps)), nil
	}, "store")
	c.Alias("navigation", "nav")
}

// NetworkProvider binds "network" → *Network.
type NetworkProvider struct{ container.BaseProvider }

func (p *NetworkProvider) Register(c *container.Container) {
	c.Singleton("network", func(_ context.Context, deps ...any) (any, error) {
		return NewNetwork(storeDep(deps), deps[1].(*Theme)), nil
	}, "store", "theme")
}

// IntroProvider binds "intro" → *Intro. It is deferred: pages without the
// landing animation never build it.
type IntroProvider struct{ container.BaseProvider }

func (p *IntroProvider) Register(c *container.Container) {
	c.Singleton("intro", func(_ context.Context, deps ...any) (any, error) {
		return NewIntro(storeDep(deps)), nil
	}, "store")
}

func (p *IntroProvider) IsDeferred() bool   { return true }
func (p *IntroProvider) Provides() []string { return []string{"intro"} }
