package app

import (
	"errors"
	"fmt"
	"slices"

	"github.com/km-arc/portal-runtime/framework/store"
)

var (
	ErrUnknownTheme      = errors.New("app: unknown theme")
	ErrUnknownIntroPhase = errors.New("app: unknown intro phase")
)

// ── Theme ─────────────────────────────────────────────────────────────────────

// Theme switches between the light and dark palettes.
type Theme struct {
	store *store.Store
}

// NewTheme registers the SET_THEME reducer on st.
func NewTheme(st *store.Store) *Theme {
	st.AddReducer(SetTheme, func(_ store.State, a store.Action) store.State {
		theme, _ := a.Payload.(string)
		if theme != Light && theme != Dark {
			return nil
		}
		return store.State{FieldTheme: theme}
	})
	return &Theme{store: st}
}

// Set dispatches SET_THEME.
func (t *Theme) Set(theme string) error {
	if theme != Light && theme != Dark {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, theme)
	}
	return t.store.Dispatch(store.Action{Type: SetTheme, Payload: theme})
}

// Toggle flips between light and dark.
func (t *Theme) Toggle() error {
	if t.Current() == Dark {
		return t.Set(Light)
	}
	return t.Set(Dark)
}

// Current returns the active theme.
func (t *Theme) Current() string {
	theme, _ := t.store.GetOr(FieldTheme, Light).(string)
	return theme
}

// ── Navigation ────────────────────────────────────────────────────────────────

// Navigation owns the mobile menu flag.
type Navigation struct {
	store *store.Store
}

// NewNavigation registers the TOGGLE_NAV reducer. A bool payload forces the
// menu open or closed; any other payload flips it.
func NewNavigation(st *store.Store) *Navigation {
	st.AddReducer(ToggleNav, func(s store.State, a store.Action) store.State {
		if open, ok := a.Payload.(bool); ok {
			return store.State{FieldNavOpen: open}
		}
		open, _ := s[FieldNavOpen].(bool)
		return store.State{FieldNavOpen: !open}
	})
	return &Navigation{store: st}
}

func (n *Navigation) Toggle() error {
	return n.store.Dispatch(store.Action{Type: ToggleNav})
}

// Close closes the menu, e.g. after a link was followed.
func (n *Navigation) Close() error {
	return n.store.Dispatch(store.Action{Type: ToggleNav, Payload: false})
}

func (n *Navigation) IsOpen() bool {
	open, _ := n.store.Get(FieldNavOpen).(bool)
	return open
}

// ── Network ───────────────────────────────────────────────────────────────────

// Network tracks connectivity reported by the browser shell.
type Network struct {
	store *store.Store
}

// NewNetwork registers the NETWORK_STATUS_CHANGED reducer and the
// isDarkOffline computed property. It needs the theme module so the theme
// field has a writer.
func NewNetwork(st *store.Store, _ *Theme) *Network {
	st.AddReducer(NetworkStatusChanged, func(_ store.State, a store.Action) store.State {
		online, ok := a.Payload.(bool)
		if !ok {
			return nil
		}
		return store.State{FieldOnline: online}
	})
	st.CreateComputed(ComputedDarkOffline, func(s store.State) any {
		online, _ := s[FieldOnline].(bool)
		return s[FieldTheme] == Dark && !online
	}, []string{FieldTheme, FieldOnline}, nil)
	return &Network{store: st}
}

// Report dispatches a connectivity change. Flapping reports may be dropped
// by the throttle middleware.
func (n *Network) Report(online bool) error {
	return n.store.Dispatch(store.Action{Type: NetworkStatusChanged, Payload: online})
}

func (n *Network) Online() bool {
	online, _ := n.store.GetOr(FieldOnline, true).(bool)
	return online
}

// DarkOffline reads the computed property.
func (n *Network) DarkOffline() bool {
	v, _ := n.store.Computed(ComputedDarkOffline)
	dark, _ := v.(bool)
	return dark
}

// ── Intro ─────────────────────────────────────────────────────────────────────

var introPhases = []string{IntroPending, IntroPlaying, IntroDone}

// Intro sequences the landing animation: pending, playing, done.
type Intro struct {
	store *store.Store
}

// NewIntro registers the INTRO_PHASE_CHANGED reducer, which also keeps
// introAnimating in step with the phase.
func NewIntro(st *store.Store) *Intro {
	st.AddReducer(IntroPhaseChanged, func(_ store.State, a store.Action) store.State {
		phase, _ := a.Payload.(string)
		if !slices.Contains(introPhases, phase) {
			return nil
		}
		return store.State{FieldIntroPhase: phase, FieldIntroAnimating: phase == IntroPlaying}
	})
	return &Intro{store: st}
}

func (i *Intro) Phase() string {
	phase, _ := i.store.GetOr(FieldIntroPhase, IntroPending).(string)
	return phase
}

// SetPhase dispatches INTRO_PHASE_CHANGED.
func (i *Intro) SetPhase(phase string) error {
	if !slices.Contains(introPhases, phase) {
		return fmt.Errorf("%w: %q", ErrUnknownIntroPhase, phase)
	}
	return i.store.Dispatch(store.Action{Type: IntroPhaseChanged, Payload: phase})
}

// Advance moves to the next phase. It is a no-op once done.
func (i *Intro) Advance() error {
	idx := slices.Index(introPhases, i.Phase())
	if idx < 0 || idx == len(introPhases)-1 {
		return nil
	}
	return i.SetPhase(introPhases[idx+1])
}
