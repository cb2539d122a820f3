// Package app holds the portal modules shared by the marketing site, the
// admin dashboard and the client portal. Each module owns a few store fields
// and the reducers that write them; the providers in this package put the
// modules into the container.
package app

import "github.com/km-arc/portal-runtime/framework/store"

// Action types.
const (
	SetTheme             = "SET_THEME"
	ToggleNav            = "TOGGLE_NAV"
	NetworkStatusChanged = "NETWORK_STATUS_CHANGED"
	IntroPhaseChanged    = "INTRO_PHASE_CHANGED"
)

// Store fields.
const (
	FieldTheme          = "theme"
	FieldNavOpen        = "navOpen"
	FieldOnline         = "online"
	FieldIntroPhase     = "introPhase"
	FieldIntroAnimating = "introAnimating"
)

// ComputedDarkOffline is true while the dark theme is on and the network is
// down; the offline banner switches palette on it.
const ComputedDarkOffline = "isDarkOffline"

// Themes.
const (
	Light = "light"
	Dark  = "dark"
)

// Intro phases, in order.
const (
	IntroPending = "pending"
	IntroPlaying = "playing"
	IntroDone    = "done"
)

// InitialState is the state every portal starts from.
func InitialState() store.State {
	return store.State{
		FieldTheme:          Light,
		FieldNavOpen:        false,
		FieldOnline:         true,
		FieldIntroPhase:     IntroPending,
		FieldIntroAnimating: false,
	}
}
