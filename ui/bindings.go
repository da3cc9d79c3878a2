package ui

import (
	"fmt"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Action identifies a host command triggered from the keyboard or panel.
type Action string

// Host actions.
const (
	ActionToggleMenu  Action = "toggle_menu"
	ActionTogglePause Action = "toggle_pause"
	ActionTogglePanel Action = "toggle_panel"
	ActionRecapture   Action = "recapture"
	ActionSnapshot    Action = "snapshot"
	ActionScreenshot  Action = "screenshot"
)

// Binding maps a key to an action.
type Binding struct {
	Action   Action
	Name     string
	Key      int32
	KeyLabel string
}

// Bindings holds the key map in display order.
type Bindings struct {
	list []Binding
}

// NewBindings creates the default key map.
func NewBindings() *Bindings {
	return &Bindings{list: []Binding{
		{Action: ActionToggleMenu, Name: "Menu", Key: rl.KeyM, KeyLabel: "M"},
		{Action: ActionTogglePause, Name: "Pause", Key: rl.KeyP, KeyLabel: "P"},
		{Action: ActionTogglePanel, Name: "Panel", Key: rl.KeyTab, KeyLabel: "Tab"},
		{Action: ActionRecapture, Name: "Recapture", Key: rl.KeyR, KeyLabel: "R"},
		{Action: ActionSnapshot, Name: "Snapshot", Key: rl.KeyS, KeyLabel: "S"},
		{Action: ActionScreenshot, Name: "Frame PNG", Key: rl.KeyF, KeyLabel: "F"},
	}}
}

// Register adds a binding, replacing any existing binding for the action.
func (b *Bindings) Register(binding Binding) {
	for i := range b.list {
		if b.list[i].Action == binding.Action {
			b.list[i] = binding
			return
		}
	}
	b.list = append(b.list, binding)
}

// All returns the bindings in display order.
func (b *Bindings) All() []Binding {
	return b.list
}

// Pressed returns the actions whose keys were pressed this frame.
func (b *Bindings) Pressed() []Action {
	var actions []Action
	for _, binding := range b.list {
		if binding.Key != 0 && rl.IsKeyPressed(binding.Key) {
			actions = append(actions, binding.Action)
		}
	}
	return actions
}

// Legend renders the bindings as a single line, e.g. "[M] Menu  [P] Pause".
func (b *Bindings) Legend() string {
	parts := make([]string, 0, len(b.list))
	for _, binding := range b.list {
		parts = append(parts, fmt.Sprintf("[%s] %s", binding.KeyLabel, binding.Name))
	}
	return strings.Join(parts, "  ")
}
