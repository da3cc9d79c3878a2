package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/rainglass/blur"
	"github.com/pthm-cable/rainglass/config"
)

// ControlState is the panel's editable copy of the live settings.
type ControlState struct {
	MenuOpen     bool
	Paused       bool
	Gravity      float32
	WindX        float32
	Adhesion     float32
	BlurStrength float32
	BlurStrategy string
	Fog          bool
	Collisions   bool
}

// NewControlState reads the editable settings from cfg.
func NewControlState(cfg *config.Config) ControlState {
	return ControlState{
		Gravity:      float32(cfg.Physics.Gravity),
		WindX:        float32(cfg.Physics.WindX),
		Adhesion:     float32(cfg.Physics.AdhesionBase),
		BlurStrength: float32(cfg.Render.BlurStrength),
		BlurStrategy: cfg.Render.BlurStrategy,
		Fog:          cfg.Render.Fog,
		Collisions:   cfg.Physics.Collisions,
	}
}

// Apply writes the editable settings back into cfg.
func (s ControlState) Apply(cfg *config.Config) {
	cfg.Physics.Gravity = float64(s.Gravity)
	cfg.Physics.WindX = float64(s.WindX)
	cfg.Physics.AdhesionBase = float64(s.Adhesion)
	cfg.Render.BlurStrength = float64(s.BlurStrength)
	cfg.Render.BlurStrategy = s.BlurStrategy
	cfg.Render.Fog = s.Fog
	cfg.Physics.Collisions = s.Collisions
}

// ControlEvents reports what changed during one Draw.
type ControlEvents struct {
	MenuToggled     bool
	PauseToggled    bool
	SettingsChanged bool
	// BackgroundChanged is set when a setting that shapes the captured
	// background changed, so the host should re-capture.
	BackgroundChanged bool
	Snapshot          bool
}

// Any reports whether any event fired.
func (e ControlEvents) Any() bool {
	return e.MenuToggled || e.PauseToggled || e.SettingsChanged || e.BackgroundChanged || e.Snapshot
}

// ControlsPanel renders the settings panel.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool

	blurDirty bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// SetPosition moves the panel.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether a screen point lies over the panel.
func (c *ControlsPanel) Contains(x, y float32) bool {
	if !c.visible {
		return false
	}
	return x >= float32(c.x) && x < float32(c.x+c.width) &&
		y >= float32(c.y) && y < float32(c.y+c.height())
}

func (c *ControlsPanel) height() int32 {
	t := c.renderer.Theme
	rows := int32(5) // checkboxes
	sliders := int32(4)
	return t.Padding*2 + t.LineHeight + 4 +
		rows*(t.SliderHeight+6) +
		sliders*(t.LineHeight+t.SliderHeight+6) +
		2*(t.SliderHeight+12)
}

// Draw renders the panel, updating state in place.
func (c *ControlsPanel) Draw(state *ControlState) ControlEvents {
	var ev ControlEvents
	if !c.visible {
		return ev
	}

	r := c.renderer
	padding := r.Theme.Padding
	inner := c.width - padding*2
	r.DrawPanel(c.x, c.y, c.width, c.height())

	x := c.x + padding
	y := r.DrawSectionHeader(x, c.y+padding, "Rain on glass")

	var changed bool
	var on bool

	on, y = r.DrawCheckBox(x, y, "Menu open", state.MenuOpen)
	if on != state.MenuOpen {
		state.MenuOpen = on
		ev.MenuToggled = true
	}
	on, y = r.DrawCheckBox(x, y, "Paused", state.Paused)
	if on != state.Paused {
		state.Paused = on
		ev.PauseToggled = true
	}
	on, y = r.DrawCheckBox(x, y, "Collisions", state.Collisions)
	changed = changed || on != state.Collisions
	state.Collisions = on
	on, y = r.DrawCheckBox(x, y, "Fog", state.Fog)
	changed = changed || on != state.Fog
	state.Fog = on

	mip := state.BlurStrategy == blur.StrategyMip
	on, y = r.DrawCheckBox(x, y, "Mip blur", mip)
	if on != mip {
		state.BlurStrategy = blur.StrategyBox
		if on {
			state.BlurStrategy = blur.StrategyMip
		}
		ev.BackgroundChanged = true
	}

	var v float32
	v, y = r.DrawSlider(x, y, "Gravity", state.Gravity, 0, 1, inner)
	changed = changed || v != state.Gravity
	state.Gravity = v
	v, y = r.DrawSlider(x, y, "Wind", state.WindX, -0.5, 0.5, inner)
	changed = changed || v != state.WindX
	state.WindX = v
	v, y = r.DrawSlider(x, y, "Adhesion", state.Adhesion, 0, 0.9, inner)
	changed = changed || v != state.Adhesion
	state.Adhesion = v

	// Blur is applied at capture time; re-capture once the drag ends.
	v, y = r.DrawSlider(x, y, "Blur", state.BlurStrength, 0, 40, inner)
	if v != state.BlurStrength {
		state.BlurStrength = v
		c.blurDirty = true
	}
	if c.blurDirty && !rl.IsMouseButtonDown(rl.MouseButtonLeft) {
		c.blurDirty = false
		ev.BackgroundChanged = true
	}

	y += 6
	if r.DrawButton(x, y, inner, "Re-capture background") {
		ev.BackgroundChanged = true
	}
	y += r.Theme.SliderHeight + 12
	if r.DrawButton(x, y, inner, "Save snapshot") {
		ev.Snapshot = true
	}

	ev.SettingsChanged = changed || ev.BackgroundChanged
	return ev
}
