package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/rainglass/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title         string
	Droplets      int
	MaxDroplets   int
	Frame         uint64
	SimTime       float64
	FPS           int32
	Open          bool
	Paused        bool
	HasBackground bool
	Width, Height int
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD at the top left of the window.
func (h *HUD) Draw(data HUDData) {
	r := h.renderer
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	y := int32(38)
	y = r.DrawBar(10, y, "Droplets", data.Droplets, data.MaxDroplets, 300)
	y = r.DrawLabelValue(10, y, "Frame", fmt.Sprintf("%d (%.1fs)", data.Frame, data.SimTime))
	y = r.DrawLabelValue(10, y, "Canvas", fmt.Sprintf("%dx%d @ %d FPS", data.Width, data.Height, data.FPS))

	bg := "none"
	if data.HasBackground {
		bg = "captured"
	}
	y = r.DrawLabelValue(10, y, "Background", bg)

	status, color := statusText(data.Open, data.Paused)
	rl.DrawText(status, 10, y+2, 16, color)
}

func statusText(open, paused bool) (string, rl.Color) {
	switch {
	case !open:
		return "CLOSED", rl.Gray
	case paused:
		return "PAUSED", rl.Yellow
	default:
		return "Raining", rl.SkyBlue
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, legend string) {
	rl.DrawText(legend, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the per-phase frame timing breakdown.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	rl.DrawText("Frame Timing", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Avg: %s  Max: %s",
		stats.AvgTickDuration.Round(time.Microsecond),
		stats.MaxTickDuration.Round(time.Microsecond)), x, y, 14, rl.Yellow)
	y += 16

	for _, phase := range telemetry.Phases() {
		avg := stats.PhaseAvg[phase]
		pct := stats.PhasePct[phase]

		color := rl.LightGray
		if pct > 40 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-13s %6s %5.1f%%", phase, avg.Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
