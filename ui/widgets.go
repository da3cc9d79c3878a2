package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Renderer handles all UI drawing with consistent styling.
type Renderer struct {
	Theme Theme
}

// NewRenderer creates a renderer with the default theme.
func NewRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme()}
}

// DrawPanel draws a panel background with border.
func (r *Renderer) DrawPanel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, r.Theme.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, r.Theme.PanelBorder)
}

// DrawSectionHeader draws a section header and returns the new Y position.
func (r *Renderer) DrawSectionHeader(x, y int32, title string) int32 {
	rl.DrawText(title, x, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
	return y + r.Theme.LineHeight + 2
}

// DrawLabelValue draws a label and value on the same line.
func (r *Renderer) DrawLabelValue(x, y int32, label, value string) int32 {
	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawText(value, x+r.Theme.LabelWidth, y, r.Theme.FontSize, r.Theme.ValueColor)
	return y + r.Theme.LineHeight
}

// DrawBar draws a fill bar for value/limit, turning red past 90%.
func (r *Renderer) DrawBar(x, y int32, label string, value, limit int, width int32) int32 {
	ratio := float32(0)
	if limit > 0 {
		ratio = min(float32(value)/float32(limit), 1)
	}

	barX := x + r.Theme.LabelWidth
	barWidth := width - r.Theme.LabelWidth - 70

	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawRectangle(barX, y+2, barWidth, r.Theme.BarHeight, r.Theme.BarBg)

	fill := r.Theme.BarFill
	if ratio > 0.9 {
		fill = r.Theme.BarFillHigh
	}
	rl.DrawRectangle(barX, y+2, int32(float32(barWidth)*ratio), r.Theme.BarHeight, fill)

	rl.DrawText(fmt.Sprintf("%d/%d", value, limit), barX+barWidth+5, y, r.Theme.FontSize, r.Theme.ValueColor)
	return y + r.Theme.LineHeight + 2
}

// DrawSlider draws a labelled slider and returns the new value and Y.
func (r *Renderer) DrawSlider(x, y int32, label string, value, minVal, maxVal float32, width int32) (float32, int32) {
	rl.DrawText(label, x, y, r.Theme.FontSize, r.Theme.LabelColor)
	y += r.Theme.LineHeight

	bounds := rl.Rectangle{
		X:      float32(x),
		Y:      float32(y),
		Width:  float32(width - 50),
		Height: float32(r.Theme.SliderHeight),
	}
	value = gui.SliderBar(bounds, "", "", value, minVal, maxVal)
	rl.DrawText(fmt.Sprintf("%.2f", value), x+width-44, y+2, r.Theme.FontSize, r.Theme.ValueColor)
	return value, y + r.Theme.SliderHeight + 6
}

// DrawCheckBox draws a labelled checkbox and returns the new state and Y.
func (r *Renderer) DrawCheckBox(x, y int32, label string, checked bool) (bool, int32) {
	size := float32(r.Theme.SliderHeight)
	bounds := rl.Rectangle{X: float32(x), Y: float32(y), Width: size, Height: size}
	checked = gui.CheckBox(bounds, label, checked)
	return checked, y + r.Theme.SliderHeight + 6
}

// DrawButton draws a button and reports whether it was clicked.
func (r *Renderer) DrawButton(x, y, width int32, label string) bool {
	bounds := rl.Rectangle{
		X:      float32(x),
		Y:      float32(y),
		Width:  float32(width),
		Height: float32(r.Theme.SliderHeight + 6),
	}
	return gui.Button(bounds, label)
}
