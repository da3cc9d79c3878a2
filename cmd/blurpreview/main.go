// Blur preview tool - compares the box and mip blur strategies side by side
// with sliders for strength, mip levels and saturation.
//
// Usage: go run ./cmd/blurpreview [-background page.png]
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"golang.org/x/image/draw"

	"github.com/pthm-cable/rainglass/blur"
	"github.com/pthm-cable/rainglass/capture"
	"github.com/pthm-cable/rainglass/config"
	"github.com/pthm-cable/rainglass/ui"
)

const (
	windowWidth  = 1100
	windowHeight = 720
	previewSize  = 400
	panelX       = 20
	panelY       = previewSize + 60
)

// BlurParams holds the tunable render settings.
type BlurParams struct {
	Strength   float32
	MipLevels  int
	Saturation float32
}

func defaultParams() BlurParams {
	def := config.MustLoad("")
	return BlurParams{
		Strength:   float32(def.Render.BlurStrength),
		MipLevels:  def.Render.MipLevels,
		Saturation: float32(def.Render.Saturation),
	}
}

func main() {
	background := flag.String("background", "", "Page image to blur (empty = test card)")
	flag.Parse()

	src, err := loadSource(*background)
	if err != nil {
		log.Fatalf("failed to load background: %v", err)
	}

	rl.InitWindow(windowWidth, windowHeight, "Blur Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	params := defaultParams()
	base := config.MustLoad("").Render
	provider := capture.NewImageProvider(src)
	sharp, box, mip := ui.NewPresenter(), ui.NewPresenter(), ui.NewPresenter()
	defer sharp.Unload()
	defer box.Unload()
	defer mip.Unload()

	var boxTime, mipTime time.Duration
	needsRegen := true

	for !rl.WindowShouldClose() {
		if needsRegen {
			boxBg, t, err := captureWith(provider, src.Rect, base, params, blur.StrategyBox)
			if err != nil {
				log.Fatalf("box capture: %v", err)
			}
			boxTime = t
			mipBg, t, err := captureWith(provider, src.Rect, base, params, blur.StrategyMip)
			if err != nil {
				log.Fatalf("mip capture: %v", err)
			}
			mipTime = t

			// The desaturated sharp buffer is what droplets refract
			sharp.Update(boxBg.Sharp)
			box.Update(boxBg.Blurred)
			mip.Update(mipBg.Blurred)
			needsRegen = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		for i, p := range []struct {
			pres  *ui.Presenter
			label string
		}{
			{sharp, "Sharp"},
			{box, fmt.Sprintf("Box (%s)", boxTime.Round(time.Microsecond))},
			{mip, fmt.Sprintf("Mip (%s)", mipTime.Round(time.Microsecond))},
		} {
			x := float32(10 + i*(previewSize+20))
			p.pres.Draw(rl.Rectangle{X: x, Y: 40, Width: previewSize, Height: previewSize})
			rl.DrawRectangleLines(int32(x), 40, previewSize, previewSize, rl.DarkGray)
			rl.DrawText(p.label, int32(x), 15, 18, rl.DarkGray)
		}

		y := float32(panelY)

		rl.DrawText("Strength (box radius)", panelX, int32(y), 14, rl.Gray)
		y += 18
		newStrength := gui.SliderBar(rl.Rectangle{X: panelX, Y: y, Width: 400, Height: 20}, "0", "40", params.Strength, 0, 40)
		rl.DrawText(fmt.Sprintf("%.1f", params.Strength), panelX+410, int32(y+2), 16, rl.DarkGray)
		if newStrength != params.Strength {
			params.Strength = newStrength
			needsRegen = true
		}
		y += 35

		rl.DrawText("Mip levels", panelX, int32(y), 14, rl.Gray)
		y += 18
		newLevels := gui.SliderBar(rl.Rectangle{X: panelX, Y: y, Width: 400, Height: 20}, "0", "6", float32(params.MipLevels), 0, 6)
		rl.DrawText(fmt.Sprintf("%d", params.MipLevels), panelX+410, int32(y+2), 16, rl.DarkGray)
		if int(newLevels) != params.MipLevels {
			params.MipLevels = int(newLevels)
			needsRegen = true
		}
		y += 35

		rl.DrawText("Saturation", panelX, int32(y), 14, rl.Gray)
		y += 18
		newSat := gui.SliderBar(rl.Rectangle{X: panelX, Y: y, Width: 400, Height: 20}, "0", "2", params.Saturation, 0, 2)
		rl.DrawText(fmt.Sprintf("%.2f", params.Saturation), panelX+410, int32(y+2), 16, rl.DarkGray)
		if newSat != params.Saturation {
			params.Saturation = newSat
			needsRegen = true
		}
		y += 40

		if gui.Button(rl.Rectangle{X: panelX, Y: y, Width: 120, Height: 30}, "Reset All") {
			params = defaultParams()
			needsRegen = true
		}

		yamlText := renderYAML(params)
		rl.DrawText(yamlText, 560, panelY, 14, rl.Gray)
		rl.DrawText("Press C to copy YAML to clipboard", 560, windowHeight-30, 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(yamlText)
		}

		rl.EndDrawing()
	}
}

// captureWith runs the overlay's capture pipeline over rect with one blur
// strategy and reports how long it took.
func captureWith(provider capture.Provider, rect image.Rectangle, base config.RenderConfig, params BlurParams, strategy string) (*capture.Background, time.Duration, error) {
	rc := base
	rc.BlurStrategy = strategy
	rc.BlurStrength = float64(params.Strength)
	rc.MipLevels = params.MipLevels
	rc.Saturation = float64(params.Saturation)
	rc.Miniature = false

	buf := capture.NewBuffer(provider, &rc)
	start := time.Now()
	if err := buf.Capture(context.Background(), rect, 1); err != nil {
		return nil, 0, err
	}
	return buf.Background(), time.Since(start), nil
}

func renderYAML(p BlurParams) string {
	return fmt.Sprintf(`render:
  blur_strength: %.1f
  mip_levels: %d
  saturation: %.2f`, p.Strength, p.MipLevels, p.Saturation)
}

// loadSource returns a previewSize square crop of the page.
func loadSource(path string) (*image.RGBA, error) {
	var page image.Image = capture.TestCard(previewSize, previewSize)
	if path != "" {
		p, err := capture.LoadImageProvider(path)
		if err != nil {
			return nil, err
		}
		page = p.Page()
	}
	src := image.NewRGBA(image.Rect(0, 0, previewSize, previewSize))
	draw.ApproxBiLinear.Scale(src, src.Rect, page, page.Bounds(), draw.Src, nil)
	return src, nil
}
