package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/rainglass/config"
)

func gradientPage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 128, 255})
		}
	}
	return img
}

func renderConfig() *config.RenderConfig {
	cfg := config.MustLoad("")
	return &cfg.Render
}

func TestCaptureSuccess(t *testing.T) {
	rc := renderConfig()
	rc.Miniature = true
	buf := NewBuffer(NewImageProvider(gradientPage(200, 200)), rc)

	if err := buf.Capture(context.Background(), image.Rect(20, 20, 120, 100), 2); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !buf.HasBackground() {
		t.Fatal("expected a background")
	}
	bg := buf.Background()
	if got := bg.Size(); got != image.Pt(200, 160) {
		t.Errorf("sharp size = %v, want 200x160 device px", got)
	}
	if bg.Blurred.Rect != bg.Sharp.Rect {
		t.Errorf("blurred bounds %v differ from sharp %v", bg.Blurred.Rect, bg.Sharp.Rect)
	}
	if bg.Mini == nil || bg.Mini.Rect.Dx() != 50 {
		t.Errorf("miniature = %v, want 50 px wide", bg.Mini)
	}

	buf.Clear()
	if buf.HasBackground() {
		t.Error("Clear should drop the background")
	}
}

func TestCaptureFailureClearsBackground(t *testing.T) {
	rc := renderConfig()
	calls := 0
	provider := ProviderFunc(func(ctx context.Context, rect image.Rectangle, scale float64) (*image.RGBA, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("tainted canvas")
		}
		return gradientPage(rect.Dx(), rect.Dy()), nil
	})
	buf := NewBuffer(provider, rc)

	if err := buf.Capture(context.Background(), image.Rect(0, 0, 50, 50), 1); err != nil {
		t.Fatalf("first capture: %v", err)
	}
	if err := buf.Capture(context.Background(), image.Rect(0, 0, 50, 50), 1); err == nil {
		t.Fatal("expected provider error")
	}
	if buf.HasBackground() {
		t.Error("failed capture must drop the previous background")
	}
}

func TestCaptureErrors(t *testing.T) {
	rc := renderConfig()
	empty := ProviderFunc(func(ctx context.Context, rect image.Rectangle, scale float64) (*image.RGBA, error) {
		return image.NewRGBA(image.Rectangle{}), nil
	})

	tests := []struct {
		name     string
		provider Provider
		rect     image.Rectangle
		scale    float64
		want     error
	}{
		{"zero width region", NewImageProvider(gradientPage(10, 10)), image.Rect(5, 0, 5, 10), 1, ErrEmptyRegion},
		{"tiny scale", NewImageProvider(gradientPage(10, 10)), image.Rect(0, 0, 10, 10), 0.01, ErrEmptyRegion},
		{"empty snapshot", empty, image.Rect(0, 0, 10, 10), 1, ErrEmptySnapshot},
		{"region off page", NewImageProvider(gradientPage(10, 10)), image.Rect(50, 50, 60, 60), 1, ErrEmptySnapshot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewBuffer(tt.provider, rc)
			err := buf.Capture(context.Background(), tt.rect, tt.scale)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if buf.HasBackground() {
				t.Error("no background expected after failure")
			}
		})
	}
}

func TestCaptureNilProvider(t *testing.T) {
	buf := NewBuffer(nil, renderConfig())
	if err := buf.Capture(context.Background(), image.Rect(0, 0, 10, 10), 1); err == nil {
		t.Error("expected error without a provider")
	}
}

func TestCaptureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	buf := NewBuffer(NewImageProvider(gradientPage(10, 10)), renderConfig())
	if err := buf.Capture(ctx, image.Rect(0, 0, 10, 10), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDesaturate(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 200})

	Desaturate(img, 0)
	c := img.RGBAAt(0, 0)
	if c.R != c.G || c.G != c.B {
		t.Errorf("fully desaturated pixel = %v, want gray", c)
	}
	if c.A != 200 {
		t.Errorf("alpha = %d, want 200", c.A)
	}
}

func TestMiniatureRotated(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 40))
	// Top half white, bottom half black
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			src.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	for y := 20; y < 40; y++ {
		for x := 0; x < 40; x++ {
			src.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
		}
	}

	mini := Miniature(src, 0.25, true)
	if mini.Rect.Dx() != 10 || mini.Rect.Dy() != 10 {
		t.Fatalf("size = %v, want 10x10", mini.Rect)
	}
	if top := mini.RGBAAt(5, 1).R; top > 20 {
		t.Errorf("rotated top = %d, want dark", top)
	}
	if bottom := mini.RGBAAt(5, 8).R; bottom < 235 {
		t.Errorf("rotated bottom = %d, want light", bottom)
	}

	upright := Miniature(src, 0.25, false)
	if top := upright.RGBAAt(5, 1).R; top < 235 {
		t.Errorf("upright top = %d, want light", top)
	}
}

func TestLoadImageProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, gradientPage(16, 8)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	p, err := LoadImageProvider(path)
	if err != nil {
		t.Fatalf("LoadImageProvider: %v", err)
	}
	snap, err := p.Snapshot(context.Background(), image.Rect(0, 0, 16, 8), 1)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Rect.Size() != image.Pt(16, 8) {
		t.Errorf("snapshot size = %v", snap.Rect.Size())
	}

	if _, err := LoadImageProvider(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTestCard(t *testing.T) {
	card := TestCard(320, 240)
	if card.Rect.Size() != image.Pt(320, 240) {
		t.Fatalf("size = %v", card.Rect.Size())
	}
	for i := 3; i < len(card.Pix); i += 4 {
		if card.Pix[i] != 255 {
			t.Fatal("test card must be opaque")
		}
	}
	// Card body and ink line
	if c := card.RGBAAt(45, 45); c.R < 240 {
		t.Errorf("card pixel = %v, want light", c)
	}
	if c := card.RGBAAt(60, 58); c.R > 40 {
		t.Errorf("ink pixel = %v, want dark", c)
	}
}
