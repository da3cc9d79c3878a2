package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync/atomic"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/pthm-cable/rainglass/blur"
	"github.com/pthm-cable/rainglass/config"
)

var (
	// ErrEmptyRegion is returned when the capture region has near-zero area.
	ErrEmptyRegion = errors.New("capture: region has near-zero area")
	// ErrEmptySnapshot is returned when the provider produced no pixels.
	ErrEmptySnapshot = errors.New("capture: empty snapshot")
)

// Background is an immutable set of captured buffers. Mini is nil unless
// the miniature is enabled.
type Background struct {
	Sharp   *image.RGBA
	Blurred *image.RGBA
	Mini    *image.RGBA
}

// Size returns the device-pixel size of the sharp buffer.
func (b *Background) Size() image.Point {
	return b.Sharp.Rect.Size()
}

// Buffer captures backgrounds and publishes the latest one atomically, so
// the compositor can read it while a new capture is in flight.
type Buffer struct {
	provider Provider
	cfg      *config.RenderConfig
	current  atomic.Pointer[Background]
}

// NewBuffer creates a capture buffer. provider may be nil, in which case
// every capture fails and the effect renders without a background.
func NewBuffer(provider Provider, cfg *config.RenderConfig) *Buffer {
	return &Buffer{provider: provider, cfg: cfg}
}

// Background returns the published background or nil.
func (b *Buffer) Background() *Background {
	return b.current.Load()
}

// HasBackground reports whether a background is published.
func (b *Buffer) HasBackground() bool {
	return b.current.Load() != nil
}

// Clear drops the published background.
func (b *Buffer) Clear() {
	b.current.Store(nil)
}

// Publish makes bg the current background.
func (b *Buffer) Publish(bg *Background) {
	b.current.Store(bg)
}

// Capture builds a new background for rect and publishes it. On failure
// the previous background is dropped and the error returned.
func (b *Buffer) Capture(ctx context.Context, rect image.Rectangle, scale float64) error {
	bg, err := b.Build(ctx, rect, scale)
	if err != nil {
		b.Clear()
		return err
	}
	b.Publish(bg)
	return nil
}

// Build snapshots rect and derives the blurred and miniature buffers
// without publishing them. It touches no shared state and may run
// concurrently with rendering.
func (b *Buffer) Build(ctx context.Context, rect image.Rectangle, scale float64) (*Background, error) {
	if b.provider == nil {
		return nil, fmt.Errorf("capture: no snapshot provider")
	}
	if math.IsNaN(scale) || scale <= 0 ||
		float64(rect.Dx())*scale < 1 || float64(rect.Dy())*scale < 1 {
		return nil, ErrEmptyRegion
	}

	sharp, err := b.provider.Snapshot(ctx, rect, scale)
	if err != nil {
		return nil, fmt.Errorf("capture: snapshot: %w", err)
	}
	if sharp == nil || sharp.Rect.Empty() {
		return nil, ErrEmptySnapshot
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if b.cfg.Saturation != 1 {
		Desaturate(sharp, b.cfg.Saturation)
	}

	blurred := image.NewRGBA(sharp.Rect)
	blur.Apply(b.cfg.BlurStrategy, sharp, blurred, b.cfg.BlurStrength*scale, b.cfg.MipLevels)

	bg := &Background{Sharp: sharp, Blurred: blurred}
	if b.cfg.Miniature {
		bg.Mini = Miniature(sharp, b.cfg.MiniatureScale, b.cfg.MiniatureRotate)
	}
	return bg, nil
}

// Desaturate scales the HSL saturation of every pixel by factor, in place.
// Alpha is kept.
func Desaturate(img *image.RGBA, factor float64) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			c := colorful.Color{
				R: float64(row[i]) / 255,
				G: float64(row[i+1]) / 255,
				B: float64(row[i+2]) / 255,
			}
			hh, s, l := c.Hsl()
			r, g, bb := colorful.Hsl(hh, math.Min(s*factor, 1), l).Clamped().RGB255()
			row[i], row[i+1], row[i+2] = r, g, bb
		}
	}
}

// Miniature returns a copy of src scaled by factor, optionally rotated by
// 180 degrees. It is what a droplet lens shows: the scene, small and
// upside down.
func Miniature(src *image.RGBA, factor float64, rotate bool) *image.RGBA {
	w := max(1, int(math.Round(float64(src.Rect.Dx())*factor)))
	h := max(1, int(math.Round(float64(src.Rect.Dy())*factor)))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	if !rotate {
		draw.ApproxBiLinear.Scale(dst, dst.Rect, src, src.Rect, draw.Src, nil)
		return dst
	}

	sx := float64(w) / float64(src.Rect.Dx())
	sy := float64(h) / float64(src.Rect.Dy())
	// Maps source to destination: flip both axes around the miniature center
	m := f64.Aff3{
		-sx, 0, float64(w) + sx*float64(src.Rect.Min.X),
		0, -sy, float64(h) + sy*float64(src.Rect.Min.Y),
	}
	draw.ApproxBiLinear.Transform(dst, m, src, src.Rect, draw.Src, nil)
	return dst
}
