// Package capture produces the sharp, blurred and miniature copies of the
// page region behind the overlay.
package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"math"
	"os"

	"golang.org/x/image/draw"
)

// Provider renders a region of the page into a raster.
// rect is in CSS pixels; the returned image is rect scaled by scale
// (device pixel ratio) and may be smaller if the page is smaller.
type Provider interface {
	Snapshot(ctx context.Context, rect image.Rectangle, scale float64) (*image.RGBA, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, rect image.Rectangle, scale float64) (*image.RGBA, error)

// Snapshot calls f.
func (f ProviderFunc) Snapshot(ctx context.Context, rect image.Rectangle, scale float64) (*image.RGBA, error) {
	return f(ctx, rect, scale)
}

// ImageProvider serves snapshots from a static page image.
type ImageProvider struct {
	page image.Image
}

// NewImageProvider wraps an already decoded page image.
func NewImageProvider(page image.Image) *ImageProvider {
	return &ImageProvider{page: page}
}

// LoadImageProvider decodes a PNG or JPEG page image from disk.
func LoadImageProvider(path string) (*ImageProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening page image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding page image: %w", err)
	}
	return NewImageProvider(img), nil
}

// Page returns the underlying page image.
func (p *ImageProvider) Page() image.Image {
	return p.page
}

// Snapshot crops rect out of the page and scales it to device pixels.
func (p *ImageProvider) Snapshot(ctx context.Context, rect image.Rectangle, scale float64) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src := rect.Intersect(p.page.Bounds())
	if src.Empty() {
		return nil, ErrEmptySnapshot
	}

	w := int(math.Round(float64(src.Dx()) * scale))
	h := int(math.Round(float64(src.Dy()) * scale))
	if w < 1 || h < 1 {
		return nil, ErrEmptyRegion
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == src.Dx() && h == src.Dy() {
		draw.Draw(out, out.Rect, p.page, src.Min, draw.Src)
	} else {
		draw.BiLinear.Scale(out, out.Rect, p.page, src, draw.Src, nil)
	}
	return out, nil
}
