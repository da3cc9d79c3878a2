package renderer

import (
	"image"
	"math"

	"golang.org/x/image/vector"

	"github.com/pthm-cable/rainglass/components"
)

// kappa is the control-point distance for approximating a quarter circle
// with a cubic bezier.
const kappa = 0.5523

// irregularPad bounds how far an irregular outline reaches beyond its radii.
const irregularPad = 1.3

// dropletBounds returns the device-pixel box that contains the outline of
// a droplet centered at (x, y) with radii rx, ry.
func dropletBounds(state components.ShapeState, x, y, rx, ry float64) image.Rectangle {
	if state == components.ShapeIrregularStatic {
		rx *= irregularPad
		ry *= irregularPad
	}
	return image.Rect(
		int(math.Floor(x-rx)), int(math.Floor(y-ry)),
		int(math.Ceil(x+rx))+1, int(math.Ceil(y+ry))+1,
	)
}

// teardropPath adds a teardrop with its tail pointing up and a round
// bottom. (cx, cy) is the center in rasterizer coordinates.
func teardropPath(z *vector.Rasterizer, cx, cy, rx, ry float64) {
	pt := func(dx, dy float64) (float32, float32) {
		return float32(cx + dx*rx), float32(cy + dy*ry)
	}
	cubic := func(ax, ay, bx, by, ex, ey float64) {
		x1, y1 := pt(ax, ay)
		x2, y2 := pt(bx, by)
		x3, y3 := pt(ex, ey)
		z.CubeTo(x1, y1, x2, y2, x3, y3)
	}

	z.MoveTo(pt(0, -1))
	cubic(0.35, -0.7, 1, -0.25, 1, 0.2)
	cubic(1, 0.75, 0.55, 1, 0, 1)
	cubic(-0.55, 1, -1, 0.75, -1, 0.2)
	cubic(-1, -0.25, -0.35, -0.7, 0, -1)
	z.ClosePath()
}

// outlinePath adds the cached irregular outline, smoothed by running
// quadratic curves through the midpoints of consecutive vertices.
func outlinePath(z *vector.Rasterizer, outline *[components.OutlinePoints]components.Point, cx, cy, rx, ry float64) {
	n := len(outline)
	px := func(i int) float64 { return cx + outline[i%n].X*rx }
	py := func(i int) float64 { return cy + outline[i%n].Y*ry }

	z.MoveTo(float32((px(n-1)+px(0))/2), float32((py(n-1)+py(0))/2))
	for i := 0; i < n; i++ {
		mx := (px(i) + px(i+1)) / 2
		my := (py(i) + py(i+1)) / 2
		z.QuadTo(float32(px(i)), float32(py(i)), float32(mx), float32(my))
	}
	z.ClosePath()
}

// ellipsePath adds an ellipse made of four cubic arcs.
func ellipsePath(z *vector.Rasterizer, cx, cy, rx, ry float64) {
	kx, ky := rx*kappa, ry*kappa
	f := func(v float64) float32 { return float32(v) }

	z.MoveTo(f(cx+rx), f(cy))
	z.CubeTo(f(cx+rx), f(cy+ky), f(cx+kx), f(cy+ry), f(cx), f(cy+ry))
	z.CubeTo(f(cx-kx), f(cy+ry), f(cx-rx), f(cy+ky), f(cx-rx), f(cy))
	z.CubeTo(f(cx-rx), f(cy-ky), f(cx-kx), f(cy-ry), f(cx), f(cy-ry))
	z.CubeTo(f(cx+kx), f(cy-ry), f(cx+rx), f(cy-ky), f(cx+rx), f(cy))
	z.ClosePath()
}

// circleMask returns an antialiased mask of the circle inscribed in a
// w x h canvas.
func circleMask(z *vector.Rasterizer, w, h int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Reset(w, h)
	r := math.Min(float64(w), float64(h)) / 2
	ellipsePath(z, float64(w)/2, float64(h)/2, r, r)
	z.Draw(mask, mask.Rect, image.Opaque, image.Point{})
	return mask
}
