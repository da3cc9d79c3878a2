package systems

import (
	"image"
	"math"

	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/floats"
)

// trailFloor is the wetness below which a cell counts as dry.
const trailFloor = 1.0 / 512

// TrailBuffer is a wetness field the size of the canvas. Moving droplets
// paint strokes into it; every tick it fades and bleeds a little so old
// trails soften before they vanish. Values stay in [0, 1].
type TrailBuffer struct {
	W, H int
	Wet  []float64
	tmp  []float64

	Decay   float64 // Fraction erased per second
	Diffuse float64 // Diffusion strength per second

	raster *vector.Rasterizer
	mask   *image.Alpha
	active bool
}

// NewTrailBuffer creates an empty trail buffer.
func NewTrailBuffer(w, h int, decay, diffuse float64) *TrailBuffer {
	t := &TrailBuffer{
		Decay:   decay,
		Diffuse: diffuse,
		raster:  vector.NewRasterizer(1, 1),
		mask:    image.NewAlpha(image.Rect(0, 0, 1, 1)),
	}
	t.Resize(w, h)
	return t
}

// Resize reallocates the buffer, discarding all trails.
func (t *TrailBuffer) Resize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	t.W, t.H = w, h
	t.Wet = make([]float64, w*h)
	t.tmp = make([]float64, w*h)
	t.active = false
}

// Clear erases every trail.
func (t *TrailBuffer) Clear() {
	clear(t.Wet)
	t.active = false
}

// Active reports whether any cell may hold wetness.
func (t *TrailBuffer) Active() bool {
	return t.active
}

// Coverage returns the summed wetness of the buffer.
func (t *TrailBuffer) Coverage() float64 {
	return floats.Sum(t.Wet)
}

// Deposit paints a rounded stroke from (x0, y0) to (x1, y1) with the given
// width and intensity. Wetness combines by max, so crossing trails do not
// saturate.
func (t *TrailBuffer) Deposit(x0, y0, x1, y1, width, intensity float64) {
	if !(width > 0) || !(intensity > 0) {
		return
	}
	if !finiteAll(x0, y0, x1, y1, width) {
		return
	}
	// Work only on the part of the segment near the buffer, so far-off
	// endpoints never reach the integer conversions below
	hw := math.Min(width/2, float64(t.W+t.H))
	var ok bool
	x0, y0, x1, y1, ok = clipSegment(x0, y0, x1, y1,
		-hw-1, -hw-1, float64(t.W)+hw+1, float64(t.H)+hw+1)
	if !ok {
		return
	}
	bounds := image.Rect(
		int(math.Floor(math.Min(x0, x1)-hw))-1,
		int(math.Floor(math.Min(y0, y1)-hw))-1,
		int(math.Ceil(math.Max(x0, x1)+hw))+1,
		int(math.Ceil(math.Max(y0, y1)+hw))+1,
	)
	clip := bounds.Intersect(image.Rect(0, 0, t.W, t.H))
	if clip.Empty() {
		return
	}

	// Rasterize locally in the stroke's bounding box
	bw, bh := bounds.Dx(), bounds.Dy()
	t.raster.Reset(bw, bh)
	ox, oy := float64(bounds.Min.X), float64(bounds.Min.Y)
	capsule(t.raster, x0-ox, y0-oy, x1-ox, y1-oy, hw)

	if t.mask.Rect.Dx() < bw || t.mask.Rect.Dy() < bh {
		t.mask = image.NewAlpha(image.Rect(0, 0, bw, bh))
	} else {
		clear(t.mask.Pix)
	}
	t.raster.Draw(t.mask, image.Rect(0, 0, bw, bh), image.Opaque, image.Point{})

	intensity = math.Min(intensity, 1)
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		my := y - bounds.Min.Y
		for x := clip.Min.X; x < clip.Max.X; x++ {
			a := t.mask.Pix[my*t.mask.Stride+(x-bounds.Min.X)]
			if a == 0 {
				continue
			}
			v := float64(a) / 255 * intensity
			i := y*t.W + x
			if v > t.Wet[i] {
				t.Wet[i] = v
			}
		}
	}
	t.active = true
}

// clipSegment clips the segment to the rectangle [minX, maxX] x [minY, maxY]
// (Liang-Barsky). ok is false when nothing of it lies inside.
func clipSegment(x0, y0, x1, y1, minX, minY, maxX, maxY float64) (cx0, cy0, cx1, cy1 float64, ok bool) {
	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, x0 - minX},
		{dx, maxX - x0},
		{-dy, y0 - minY},
		{dy, maxY - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = math.Min(t1, r)
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

// capsule adds a stadium shape: two half discs joined by straight sides.
func capsule(z *vector.Rasterizer, x0, y0, x1, y1, r float64) {
	const segs = 8
	angle := math.Atan2(y1-y0, x1-x0)
	// Half disc around the end point, then back around the start point
	z.MoveTo(float32(x1+r*math.Cos(angle-math.Pi/2)), float32(y1+r*math.Sin(angle-math.Pi/2)))
	for i := 1; i <= segs; i++ {
		a := angle - math.Pi/2 + math.Pi*float64(i)/segs
		z.LineTo(float32(x1+r*math.Cos(a)), float32(y1+r*math.Sin(a)))
	}
	for i := 0; i <= segs; i++ {
		a := angle + math.Pi/2 + math.Pi*float64(i)/segs
		z.LineTo(float32(x0+r*math.Cos(a)), float32(y0+r*math.Sin(a)))
	}
	z.ClosePath()
}

// Update fades and diffuses the buffer by dt seconds.
func (t *TrailBuffer) Update(dt float64) {
	if !t.active || !(dt > 0) {
		return
	}
	floats.Scale(math.Pow(1-t.Decay, dt), t.Wet)
	t.diffuse(dt)

	peak := 0.0
	for i, v := range t.Wet {
		if v < trailFloor {
			t.Wet[i] = 0
			continue
		}
		if v > peak {
			peak = v
		}
	}
	t.active = peak > 0
}

// diffuse applies one explicit Laplacian step with clamped edges.
func (t *TrailBuffer) diffuse(dt float64) {
	a := t.Diffuse * dt
	if a <= 0 {
		return
	}
	// Stability clamp for explicit diffusion
	if a > 0.25 {
		a = 0.25
	}

	w, h := t.W, t.H
	src := t.Wet
	dst := t.tmp

	for y := 0; y < h; y++ {
		yN := max(y-1, 0)
		yS := min(y+1, h-1)
		for x := 0; x < w; x++ {
			xW := max(x-1, 0)
			xE := min(x+1, w-1)

			i := y*w + x
			c := src[i]
			n := src[yN*w+x]
			s := src[yS*w+x]
			e := src[y*w+xE]
			wv := src[y*w+xW]

			dst[i] = c + a*(n+s+e+wv-4*c)
		}
	}

	t.Wet, t.tmp = dst, src
	for i, v := range t.Wet {
		t.Wet[i] = math.Min(math.Max(v, 0), 1)
	}
}

func finiteAll(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
