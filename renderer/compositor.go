// Package renderer composites the droplet overlay into an RGBA frame:
// frosted background, fog, refracting droplet lenses, trails and
// condensation sparkle.
// Rendering reads simulation state only and uses no randomness, so the
// same state always produces the same pixels.
package renderer

import (
	"encoding/binary"
	"hash/fnv"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/pthm-cable/rainglass/capture"
	"github.com/pthm-cable/rainglass/components"
	"github.com/pthm-cable/rainglass/config"
	"github.com/pthm-cable/rainglass/systems"
)

// FrameView is the state one frame is rendered from. Any field except
// Store may be nil.
type FrameView struct {
	Store        *systems.DropletStore
	Trail        *systems.TrailBuffer
	Condensation *systems.CondensationField
	Background   *capture.Background
	Frame        uint64 // Tick counter, drives smudge selection
}

// Compositor renders frames of a fixed canvas size.
type Compositor struct {
	cfg  *config.Config
	w, h int

	raster    *vector.Rasterizer
	clipBuf   []uint8
	highlight *image.RGBA
	vignette  *image.RGBA
	fog       []color.RGBA
	circle    *image.Alpha
	smudge    *image.Uniform
}

// NewCompositor creates a compositor for a w x h device-pixel canvas.
func NewCompositor(cfg *config.Config, w, h int) *Compositor {
	c := &Compositor{
		cfg:       cfg,
		raster:    vector.NewRasterizer(1, 1),
		highlight: highlightSprite(cfg.Render.HighlightStrength),
		vignette:  vignetteSprite(cfg.Render.VignetteStrength),
		smudge:    image.NewUniform(color.Alpha{A: 40}),
	}
	c.Resize(w, h)
	return c
}

// Retune rebuilds the lens sprites, fog rows and overlay mask from the
// current configuration.
func (c *Compositor) Retune() {
	c.highlight = highlightSprite(c.cfg.Render.HighlightStrength)
	c.vignette = vignetteSprite(c.cfg.Render.VignetteStrength)
	c.Resize(c.w, c.h)
}

// Resize rebuilds the size-dependent fog rows and overlay mask.
func (c *Compositor) Resize(w, h int) {
	c.w, c.h = max(w, 0), max(h, 0)
	c.fog = fogRows(c.h, c.cfg.Render.FogStrength)
	c.circle = nil
	if c.cfg.Canvas.Circular && c.w > 0 && c.h > 0 {
		c.circle = circleMask(c.raster, c.w, c.h)
	}
}

// Render draws one frame. frame must be the canvas size.
func (c *Compositor) Render(frame *image.RGBA, view FrameView) {
	clear(frame.Pix)

	if view.Background != nil {
		c.drawFrosted(frame, view.Background)
	}

	if c.cfg.Render.Fog && c.cfg.Render.FogStrength > 0 {
		c.drawFog(frame)
	}

	if view.Store != nil {
		query := view.Store.Query()
		for query.Next() {
			pos, _, d, shape := query.Get()
			if d.Dead || d.Radius < 0.3 {
				continue
			}
			c.drawDroplet(frame, pos, d, shape, &view)
		}
	}

	if view.Trail != nil && c.cfg.Trail.Enabled && view.Trail.Active() {
		c.drawTrail(frame, view.Trail)
	}

	if view.Condensation != nil {
		c.drawSparkles(frame, view.Condensation.Points)
	}

	if c.circle != nil {
		applyMask(frame, c.circle)
	}
}

// drawFrosted lays the blurred background down as the glass itself.
func (c *Compositor) drawFrosted(frame *image.RGBA, bg *capture.Background) {
	if bg.Blurred == nil || bg.Blurred.Rect.Empty() {
		return
	}
	if bg.Blurred.Rect.Size() == frame.Rect.Size() {
		draw.Draw(frame, frame.Rect, bg.Blurred, bg.Blurred.Rect.Min, draw.Src)
		return
	}
	draw.ApproxBiLinear.Scale(frame, frame.Rect, bg.Blurred, bg.Blurred.Rect, draw.Src, nil)
}

func (c *Compositor) drawFog(frame *image.RGBA) {
	w := min(frame.Rect.Dx(), c.w)
	for y := 0; y < min(frame.Rect.Dy(), len(c.fog)); y++ {
		f := c.fog[y]
		row := frame.Pix[y*frame.Stride : y*frame.Stride+w*4]
		keep := 255 - uint32(f.A)
		for i := 0; i < len(row); i += 4 {
			// Premultiplied source-over
			row[i] = f.R + uint8(uint32(row[i])*keep/255)
			row[i+1] = f.G + uint8(uint32(row[i+1])*keep/255)
			row[i+2] = f.B + uint8(uint32(row[i+2])*keep/255)
			row[i+3] = f.A + uint8(uint32(row[i+3])*keep/255)
		}
	}
}

func (c *Compositor) drawDroplet(frame *image.RGBA, pos *components.Position, d *components.Droplet, shape *components.Shape, view *FrameView) {
	rx := d.Radius
	ry := d.Radius * d.Stretch

	bounds := dropletBounds(shape.State, pos.X, pos.Y, rx, ry)
	if bounds.Intersect(frame.Rect).Empty() {
		return
	}
	clip := c.clip(bounds, shape, pos, rx, ry)
	opts := &draw.Options{DstMask: clip}

	lens := image.Rect(
		int(math.Floor(pos.X-rx)), int(math.Floor(pos.Y-ry)),
		int(math.Ceil(pos.X+rx)), int(math.Ceil(pos.Y+ry)),
	)

	if bg := view.Background; bg != nil {
		c.drawSmudge(frame, pos, rx, ry, d.Seed, view.Frame, bg)
		c.refract(frame, lens, pos, rx, ry, bg, opts)
	}

	draw.ApproxBiLinear.Scale(frame, lens, c.vignette, c.vignette.Rect, draw.Over, opts)
	draw.ApproxBiLinear.Scale(frame, lens, c.highlight, c.highlight.Rect, draw.Over, opts)
}

// clip rasterizes the droplet outline into a mask covering bounds.
// The returned mask is only valid until the next call.
func (c *Compositor) clip(bounds image.Rectangle, shape *components.Shape, pos *components.Position, rx, ry float64) *image.Alpha {
	bw, bh := bounds.Dx(), bounds.Dy()
	n := bw * bh
	if cap(c.clipBuf) < n {
		c.clipBuf = make([]uint8, n)
	}
	mask := &image.Alpha{Pix: c.clipBuf[:n], Stride: bw, Rect: bounds}
	clear(mask.Pix)

	c.raster.Reset(bw, bh)
	cx := pos.X - float64(bounds.Min.X)
	cy := pos.Y - float64(bounds.Min.Y)
	if shape.State == components.ShapeIrregularStatic {
		outlinePath(c.raster, &shape.Outline, cx, cy, rx, ry)
	} else {
		teardropPath(c.raster, cx, cy, rx, ry)
	}
	c.raster.Draw(mask, bounds, image.Opaque, image.Point{})
	return mask
}

// refract draws the magnified background seen through the droplet. The
// miniature, when present, replaces the sharp buffer and shows a wider,
// inverted view.
func (c *Compositor) refract(frame *image.RGBA, lens image.Rectangle, pos *components.Position, rx, ry float64, bg *capture.Background, opts *draw.Options) {
	if bg.Sharp == nil || c.w == 0 || c.h == 0 {
		return
	}
	// Backgrounds captured before a resize are stretched to the canvas
	size := bg.Size()
	fx := float64(size.X) / float64(c.w)
	fy := float64(size.Y) / float64(c.h)

	src := bg.Sharp
	cx, cy := pos.X*fx, (pos.Y-c.cfg.Render.RefractionOffset*ry)*fy
	hx := rx / c.cfg.Render.RefractionMagnification * fx
	hy := ry / c.cfg.Render.RefractionMagnification * fy

	if bg.Mini != nil {
		src = bg.Mini
		ms := float64(bg.Mini.Rect.Dx()) / float64(size.X)
		cx, cy = pos.X*fx*ms, pos.Y*fy*ms
		if c.cfg.Render.MiniatureRotate {
			cx = float64(bg.Mini.Rect.Dx()) - cx
			cy = float64(bg.Mini.Rect.Dy()) - cy
		}
		hx, hy = rx*fx, ry*fy
	}

	sr := image.Rect(
		int(math.Floor(cx-hx)), int(math.Floor(cy-hy)),
		int(math.Ceil(cx+hx)), int(math.Ceil(cy+hy)),
	).Add(src.Rect.Min).Intersect(src.Rect)
	if sr.Empty() {
		return
	}
	draw.ApproxBiLinear.Scale(frame, lens, src, sr, draw.Over, opts)
}

// drawSmudge occasionally lays a faint strip of the sharp background
// above the droplet, where it has just wiped the glass. Selection hashes
// the droplet seed with the frame number, so it is stable for a given state.
func (c *Compositor) drawSmudge(frame *image.RGBA, pos *components.Position, rx, ry float64, seed int64, tick uint64, bg *capture.Background) {
	chance := c.cfg.Render.SmudgeChance
	if chance <= 0 || bg.Sharp == nil || bg.Size() != frame.Rect.Size() {
		return
	}
	if smudgeRoll(seed, tick) >= chance {
		return
	}
	strip := image.Rect(
		int(math.Floor(pos.X-rx*0.35)), int(math.Floor(pos.Y-ry*3)),
		int(math.Ceil(pos.X+rx*0.35)), int(math.Floor(pos.Y-ry*0.5)),
	).Intersect(frame.Rect)
	if strip.Empty() {
		return
	}
	sp := strip.Min.Sub(frame.Rect.Min).Add(bg.Sharp.Rect.Min)
	draw.DrawMask(frame, strip, bg.Sharp, sp, c.smudge, image.Point{}, draw.Over)
}

// smudgeRoll maps a droplet seed and frame bucket to [0, 1).
func smudgeRoll(seed int64, tick uint64) float64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:], tick/8)
	h := fnv.New64a()
	h.Write(buf[:])
	return float64(h.Sum64()>>11) / (1 << 53)
}

// drawTrail adds the trail buffer with a lighter blend: channels add and
// saturate, so trails brighten the glass and never darken it.
func (c *Compositor) drawTrail(frame *image.RGBA, tb *systems.TrailBuffer) {
	opacity := c.cfg.Trail.Opacity
	if opacity <= 0 {
		return
	}
	w := min(tb.W, frame.Rect.Dx())
	h := min(tb.H, frame.Rect.Dy())
	tr, tg, tbl := trailTint.R*255, trailTint.G*255, trailTint.B*255

	for y := 0; y < h; y++ {
		wet := tb.Wet[y*tb.W : y*tb.W+w]
		row := frame.Pix[y*frame.Stride:]
		for x, v := range wet {
			if v == 0 {
				continue
			}
			a := v * opacity
			i := x * 4
			row[i] = addSat(row[i], tr*a)
			row[i+1] = addSat(row[i+1], tg*a)
			row[i+2] = addSat(row[i+2], tbl*a)
			row[i+3] = addSat(row[i+3], 255*a)
		}
	}
}

// drawSparkles draws condensation points as small discs whose opacity
// twinkles with their phase and fades with remaining life.
func (c *Compositor) drawSparkles(frame *image.RGBA, points []systems.CondensationPoint) {
	for i := range points {
		p := &points[i]
		twinkle := 0.5 + 0.5*math.Sin(p.Phase)
		alpha := 0.85 * twinkle * p.Alpha()
		if alpha <= 0.004 {
			continue
		}
		c.disc(frame, p.X, p.Y, p.Radius, alpha)
	}
}

// disc blends an antialiased sparkle disc over the frame.
func (c *Compositor) disc(frame *image.RGBA, x, y, r, alpha float64) {
	x0 := max(int(math.Floor(x-r-1)), frame.Rect.Min.X)
	y0 := max(int(math.Floor(y-r-1)), frame.Rect.Min.Y)
	x1 := min(int(math.Ceil(x+r+1)), frame.Rect.Max.X)
	y1 := min(int(math.Ceil(y+r+1)), frame.Rect.Max.Y)

	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			d := math.Hypot(float64(px)+0.5-x, float64(py)+0.5-y)
			cov := math.Max(0, math.Min(1, r+0.5-d))
			if cov == 0 {
				continue
			}
			s := premul(sparkleTint, alpha*cov)
			i := frame.PixOffset(px, py)
			inv := 1 - float64(s.A)/255
			frame.Pix[i] = s.R + uint8(float64(frame.Pix[i])*inv)
			frame.Pix[i+1] = s.G + uint8(float64(frame.Pix[i+1])*inv)
			frame.Pix[i+2] = s.B + uint8(float64(frame.Pix[i+2])*inv)
			frame.Pix[i+3] = s.A + uint8(float64(frame.Pix[i+3])*inv)
		}
	}
}

// applyMask multiplies every pixel by the overlay mask.
func applyMask(frame *image.RGBA, mask *image.Alpha) {
	w := min(frame.Rect.Dx(), mask.Rect.Dx())
	h := min(frame.Rect.Dy(), mask.Rect.Dy())
	for y := 0; y < h; y++ {
		mrow := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		row := frame.Pix[y*frame.Stride:]
		for x, m := range mrow {
			if m == 255 {
				continue
			}
			i := x * 4
			if m == 0 {
				row[i], row[i+1], row[i+2], row[i+3] = 0, 0, 0, 0
				continue
			}
			row[i] = uint8(uint32(row[i]) * uint32(m) / 255)
			row[i+1] = uint8(uint32(row[i+1]) * uint32(m) / 255)
			row[i+2] = uint8(uint32(row[i+2]) * uint32(m) / 255)
			row[i+3] = uint8(uint32(row[i+3]) * uint32(m) / 255)
		}
	}
}

func addSat(dst uint8, v float64) uint8 {
	s := float64(dst) + v + 0.5
	if s >= 255 {
		return 255
	}
	return uint8(s)
}
