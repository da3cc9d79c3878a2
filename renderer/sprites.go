package renderer

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// spriteSize is the resolution of the prebuilt lens gradients. They are
// scaled to each droplet at draw time.
const spriteSize = 64

var (
	highlightTint = colorful.Color{R: 0.92, G: 0.96, B: 1}
	fogTop        = colorful.Color{R: 0.86, G: 0.9, B: 0.95}
	fogBottom     = colorful.Color{R: 0.62, G: 0.68, B: 0.76}
	sparkleTint   = colorful.Color{R: 0.95, G: 0.98, B: 1}
	trailTint     = colorful.Color{R: 0.78, G: 0.84, B: 0.9}
)

// premul returns c at alpha a as a premultiplied RGBA color.
func premul(c colorful.Color, a float64) color.RGBA {
	a = math.Max(0, math.Min(1, a))
	c = c.Clamped()
	return color.RGBA{
		R: uint8(c.R*a*255 + 0.5),
		G: uint8(c.G*a*255 + 0.5),
		B: uint8(c.B*a*255 + 0.5),
		A: uint8(a*255 + 0.5),
	}
}

// highlightSprite builds the specular highlight: a soft bright spot near
// the upper left that fades to transparent.
func highlightSprite(strength float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, spriteSize, spriteSize))
	const cx, cy, reach = 0.36, 0.3, 0.42
	for y := 0; y < spriteSize; y++ {
		for x := 0; x < spriteSize; x++ {
			u := (float64(x) + 0.5) / spriteSize
			v := (float64(y) + 0.5) / spriteSize
			d := math.Hypot(u-cx, v-cy) / reach
			if d >= 1 {
				continue
			}
			falloff := (1 - d) * (1 - d)
			img.SetRGBA(x, y, premul(highlightTint, strength*falloff))
		}
	}
	return img
}

// vignetteSprite builds the rim darkening: transparent in the middle,
// darker toward the edge of the lens.
func vignetteSprite(strength float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, spriteSize, spriteSize))
	for y := 0; y < spriteSize; y++ {
		for x := 0; x < spriteSize; x++ {
			u := (float64(x)+0.5)/spriteSize*2 - 1
			v := (float64(y)+0.5)/spriteSize*2 - 1
			d := math.Hypot(u, v)
			a := strength * smoothstep(0.55, 1.05, d)
			img.SetRGBA(x, y, color.RGBA{A: uint8(math.Min(a, 1)*255 + 0.5)})
		}
	}
	return img
}

// fogRows returns one premultiplied fog color per canvas row, blending
// from a light top to a denser, cooler bottom.
func fogRows(h int, strength float64) []color.RGBA {
	rows := make([]color.RGBA, h)
	for y := range rows {
		t := 0.0
		if h > 1 {
			t = float64(y) / float64(h-1)
		}
		c := fogTop.BlendLab(fogBottom, t)
		rows[y] = premul(c, strength*(0.55+0.45*t))
	}
	return rows
}

func smoothstep(e0, e1, x float64) float64 {
	t := math.Max(0, math.Min(1, (x-e0)/(e1-e0)))
	return t * t * (3 - 2*t)
}
