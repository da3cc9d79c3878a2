package capture

import (
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// TestCard renders a stand-in page: a hue sweep with dark bars of "text"
// and light cards, so blur and refraction are easy to judge by eye.
func TestCard(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		hue := 360 * float64(x) / float64(max(w, 1))
		for y := 0; y < h; y++ {
			l := 0.35 + 0.3*float64(y)/float64(max(h, 1))
			r, g, b := colorful.Hsl(hue, 0.55, l).Clamped().RGB255()
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}

	card := color.RGBA{R: 245, G: 245, B: 240, A: 255}
	ink := color.RGBA{R: 30, G: 30, B: 40, A: 255}
	for cy := 40; cy+120 < h; cy += 160 {
		for cx := 40; cx+200 < w; cx += 240 {
			fillRect(img, image.Rect(cx, cy, cx+200, cy+120), card)
			for line := 0; line < 5; line++ {
				y0 := cy + 16 + line*20
				width := 160 - (line*37)%70
				fillRect(img, image.Rect(cx+16, y0, cx+16+width, y0+8), ink)
			}
		}
	}
	return img
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}
