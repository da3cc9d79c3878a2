package ui

import (
	"image"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Presenter uploads composited frames to a GPU texture and draws them.
// Frames are premultiplied, so drawing uses the premultiplied blend mode.
type Presenter struct {
	tex    rl.Texture2D
	pixels []color.RGBA
	loaded bool
}

// NewPresenter creates an empty presenter. The texture is allocated on the
// first Update.
func NewPresenter() *Presenter {
	return &Presenter{}
}

// Update uploads img, reallocating the texture when the size changed.
func (p *Presenter) Update(img *image.RGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return
	}
	if !p.loaded || int(p.tex.Width) != w || int(p.tex.Height) != h {
		p.Unload()
		blank := rl.GenImageColor(w, h, rl.Blank)
		p.tex = rl.LoadTextureFromImage(blank)
		rl.UnloadImage(blank)
		rl.SetTextureFilter(p.tex, rl.FilterBilinear)
		p.loaded = true
	}
	p.pixels = packPixels(p.pixels, img)
	rl.UpdateTexture(p.tex, p.pixels)
}

// Draw stretches the texture over dst.
func (p *Presenter) Draw(dst rl.Rectangle) {
	if !p.loaded {
		return
	}
	src := rl.Rectangle{Width: float32(p.tex.Width), Height: float32(p.tex.Height)}
	rl.BeginBlendMode(rl.BlendAlphaPremultiply)
	rl.DrawTexturePro(p.tex, src, dst, rl.Vector2{}, 0, rl.White)
	rl.EndBlendMode()
}

// Unload releases the texture.
func (p *Presenter) Unload() {
	if p.loaded {
		rl.UnloadTexture(p.tex)
		p.loaded = false
	}
}

// packPixels copies img into dst row by row, growing dst as needed.
func packPixels(dst []color.RGBA, img *image.RGBA) []color.RGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	n := w * h
	if cap(dst) < n {
		dst = make([]color.RGBA, n)
	}
	dst = dst[:n]
	for y := 0; y < h; y++ {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		row := img.Pix[off : off+w*4]
		out := dst[y*w : (y+1)*w]
		for x := range out {
			i := x * 4
			out[x] = color.RGBA{R: row[i], G: row[i+1], B: row[i+2], A: row[i+3]}
		}
	}
	return dst
}
