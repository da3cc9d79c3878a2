// Package blur provides the multi-pass blur used for the frosted background.
//
// Two strategies are available. Box runs a separable sliding-window average
// at full resolution and is bit-reproducible. Mip halves the image a few
// times, smooths each level, and scales back up; it is cheaper for large
// strengths at the cost of slight softness artifacts.
package blur

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Strategy names accepted by Apply.
const (
	StrategyBox = "box"
	StrategyMip = "mip"
)

// maxRadius bounds the box window so pathological strengths stay cheap.
const maxRadius = 256

// Radius converts a strength to a box radius. NaN and negative strengths
// give 0.
func Radius(strength float64) int {
	if math.IsNaN(strength) || strength <= 0 {
		return 0
	}
	r := math.Round(strength)
	if r > maxRadius {
		return maxRadius
	}
	return int(r)
}

// Apply blurs src into dst with the named strategy. Unknown strategies use box.
func Apply(strategy string, src, dst *image.RGBA, strength float64, levels int) {
	if strategy == StrategyMip {
		Mip(src, dst, strength, levels)
		return
	}
	Box(src, dst, strength)
}

// Box blurs src into dst with a horizontal then vertical pass of radius
// round(strength). Pixels beyond the edge repeat the edge pixel. dst must
// be the same size as src; strength 0 copies src exactly.
func Box(src, dst *image.RGBA, strength float64) {
	r := Radius(strength)
	if r == 0 {
		copyRGBA(dst, src)
		return
	}
	tmp := image.NewRGBA(image.Rect(0, 0, src.Rect.Dx(), src.Rect.Dy()))
	boxPass(tmp, src, r, true)
	boxPass(dst, tmp, r, false)
}

// boxInPlace runs one radius-r box blur over img.
func boxInPlace(img *image.RGBA, r int) {
	tmp := image.NewRGBA(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
	boxPass(tmp, img, r, true)
	boxPass(img, tmp, r, false)
}

// boxPass averages 2r+1 pixels along rows (horizontal) or columns.
// Sums are integer so the result is exact and reproducible.
func boxPass(dst, src *image.RGBA, r int, horizontal bool) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if dw, dh := dst.Rect.Dx(), dst.Rect.Dy(); dw < w || dh < h {
		w, h = min(w, dw), min(h, dh)
	}
	if w == 0 || h == 0 {
		return
	}

	lines, length := h, w
	if !horizontal {
		lines, length = w, h
	}
	n := uint32(2*r + 1)
	half := n / 2

	// at returns the Pix offset of element i on line l.
	srcAt := func(l, i int) int {
		if horizontal {
			return l*src.Stride + i*4
		}
		return i*src.Stride + l*4
	}
	dstAt := func(l, i int) int {
		if horizontal {
			return l*dst.Stride + i*4
		}
		return i*dst.Stride + l*4
	}

	for l := 0; l < lines; l++ {
		var sr, sg, sb, sa uint32
		// Prime the window for element 0: indices -r..r clamped
		for k := -r; k <= r; k++ {
			o := srcAt(l, clampIndex(k, length))
			sr += uint32(src.Pix[o])
			sg += uint32(src.Pix[o+1])
			sb += uint32(src.Pix[o+2])
			sa += uint32(src.Pix[o+3])
		}
		for i := 0; i < length; i++ {
			o := dstAt(l, i)
			dst.Pix[o] = uint8((sr + half) / n)
			dst.Pix[o+1] = uint8((sg + half) / n)
			dst.Pix[o+2] = uint8((sb + half) / n)
			dst.Pix[o+3] = uint8((sa + half) / n)

			// Slide: drop i-r, add i+r+1
			out := srcAt(l, clampIndex(i-r, length))
			in := srcAt(l, clampIndex(i+r+1, length))
			sr += uint32(src.Pix[in]) - uint32(src.Pix[out])
			sg += uint32(src.Pix[in+1]) - uint32(src.Pix[out+1])
			sb += uint32(src.Pix[in+2]) - uint32(src.Pix[out+2])
			sa += uint32(src.Pix[in+3]) - uint32(src.Pix[out+3])
		}
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Mip blurs src into dst by building a chain of half-size levels, each
// smoothed with a radius-1 box, then scaling back up level by level. A
// final box pass proportional to strength removes blockiness at full
// resolution.
func Mip(src, dst *image.RGBA, strength float64, levels int) {
	if Radius(strength) == 0 {
		copyRGBA(dst, src)
		return
	}
	if levels < 1 {
		levels = 1
	}

	chain := []*image.RGBA{rebase(src)}
	for i := 0; i < levels; i++ {
		cur := chain[len(chain)-1]
		w, h := cur.Rect.Dx()/2, cur.Rect.Dy()/2
		if w < 1 || h < 1 {
			break
		}
		next := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(next, next.Rect, cur, cur.Rect, draw.Src, nil)
		boxInPlace(next, 1)
		chain = append(chain, next)
	}

	cur := chain[len(chain)-1]
	for i := len(chain) - 2; i >= 0; i-- {
		up := image.NewRGBA(chain[i].Rect)
		draw.BiLinear.Scale(up, up.Rect, cur, cur.Rect, draw.Src, nil)
		boxInPlace(up, 1)
		cur = up
	}

	depth := len(chain) - 1
	final := strength / float64(int(1)<<depth)
	if final < 1 {
		final = 1
	}
	Box(cur, dst, final)
}

// rebase returns img with its bounds starting at the origin, sharing pixels.
func rebase(img *image.RGBA) *image.RGBA {
	if img.Rect.Min == (image.Point{}) {
		return img
	}
	return &image.RGBA{
		Pix:    img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y):],
		Stride: img.Stride,
		Rect:   image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()),
	}
}

func copyRGBA(dst, src *image.RGBA) {
	w := min(src.Rect.Dx(), dst.Rect.Dx()) * 4
	h := min(src.Rect.Dy(), dst.Rect.Dy())
	for y := 0; y < h; y++ {
		so := y * src.Stride
		do := y * dst.Stride
		copy(dst.Pix[do:do+w], src.Pix[so:so+w])
	}
}
