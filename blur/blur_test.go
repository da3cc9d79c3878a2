package blur

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"
)

func checker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if (x/4+y/4)%2 == 0 {
				v = 255
			}
			img.SetRGBA(x, y, color.RGBA{v, v / 2, 255 - v, 255})
		}
	}
	return img
}

func uniform(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestRadius(t *testing.T) {
	tests := []struct {
		strength float64
		want     int
	}{
		{0, 0},
		{-3, 0},
		{math.NaN(), 0},
		{2.4, 2},
		{2.5, 3},
		{1e9, maxRadius},
	}
	for _, tt := range tests {
		if got := Radius(tt.strength); got != tt.want {
			t.Errorf("Radius(%v) = %d, want %d", tt.strength, got, tt.want)
		}
	}
}

func TestZeroStrengthCopies(t *testing.T) {
	src := checker(32, 24)
	for _, strategy := range []string{StrategyBox, StrategyMip} {
		for _, strength := range []float64{0, -1, math.NaN()} {
			dst := image.NewRGBA(src.Rect)
			Apply(strategy, src, dst, strength, 3)
			if !bytes.Equal(dst.Pix, src.Pix) {
				t.Errorf("%s strength %v: output differs from input", strategy, strength)
			}
		}
	}
}

func TestUniformImageUnchanged(t *testing.T) {
	c := color.RGBA{40, 120, 200, 255}
	src := uniform(40, 30, c)

	t.Run("box", func(t *testing.T) {
		dst := image.NewRGBA(src.Rect)
		Box(src, dst, 6)
		if !bytes.Equal(dst.Pix, src.Pix) {
			t.Error("box blur changed a uniform image")
		}
	})

	t.Run("mip", func(t *testing.T) {
		dst := image.NewRGBA(src.Rect)
		Mip(src, dst, 8, 3)
		for i, v := range dst.Pix {
			if d := int(v) - int(src.Pix[i]); d < -1 || d > 1 {
				t.Fatalf("pix[%d] = %d, want %d±1", i, v, src.Pix[i])
			}
		}
	})
}

func TestBoxSpreadsPoint(t *testing.T) {
	src := uniform(21, 21, color.RGBA{0, 0, 0, 255})
	src.SetRGBA(10, 10, color.RGBA{255, 255, 255, 255})

	dst := image.NewRGBA(src.Rect)
	Box(src, dst, 2)

	center := dst.RGBAAt(10, 10).R
	near := dst.RGBAAt(12, 12).R
	far := dst.RGBAAt(14, 10).R
	if center == 255 || center == 0 {
		t.Errorf("center = %d, want attenuated", center)
	}
	if near == 0 {
		t.Error("pixel within radius should receive light")
	}
	if far != 0 {
		t.Errorf("pixel beyond radius = %d, want 0", far)
	}
}

func TestBlurReproducible(t *testing.T) {
	src := checker(48, 48)
	for _, strategy := range []string{StrategyBox, StrategyMip} {
		a := image.NewRGBA(src.Rect)
		b := image.NewRGBA(src.Rect)
		Apply(strategy, src, a, 5, 2)
		Apply(strategy, src, b, 5, 2)
		if !bytes.Equal(a.Pix, b.Pix) {
			t.Errorf("%s: two runs differ", strategy)
		}
		if bytes.Equal(a.Pix, src.Pix) {
			t.Errorf("%s: output equals input", strategy)
		}
	}
}

func TestMipTinyImage(t *testing.T) {
	src := checker(3, 1)
	dst := image.NewRGBA(src.Rect)
	Mip(src, dst, 10, 5) // cannot halve: falls back to a full-resolution box
	for i := 3; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] != 255 {
			t.Errorf("alpha at %d = %d, want 255", i, dst.Pix[i])
		}
	}
}
