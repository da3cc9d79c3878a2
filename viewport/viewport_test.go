package viewport

import (
	"image"
	"math"
	"testing"
)

func TestNewCapsDPR(t *testing.T) {
	tests := []struct {
		name    string
		dpr     float64
		wantDPR float64
		wantW   int
	}{
		{"standard display", 1, 1, 480},
		{"retina", 2, 2, 960},
		{"dense phone capped", 3.5, 2, 960},
		{"fractional", 1.5, 1.5, 720},
		{"invalid falls back to 1", math.NaN(), 1, 480},
		{"zero falls back to 1", 0, 1, 480},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(0, 0, 480, 320, tt.dpr, 2)
			if v.DPR != tt.wantDPR {
				t.Errorf("DPR = %v, want %v", v.DPR, tt.wantDPR)
			}
			if w, _ := v.PixelSize(); w != tt.wantW {
				t.Errorf("pixel width = %d, want %d", w, tt.wantW)
			}
		})
	}
}

func TestResizeReportsChange(t *testing.T) {
	v := New(0, 0, 400, 400, 1, 2)
	if v.Resize(400, 400, 1) {
		t.Error("same size should report no change")
	}
	if !v.Resize(400, 400, 2) {
		t.Error("DPR change should report a change")
	}
	if v.Resize(400, 400, 3) {
		t.Error("DPR above the cap maps to the same pixel size")
	}
	if !v.Resize(0, 400, 2) || !v.Empty() {
		t.Error("zero width should change and be empty")
	}
}

func TestRegion(t *testing.T) {
	v := New(10.7, 20.2, 100, 50, 1.5, 2)
	if got, want := v.Region(), image.Rect(10, 20, 110, 70); got != want {
		t.Errorf("Region() = %v, want %v", got, want)
	}
}
