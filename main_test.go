package main

import (
	"image"
	"testing"

	"github.com/pthm-cable/rainglass/config"
)

func TestOverlayRect(t *testing.T) {
	cfg := config.MustLoad("")
	cfg.Canvas.Width = 400
	cfg.Canvas.Height = 300

	tests := []struct {
		name         string
		pageW, pageH int
		want         image.Rectangle
	}{
		{"centered", 1000, 700, image.Rect(300, 200, 700, 500)},
		{"shrinks with margin", 300, 200, image.Rect(20, 20, 280, 180)},
		{"tiny page", 10, 10, image.Rect(4, 4, 5, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overlayRect(tt.pageW, tt.pageH, cfg); got != tt.want {
				t.Errorf("overlayRect(%d, %d) = %v, want %v", tt.pageW, tt.pageH, got, tt.want)
			}
		})
	}
}

func TestLoadPageTestCard(t *testing.T) {
	page, err := loadPage("")
	if err != nil {
		t.Fatal(err)
	}
	if page.Rect.Dx() != 1024 || page.Rect.Dy() != 720 {
		t.Errorf("test card size = %v", page.Rect.Size())
	}
	if _, err := loadPage("does-not-exist.png"); err == nil {
		t.Error("expected error for a missing page image")
	}
}
