package screenshot

import (
	"image"
	"testing"
)

func TestFit(t *testing.T) {
	cases := []struct {
		src      image.Point
		width    int
		height   int
		expected image.Point
	}{
		{image.Pt(1920, 1080), 1280, 720, image.Pt(1280, 720)},
		{image.Pt(1920, 1200), 1280, 720, image.Pt(1152, 720)},
		{image.Pt(800, 600), 1280, 720, image.Pt(800, 600)},
		{image.Pt(1000, 4000), 1280, 720, image.Pt(180, 720)},
		{image.Pt(640, 480), 0, 0, image.Pt(640, 480)},
	}

	for _, c := range cases {
		img := image.NewRGBA(image.Rectangle{Max: c.src})
		got := Fit(img, c.width, c.height).Bounds().Size()
		if got != c.expected {
			t.Fatalf("Expected %v for %v in %dx%d, got %v", c.expected, c.src, c.width, c.height, got)
		}
	}
}

func TestGetFrameBeforeOpen(t *testing.T) {
	d := NewDriver(nil)
	_, _, err := d.GetFrame()
	if err != ErrNoDisplay {
		t.Fatalf("Expected ErrNoDisplay, got %v", err)
	}
}
