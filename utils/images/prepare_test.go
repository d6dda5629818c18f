package images

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("unable to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestPrepare(t *testing.T) {
	t.Run("png_passthrough", func(t *testing.T) {
		p, err := Prepare(encodePNG(t, 40, 20), 0)
		if err != nil {
			t.Fatalf("Prepare() error = %v", err)
		}
		if p.Width != 40 || p.Height != 20 {
			t.Errorf("dimensions = %dx%d, want 40x20", p.Width, p.Height)
		}
		if _, err := png.Decode(bytes.NewReader(p.Data)); err != nil {
			t.Errorf("result is not png: %v", err)
		}
	})

	t.Run("downscale", func(t *testing.T) {
		p, err := Prepare(encodePNG(t, 400, 200), 100)
		if err != nil {
			t.Fatalf("Prepare() error = %v", err)
		}
		if p.Width != 100 || p.Height != 50 {
			t.Errorf("dimensions = %dx%d, want 100x50", p.Width, p.Height)
		}
	})

	t.Run("svg", func(t *testing.T) {
		svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 32"><rect width="64" height="32"/></svg>`)
		p, err := Prepare(svg, 0)
		if err != nil {
			t.Fatalf("Prepare() error = %v", err)
		}
		if p.Width != 64 || p.Height != 32 {
			t.Errorf("dimensions = %dx%d, want 64x32", p.Width, p.Height)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := Prepare([]byte("definitely not a picture"), 0); err == nil {
			t.Error("Prepare() expected error for garbage input, got nil")
		}
	})
}
