package floorplan

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// newPlanImage creates a white canvas in grayscale.
func newPlanImage(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	return g
}

// drawRoomOutline draws a rectangular wall outline with the given
// thickness, the way scanned plans delimit rooms.
func drawRoomOutline(g *image.Gray, x, y, w, h, thickness int) {
	for t := 0; t < thickness; t++ {
		for px := x; px < x+w; px++ {
			setWall(g, px, y+t)
			setWall(g, px, y+h-1-t)
		}
		for py := y; py < y+h; py++ {
			setWall(g, x+t, py)
			setWall(g, x+w-1-t, py)
		}
	}
}

func setWall(g *image.Gray, x, y int) {
	if x >= 0 && x < g.Rect.Dx() && y >= 0 && y < g.Rect.Dy() {
		g.Pix[y*g.Stride+x] = 0
	}
}

// twoRoomPlan builds the canonical 1000x800 landscape plan with two
// outlined rooms: 300x200 at (100,100) and 250x250 at (600,400).
func twoRoomPlan() *image.Gray {
	g := newPlanImage(1000, 800)
	drawRoomOutline(g, 100, 100, 300, 200, 3)
	drawRoomOutline(g, 600, 400, 250, 250, 3)
	return g
}

// toRGBA converts a grayscale plan to RGBA for decode-path tests.
func toRGBA(g *image.Gray) *image.RGBA {
	out := image.NewRGBA(g.Rect)
	for y := 0; y < g.Rect.Dy(); y++ {
		for x := 0; x < g.Rect.Dx(); x++ {
			v := g.Pix[y*g.Stride+x]
			out.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return out
}

// encodePNG encodes an image for endpoint and decode tests.
func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

// testDetectionConfig returns the tuned defaults used across tests.
func testDetectionConfig() DetectionConfig {
	var cfg DetectionConfig
	cfg.ApplyDefaults()
	return cfg
}
