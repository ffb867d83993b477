package floorplan

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Overlay colors per room type. Fills are translucent so the underlying
// plan stays visible for review.
var overlayColors = map[RoomType]color.NRGBA{
	RoomTypeOffice:    {100, 149, 237, 90}, // cornflower blue
	RoomTypeClassroom: {144, 238, 144, 90}, // light green
	RoomTypeLab:       {255, 215, 0, 90},   // gold
	RoomTypeHallway:   {211, 211, 211, 90}, // light gray
	RoomTypeStorage:   {222, 184, 135, 90}, // burlywood
	RoomTypeStairs:    {192, 192, 192, 90},
	RoomTypeRestroom:  {175, 238, 238, 90}, // pale turquoise
	RoomTypeLobby:     {255, 160, 122, 90}, // light salmon
}

var overlayBorder = color.NRGBA{178, 34, 34, 255} // firebrick

// RenderOverlay draws the detected rooms onto the source plan for human
// review: a translucent type-colored fill, a border, and a name plus
// confidence label per room. Room coordinates are in the caller's target
// space and are mapped back to pixel space here.
func RenderOverlay(src image.Image, result DetectionResult, targetW, targetH int) *image.RGBA {
	bounds := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), src, bounds.Min, draw.Src)

	scaleX := float64(bounds.Dx()) / float64(targetW)
	scaleY := float64(bounds.Dy()) / float64(targetH)

	for _, room := range result.Rooms {
		x0 := int(room.X * scaleX)
		y0 := int(room.Y * scaleY)
		x1 := int((room.X + room.Width) * scaleX)
		y1 := int((room.Y + room.Height) * scaleY)

		fill, ok := overlayColors[room.Type]
		if !ok {
			fill = color.NRGBA{128, 128, 128, 90}
		}
		fillRect(out, x0, y0, x1, y1, fill)
		strokeRect(out, x0, y0, x1, y1, overlayBorder)

		label := fmt.Sprintf("%s (%.2f)", room.Name, room.Confidence)
		drawLabel(out, x0+4, y0+14, label, color.RGBA{0, 0, 0, 255})
	}

	return out
}

// fillRect blends a translucent color over a rectangle.
func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	r := image.Rect(x0, y0, x1, y1).Intersect(img.Bounds())
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// strokeRect draws a 1px rectangle outline.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	b := img.Bounds()
	for x := x0; x <= x1; x++ {
		if x < b.Min.X || x >= b.Max.X {
			continue
		}
		if y0 >= b.Min.Y && y0 < b.Max.Y {
			img.Set(x, y0, c)
		}
		if y1-1 >= b.Min.Y && y1-1 < b.Max.Y {
			img.Set(x, y1-1, c)
		}
	}
	for y := y0; y <= y1; y++ {
		if y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		if x0 >= b.Min.X && x0 < b.Max.X {
			img.Set(x0, y, c)
		}
		if x1-1 >= b.Min.X && x1-1 < b.Max.X {
			img.Set(x1-1, y, c)
		}
	}
}

// drawLabel renders text at the given pixel position using the basic 7x13
// font.
func drawLabel(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
