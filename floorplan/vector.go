package floorplan

import (
	"image/color"
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// nrgbaToRGBA premultiplies alpha for the canvas library, which expects
// premultiplied RGBA.
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

// VectorRenderer renders a detection result as vector graphics for the
// browser editor, which overlays and manipulates room rectangles on top
// of the plan.
type VectorRenderer struct {
	Result     DetectionResult
	Width      float64 // target-space width
	Height     float64 // target-space height
	Padding    float64
	Resolution canvas.Resolution // for PNG output
}

// NewVectorRenderer creates a renderer with default settings.
func NewVectorRenderer(result DetectionResult, targetW, targetH int) *VectorRenderer {
	return &VectorRenderer{
		Result:     result,
		Width:      float64(targetW),
		Height:     float64(targetH),
		Padding:    10,
		Resolution: canvas.DPI(300),
	}
}

// canvasRenderer is the shared interface of the canvas SVG and raster
// backends.
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the detection as an SVG document.
func (r *VectorRenderer) RenderToSVG(w io.Writer) error {
	width := r.Width + 2*r.Padding
	height := r.Height + 2*r.Padding

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, width, height)
	return svgRenderer.Close()
}

// RenderToPNG rasterizes the vector output and writes PNG.
func (r *VectorRenderer) RenderToPNG(w io.Writer) error {
	width := r.Width + 2*r.Padding
	height := r.Height + 2*r.Padding

	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, width, height)
	return png.Encode(w, rast)
}

func (r *VectorRenderer) renderToCanvas(renderer canvasRenderer, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	for _, room := range r.Result.Rooms {
		fill, ok := overlayColors[room.Type]
		if !ok {
			fill = color.NRGBA{128, 128, 128, 90}
		}

		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: nrgbaToRGBA(fill)}
		style.Stroke = canvas.Paint{Color: nrgbaToRGBA(overlayBorder)}
		style.StrokeWidth = 1.5

		// Canvas coordinates grow upward; room coordinates grow downward.
		x := room.X + r.Padding
		y := height - r.Padding - room.Y - room.Height

		path := canvas.Rectangle(room.Width, room.Height)
		path = path.Translate(x, y)
		renderer.RenderPath(path, style, canvas.Identity)
	}

	// Room labels need a loaded font face in tdewolff/canvas; the editor
	// draws its own labels from the JSON payload, so the vector export
	// stays geometry-only.
}
