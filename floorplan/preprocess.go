package floorplan

import (
	"image"
	"math"
)

const (
	// Margin fractions cleared unconditionally. Titles, page numbers,
	// and legends statistically live in these bands.
	topMarginFrac    = 0.10
	bottomMarginFrac = 0.10
	sideMarginFrac   = 0.05

	// Edge-density text pass.
	textBlockSize     = 8
	textEdgeDensity   = 0.15
	textClusterMin    = 5
	textClusterMax    = 1000
	edgeGradThreshold = 30.0

	// Isolated-glyph pass.
	glyphThreshold  = 180
	glyphClusterMin = 5
	glyphClusterMax = 300

	background = 255
)

// Preprocess converts a decoded floor-plan image to grayscale and removes
// text and annotation artifacts before geometric analysis. Two independent
// removal passes run: a coarse edge-density pass for titles and margins,
// and a fine component-size pass for in-plan labels. Plans with dense
// annotations under-clean when either pass is skipped.
func Preprocess(img image.Image) *image.Gray {
	gray := toGray(img)
	clearMargins(gray)
	removeTextRegions(gray)
	removeIsolatedGlyphs(gray)
	return gray
}

// toGray converts an image to grayscale using ITU-R BT.601 luminance
// weights.
func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray.Pix[y*gray.Stride+x] = uint8(lum)
		}
	}
	return gray
}

// clearMargins flattens the fixed margin bands to background.
func clearMargins(g *image.Gray) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	top := int(float64(h) * topMarginFrac)
	bottom := h - int(float64(h)*bottomMarginFrac)
	left := int(float64(w) * sideMarginFrac)
	right := w - int(float64(w)*sideMarginFrac)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if y < top || y >= bottom || x < left || x >= right {
				g.Pix[y*g.Stride+x] = background
			}
		}
	}
}

// removeTextRegions runs the coarse edge-density pass: a luminance
// gradient map is partitioned into fixed-size blocks, blocks whose
// edge-pixel density exceeds the threshold are flagged, and 4-connected
// clusters of flagged pixels in the text size band are erased.
func removeTextRegions(g *image.Gray) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	edges := gradientEdges(g)

	// Flag whole blocks whose edge density looks text-like.
	flagged := make([][]bool, h)
	for y := range flagged {
		flagged[y] = make([]bool, w)
	}
	for by := 0; by < h; by += textBlockSize {
		for bx := 0; bx < w; bx += textBlockSize {
			edgeCount, total := 0, 0
			for y := by; y < by+textBlockSize && y < h; y++ {
				for x := bx; x < bx+textBlockSize && x < w; x++ {
					total++
					if edges[y][x] {
						edgeCount++
					}
				}
			}
			if total > 0 && float64(edgeCount)/float64(total) > textEdgeDensity {
				for y := by; y < by+textBlockSize && y < h; y++ {
					for x := bx; x < bx+textBlockSize && x < w; x++ {
						flagged[y][x] = true
					}
				}
			}
		}
	}

	eraseClusters(g, flagged, textClusterMin, textClusterMax)
}

// removeIsolatedGlyphs runs the fine pass: the whole image is binarized
// and small dark components in the glyph size band are erased.
func removeIsolatedGlyphs(g *image.Gray) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	dark := make([][]bool, h)
	for y := 0; y < h; y++ {
		dark[y] = make([]bool, w)
		for x := 0; x < w; x++ {
			dark[y][x] = g.Pix[y*g.Stride+x] < glyphThreshold
		}
	}
	eraseClusters(g, dark, glyphClusterMin, glyphClusterMax)
}

// gradientEdges marks pixels whose horizontal or vertical luminance
// gradient exceeds the threshold. Border pixels are never edges.
func gradientEdges(g *image.Gray) [][]bool {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	edges := make([][]bool, h)
	for y := 0; y < h; y++ {
		edges[y] = make([]bool, w)
		if y == 0 || y == h-1 {
			continue
		}
		for x := 1; x < w-1; x++ {
			c := float64(g.Pix[y*g.Stride+x])
			dx := math.Abs(c - float64(g.Pix[y*g.Stride+x+1]))
			dy := math.Abs(c - float64(g.Pix[(y+1)*g.Stride+x]))
			if dx > edgeGradThreshold || dy > edgeGradThreshold {
				edges[y][x] = true
			}
		}
	}
	return edges
}

// eraseClusters flood-fills 4-connected clusters of marked pixels and
// flattens clusters whose size falls inside [minSize, maxSize] to
// background.
func eraseClusters(g *image.Gray, mask [][]bool, minSize, maxSize int) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	visited := make([][]bool, h)
	for y := range visited {
		visited[y] = make([]bool, w)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y][x] || visited[y][x] {
				continue
			}
			cluster := floodFill4(mask, visited, x, y, w, h)
			if len(cluster) >= minSize && len(cluster) <= maxSize {
				for _, p := range cluster {
					g.Pix[p.Y*g.Stride+p.X] = background
				}
			}
		}
	}
}

// floodFill4 collects the 4-connected cluster containing (startX, startY)
// using an iterative stack to avoid recursion depth limits on large
// clusters.
func floodFill4(mask, visited [][]bool, startX, startY, w, h int) []image.Point {
	stack := []image.Point{{X: startX, Y: startY}}
	var cluster []image.Point

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= w || p.Y < 0 || p.Y >= h {
			continue
		}
		if visited[p.Y][p.X] || !mask[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		cluster = append(cluster, p)

		stack = append(stack,
			image.Point{X: p.X - 1, Y: p.Y},
			image.Point{X: p.X + 1, Y: p.Y},
			image.Point{X: p.X, Y: p.Y - 1},
			image.Point{X: p.X, Y: p.Y + 1},
		)
	}
	return cluster
}
