package floorplan

import (
	"image"
)

// ExtractRegions binarizes a cleaned grayscale plan into wall and space
// pixels, bridges broken wall lines, and labels connected interior
// regions. Returned regions are in source-pixel space.
//
// Area-based region finding is used instead of line reconstruction:
// scanned plans have inconsistent line thickness and quality, and
// connected components tolerate broken or doubled wall lines where
// line-based inference does not.
func ExtractRegions(g *image.Gray, orient Orientation, cfg DetectionConfig) []Region {
	threshold := cfg.BinarizeThreshold
	if orient == Landscape {
		// Landscape plans empirically scan lighter.
		threshold -= cfg.LandscapeThresholdDelta
	}

	walls := binarizeWalls(g, uint8(threshold))
	walls = dilate8(walls)

	return collectRegions(labelInteriors(walls))
}

// binarizeWalls marks pixels below the threshold as wall.
func binarizeWalls(g *image.Gray, threshold uint8) [][]bool {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	walls := make([][]bool, h)
	for y := 0; y < h; y++ {
		walls[y] = make([]bool, w)
		for x := 0; x < w; x++ {
			walls[y][x] = g.Pix[y*g.Stride+x] < threshold
		}
	}
	return walls
}

// dilate8 grows wall pixels by one pixel in the 8-neighborhood. Undilated
// plans frequently have wall gaps at doorways that merge distinct rooms
// into one region.
func dilate8(walls [][]bool) [][]bool {
	h := len(walls)
	if h == 0 {
		return walls
	}
	w := len(walls[0])
	out := make([][]bool, h)
	for y := 0; y < h; y++ {
		out[y] = make([]bool, w)
		for x := 0; x < w; x++ {
			if walls[y][x] {
				out[y][x] = true
				continue
			}
		neighbors:
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					ny, nx := y+dy, x+dx
					if ny < 0 || ny >= h || nx < 0 || nx >= w {
						continue
					}
					if walls[ny][nx] {
						out[y][x] = true
						break neighbors
					}
				}
			}
		}
	}
	return out
}

// labelInteriors inverts the wall mask and labels connected interior
// regions with two-pass 4-connectivity labeling. The first pass assigns
// provisional labels from the west/north neighbors and records
// equivalences through a union-find; the second pass rewrites every label
// to the canonical minimum of its class. Labels start at 1; 0 means wall.
func labelInteriors(walls [][]bool) [][]int {
	h := len(walls)
	if h == 0 {
		return nil
	}
	w := len(walls[0])

	labels := make([][]int, h)
	for y := range labels {
		labels[y] = make([]int, w)
	}

	uf := newUnionFind(1)
	next := 1

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if walls[y][x] {
				continue
			}

			west, north := 0, 0
			if x > 0 && !walls[y][x-1] {
				west = labels[y][x-1]
			}
			if y > 0 && !walls[y-1][x] {
				north = labels[y-1][x]
			}

			switch {
			case west == 0 && north == 0:
				uf.grow(next)
				labels[y][x] = next
				next++
			case west != 0 && north == 0:
				labels[y][x] = west
			case west == 0 && north != 0:
				labels[y][x] = north
			default:
				if west < north {
					labels[y][x] = west
				} else {
					labels[y][x] = north
				}
				if west != north {
					uf.union(west, north)
				}
			}
		}
	}

	// Second pass: flatten every provisional label to its canonical form.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if labels[y][x] != 0 {
				labels[y][x] = uf.find(labels[y][x])
			}
		}
	}

	return labels
}

// collectRegions accumulates bounding box, pixel area, and perimeter
// count per canonical label. A pixel is perimeter when it sits on the
// image border or has a 4-neighbor with a different label.
func collectRegions(labels [][]int) []Region {
	h := len(labels)
	if h == 0 {
		return nil
	}
	w := len(labels[0])

	byLabel := make(map[int]*Region)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			label := labels[y][x]
			if label == 0 {
				continue
			}

			rg, ok := byLabel[label]
			if !ok {
				rg = &Region{MinX: x, MinY: y, MaxX: x, MaxY: y}
				byLabel[label] = rg
			}

			if x < rg.MinX {
				rg.MinX = x
			}
			if x > rg.MaxX {
				rg.MaxX = x
			}
			if y < rg.MinY {
				rg.MinY = y
			}
			if y > rg.MaxY {
				rg.MaxY = y
			}
			rg.PixelArea++

			if isPerimeter(labels, x, y, w, h) {
				rg.Perimeter++
			}
		}
	}

	regions := make([]Region, 0, len(byLabel))
	for _, rg := range byLabel {
		regions = append(regions, *rg)
	}
	return regions
}

func isPerimeter(labels [][]int, x, y, w, h int) bool {
	if x == 0 || y == 0 || x == w-1 || y == h-1 {
		return true
	}
	label := labels[y][x]
	return labels[y][x-1] != label || labels[y][x+1] != label ||
		labels[y-1][x] != label || labels[y+1][x] != label
}
