package floorplan

import (
	"sort"
)

// aspect and fill bands are orientation-dependent: landscape plans admit
// longer hallways, portrait plans demand slightly fuller regions.
const (
	landscapeMinAspect = 0.1
	landscapeMaxAspect = 10.0
	landscapeMinFill   = 0.40

	portraitMinAspect = 0.15
	portraitMaxAspect = 8.0
	portraitMinFill   = 0.45
)

// FilterRegions scores each labeled region by size, aspect ratio, fill
// ratio, and compactness, discards non-room-like regions, scales
// survivors to the target coordinate space, and removes overlapping
// duplicates. Type, name, and confidence are not populated here.
func FilterRegions(regions []Region, orient Orientation, srcW, srcH, targetW, targetH int, cfg DetectionConfig) []DetectedRoom {
	minAspect, maxAspect, minFill := portraitMinAspect, portraitMaxAspect, portraitMinFill
	if orient == Landscape {
		minAspect, maxAspect, minFill = landscapeMinAspect, landscapeMaxAspect, landscapeMinFill
	}

	smallerDim := srcW
	largerDim := srcH
	if srcH < srcW {
		smallerDim, largerDim = srcH, srcW
	}
	minSize := cfg.MinRoomSizePercent * float64(smallerDim)
	maxSize := cfg.MaxRoomSizePercent * float64(largerDim)

	scaleX := float64(targetW) / float64(srcW)
	scaleY := float64(targetH) / float64(srcH)

	var accepted []Region
	for _, rg := range regions {
		w, h := float64(rg.Width()), float64(rg.Height())
		if w < minSize || h < minSize || w > maxSize || h > maxSize {
			continue
		}
		aspect := rg.AspectRatio()
		if aspect < minAspect || aspect > maxAspect {
			continue
		}
		if rg.FillRatio() < minFill {
			continue
		}
		if rg.Compactness() < cfg.CompactnessFloor {
			continue
		}
		accepted = append(accepted, rg)
	}

	// Largest-first greedy dedup: a few oversized false merges cost
	// downstream classification less than many spurious micro-rooms.
	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].PixelArea > accepted[j].PixelArea
	})

	var rooms []DetectedRoom
	for _, rg := range accepted {
		room := DetectedRoom{
			X:      float64(rg.MinX) * scaleX,
			Y:      float64(rg.MinY) * scaleY,
			Width:  float64(rg.Width()) * scaleX,
			Height: float64(rg.Height()) * scaleY,
		}

		duplicate := false
		for _, kept := range rooms {
			if overlapRatio(room, kept) > cfg.OverlapLimit {
				duplicate = true
				break
			}
		}
		if !duplicate {
			rooms = append(rooms, room)
		}
	}

	return rooms
}
