package floorplan

import (
	"math"

	"github.com/paulmach/orb"
)

// Aggregate weights: per-room confidence dominates, with room-count and
// spatial-distribution heuristics as correction terms.
const (
	weightMeanRoom = 0.6
	weightCount    = 0.2
	weightSpatial  = 0.2

	// Fraction of rooms in one quadrant above which the layout is
	// considered suspiciously clustered.
	clusterLimit = 0.7
)

// AggregateResult combines per-room confidences with room-count and
// spatial-distribution heuristics into one DetectionResult. The overall
// score is clamped to [0.3, 1.0].
func AggregateResult(rooms []DetectedRoom, floor *FloorConfig, orient Orientation, floorID string, targetW, targetH int, source string) DetectionResult {
	score := weightMeanRoom*meanConfidence(rooms) +
		weightCount*roomCountConfidence(len(rooms), floor) +
		weightSpatial*spatialConfidence(rooms, targetW, targetH)

	return DetectionResult{
		Rooms:           rooms,
		Orientation:     orient,
		ConfidenceScore: clamp(score, 0.3, 1.0),
		FloorID:         floorID,
		Source:          source,
	}
}

func meanConfidence(rooms []DetectedRoom) float64 {
	if len(rooms) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range rooms {
		sum += clamp(r.Confidence, 0, 1)
	}
	return sum / float64(len(rooms))
}

// roomCountConfidence compares the detected count against the floor's
// expected count. Floors without an expectation get a neutral score.
func roomCountConfidence(actual int, floor *FloorConfig) float64 {
	if floor == nil || floor.ExpectedRooms <= 0 {
		return 0.7
	}
	expected := float64(floor.ExpectedRooms)
	return clamp(1.0-math.Abs(float64(actual)-expected)/expected, 0, 1)
}

// spatialConfidence penalizes detections where more than clusterLimit of
// the rooms fall in a single quadrant of the target space.
func spatialConfidence(rooms []DetectedRoom, targetW, targetH int) float64 {
	if len(rooms) == 0 {
		return 0
	}

	center := orb.Point{float64(targetW) / 2, float64(targetH) / 2}
	var counts [4]int
	for _, r := range rooms {
		counts[quadrantOf(r.Center(), center)]++
	}

	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	maxFrac := float64(maxCount) / float64(len(rooms))
	if maxFrac <= clusterLimit {
		return 1.0
	}
	return clamp(1.0-(maxFrac-clusterLimit)/(1.0-clusterLimit)*0.5, 0, 1)
}

// quadrantOf returns 0..3 for NW, NE, SW, SE relative to center.
func quadrantOf(p, center orb.Point) int {
	q := 0
	if p[0] >= center[0] {
		q++
	}
	if p[1] >= center[1] {
		q += 2
	}
	return q
}
