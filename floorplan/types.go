package floorplan

import (
	"github.com/paulmach/orb"
)

// Orientation describes the aspect of a source floor-plan image.
type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
)

// RoomType categorizes a detected room for downstream audit calculators.
type RoomType string

const (
	RoomTypeOffice    RoomType = "office"
	RoomTypeClassroom RoomType = "classroom"
	RoomTypeLab       RoomType = "lab"
	RoomTypeHallway   RoomType = "hallway"
	RoomTypeStorage   RoomType = "storage"
	RoomTypeStairs    RoomType = "stairs"
	RoomTypeRestroom  RoomType = "restroom"
	RoomTypeLobby     RoomType = "lobby"
)

// DetectedRoom is a single room in the caller's coordinate space.
// Position and size are already scaled from pixel space by the time a
// DetectedRoom leaves the detection pipeline. IDs are assigned per
// detection run and are only stable across runs when the learning store
// carries a room forward.
type DetectedRoom struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Width      float64  `json:"width"`
	Height     float64  `json:"height"`
	Confidence float64  `json:"confidence"`
	Type       RoomType `json:"type"`
}

// Bound returns the room's bounding box as an orb.Bound.
func (r DetectedRoom) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.X, r.Y},
		Max: orb.Point{r.X + r.Width, r.Y + r.Height},
	}
}

// Center returns the room's center point.
func (r DetectedRoom) Center() orb.Point {
	return orb.Point{r.X + r.Width/2, r.Y + r.Height/2}
}

// Area returns the room's bounding-box area.
func (r DetectedRoom) Area() float64 {
	return r.Width * r.Height
}

// DetectionResult is the unit returned to callers. It is immutable once
// produced; collaborators receive their own copy of the room slice.
type DetectionResult struct {
	Rooms           []DetectedRoom `json:"rooms"`
	Orientation     Orientation    `json:"orientation"`
	ConfidenceScore float64        `json:"confidenceScore"`
	FloorID         string         `json:"floorId"`
	Source          string         `json:"source"` // "neural", "contour", or "grid"
}

// Region is a labeled connected component in source-pixel space. Regions
// exist only between labeling and filtering within one detection call.
type Region struct {
	MinX, MinY int
	MaxX, MaxY int
	PixelArea  int
	Perimeter  int
}

// Width returns the region width in pixels (inclusive bounds).
func (rg Region) Width() int { return rg.MaxX - rg.MinX + 1 }

// Height returns the region height in pixels (inclusive bounds).
func (rg Region) Height() int { return rg.MaxY - rg.MinY + 1 }

// AspectRatio returns width/height.
func (rg Region) AspectRatio() float64 {
	h := rg.Height()
	if h == 0 {
		return 0
	}
	return float64(rg.Width()) / float64(h)
}

// FillRatio returns pixel area over bounding-box area.
func (rg Region) FillRatio() float64 {
	box := rg.Width() * rg.Height()
	if box == 0 {
		return 0
	}
	return float64(rg.PixelArea) / float64(box)
}

// Compactness returns area / perimeter², low for filament-like regions.
func (rg Region) Compactness() float64 {
	if rg.Perimeter == 0 {
		return 0
	}
	return float64(rg.PixelArea) / float64(rg.Perimeter*rg.Perimeter)
}

// LearningSample is one accepted detection for a floor. Samples are
// append-only and serialize exactly through encoding/json.
type LearningSample struct {
	Timestamp  int64          `json:"timestamp"`
	FloorID    string         `json:"floorId"`
	Rooms      []DetectedRoom `json:"rooms"`
	Confidence float64        `json:"confidence"`
}

// RoomDetail is the record shape the audit CRUD layer persists and edits.
// The engine only fills the fields it knows about; reflectance, lux, and
// fixture defaults come from the room type.
type RoomDetail struct {
	RoomID            string  `json:"roomId"`
	RoomName          string  `json:"roomName"`
	RoomType          string  `json:"roomType"`
	PositionX         float64 `json:"positionX"`
	PositionY         float64 `json:"positionY"`
	Width             float64 `json:"width"`
	Height            float64 `json:"height"`
	SurfaceReflectance float64 `json:"surfaceReflectance"`
	TargetLux         float64 `json:"targetLux"`
	FixtureCount      int     `json:"fixtureCount"`
	DetectionScore    float64 `json:"detectionScore"`
}

// clamp bounds v to [lo, hi]. Every confidence passes through this before
// leaving a pipeline stage so NaN or out-of-range intermediates cannot
// escape.
func clamp(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// overlapRatio returns intersection area over the smaller room's own area.
func overlapRatio(a, b DetectedRoom) float64 {
	ab, bb := a.Bound(), b.Bound()
	if !ab.Intersects(bb) {
		return 0
	}
	ix := minF(ab.Max[0], bb.Max[0]) - maxF(ab.Min[0], bb.Min[0])
	iy := minF(ab.Max[1], bb.Max[1]) - maxF(ab.Min[1], bb.Min[1])
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	smaller := minF(a.Area(), b.Area())
	if smaller <= 0 {
		return 0
	}
	return inter / smaller
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
