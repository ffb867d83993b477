package floorplan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync/atomic"
)

// ErrNoRegions signals that the traditional pipeline produced zero
// surviving rooms. It never escapes the orchestrator: internally it
// triggers the grid fallback instead.
var ErrNoRegions = errors.New("no room-like regions found")

// Detection sources reported in DetectionResult.Source.
const (
	SourceNeural  = "neural"
	SourceContour = "contour"
	SourceGrid    = "grid"
)

// Neural detections are asserted to be well calibrated; their rooms get a
// fixed confidence.
const neuralConfidence = 0.85

// Grid fallback layout.
const (
	gridCols       = 3
	gridRows       = 2
	gridCellFill   = 0.8
	gridConfidence = 0.5
)

// Orchestrator runs one detection at a time per instance: an optional
// neural detector first, the traditional contour pipeline next, and a
// deterministic grid layout last. Detection never returns an empty room
// list; only decode errors surface to the caller.
//
// State is held per instance rather than in a package-level guard so
// multiple orchestrators (per test, per tenant) never share it.
type Orchestrator struct {
	cfg      DetectionConfig
	floors   *Config
	learning *LearningStore
	neural   Detector // may be nil

	// detecting is 1 while a detection is in flight. A second call made
	// while busy short-circuits to the grid fallback immediately rather
	// than queuing.
	detecting int32
}

// NewOrchestrator wires the detection pipeline. neural may be nil;
// learning may be nil to disable the adaptive loop.
func NewOrchestrator(config *Config, learning *LearningStore, neural Detector) *Orchestrator {
	return &Orchestrator{
		cfg:      config.Detection,
		floors:   config,
		learning: learning,
		neural:   neural,
	}
}

// Busy reports whether a detection is currently in flight.
func (o *Orchestrator) Busy() bool {
	return atomic.LoadInt32(&o.detecting) == 1
}

// DetectBytes decodes raster bytes and runs Detect. Decode failures
// return a *DecodeError and no fallback rooms.
func (o *Orchestrator) DetectBytes(ctx context.Context, data []byte, floorID string, targetW, targetH int) (DetectionResult, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return DetectionResult{}, err
	}
	return o.Detect(ctx, img, floorID, targetW, targetH)
}

// Detect identifies rooms in a decoded floor-plan image and returns them
// in the caller's coordinate space.
func (o *Orchestrator) Detect(ctx context.Context, img image.Image, floorID string, targetW, targetH int) (DetectionResult, error) {
	if targetW <= 0 || targetH <= 0 {
		return DetectionResult{}, fmt.Errorf("invalid target dimensions %dx%d", targetW, targetH)
	}

	floor := o.floors.FloorByID(floorID)
	bounds := img.Bounds()
	orient := OrientationOf(bounds.Dx(), bounds.Dy())

	if !atomic.CompareAndSwapInt32(&o.detecting, 0, 1) {
		log.Printf("[DETECT] %s: detection already in flight, returning grid fallback", floorID)
		return o.gridFallback(floor, orient, floorID, targetW, targetH), nil
	}
	defer atomic.StoreInt32(&o.detecting, 0)

	// Neural path first.
	if o.neural != nil {
		rooms, err := o.neural.Detect(ctx, img, targetW, targetH)
		if err != nil {
			log.Printf("[DETECT] %s: neural detector failed: %v (falling back to contour pipeline)", floorID, err)
		} else if len(rooms) > 0 {
			for i := range rooms {
				rooms[i].Confidence = neuralConfidence
				if rooms[i].ID == "" {
					rooms[i].ID = fmt.Sprintf("room-%d", i+1)
				}
			}
			log.Printf("[DETECT] %s: neural detector found %d rooms", floorID, len(rooms))
			// Neural results carry the fixed confidence as-is; count and
			// spatial heuristics apply to the contour pipeline only.
			return DetectionResult{
				Rooms:           rooms,
				Orientation:     orient,
				ConfidenceScore: neuralConfidence,
				FloorID:         floorID,
				Source:          SourceNeural,
			}, nil
		}
	}

	// Traditional pipeline.
	result, err := o.runPipeline(img, floor, orient, floorID, targetW, targetH)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, ErrNoRegions) {
		return DetectionResult{}, err
	}

	log.Printf("[DETECT] %s: pipeline found no rooms, using grid fallback", floorID)
	return o.gridFallback(floor, orient, floorID, targetW, targetH), nil
}

func (o *Orchestrator) runPipeline(img image.Image, floor *FloorConfig, orient Orientation, floorID string, targetW, targetH int) (DetectionResult, error) {
	cleaned := Preprocess(img)
	regions := ExtractRegions(cleaned, orient, o.cfg)

	srcW, srcH := cleaned.Rect.Dx(), cleaned.Rect.Dy()
	rooms := FilterRegions(regions, orient, srcW, srcH, targetW, targetH, o.cfg)
	if len(rooms) == 0 {
		return DetectionResult{}, ErrNoRegions
	}

	rooms = ClassifyRooms(rooms, floor, targetW, targetH)
	if o.learning != nil {
		rooms = o.learning.Enhance(rooms, floorID)
	}
	if len(rooms) == 0 {
		return DetectionResult{}, ErrNoRegions
	}

	log.Printf("[DETECT] %s: contour pipeline found %d rooms (%d raw regions)", floorID, len(rooms), len(regions))
	return AggregateResult(rooms, floor, orient, floorID, targetW, targetH, SourceContour), nil
}

// gridFallback lays out an evenly spaced grid of rooms sized to 80% of
// each cell, with best-effort names from the floor's registry. The
// fallback guarantees detection never returns an empty result.
func (o *Orchestrator) gridFallback(floor *FloorConfig, orient Orientation, floorID string, targetW, targetH int) DetectionResult {
	cols, rows := gridCols, gridRows
	if orient == Portrait {
		cols, rows = gridRows, gridCols
	}

	cellW := float64(targetW) / float64(cols)
	cellH := float64(targetH) / float64(rows)
	roomW := cellW * gridCellFill
	roomH := cellH * gridCellFill

	var rooms []DetectedRoom
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			i := row*cols + col
			name := fmt.Sprintf("Room %d", i+1)
			if floor != nil && i < len(floor.RoomNames) {
				name = floor.RoomNames[i]
			}
			rooms = append(rooms, DetectedRoom{
				ID:         fmt.Sprintf("room-%d", i+1),
				Name:       name,
				X:          float64(col)*cellW + (cellW-roomW)/2,
				Y:          float64(row)*cellH + (cellH-roomH)/2,
				Width:      roomW,
				Height:     roomH,
				Confidence: gridConfidence,
				Type:       RoomTypeOffice,
			})
		}
	}

	return DetectionResult{
		Rooms:           rooms,
		Orientation:     orient,
		ConfidenceScore: gridConfidence,
		FloorID:         floorID,
		Source:          SourceGrid,
	}
}
