package floorplan

import (
	"fmt"
	"strings"
)

// Per-type prior confidence. Compact, regular spaces are trusted more
// than circulation spaces whose shapes vary wildly between plans.
var typePrior = map[RoomType]float64{
	RoomTypeOffice:    0.90,
	RoomTypeClassroom: 0.85,
	RoomTypeLab:       0.80,
	RoomTypeRestroom:  0.75,
	RoomTypeLobby:     0.75,
	RoomTypeStorage:   0.70,
	RoomTypeHallway:   0.60,
	RoomTypeStairs:    0.60,
}

// typePrefix maps a room type to the prefix used in generated names.
var typePrefix = map[RoomType]string{
	RoomTypeOffice:    "Office",
	RoomTypeClassroom: "Room",
	RoomTypeLab:       "Lab",
	RoomTypeHallway:   "Hallway",
	RoomTypeStorage:   "Storage",
	RoomTypeStairs:    "Stairs",
	RoomTypeRestroom:  "Restroom",
	RoomTypeLobby:     "Lobby",
}

// ClassifyRooms assigns a type, a human-readable name, a stable per-run
// ID, and a confidence score to each filtered room. Floor-specific rules
// and the floor's name registry are consulted first; generic fallbacks
// cover unknown floors. floor may be nil.
func ClassifyRooms(rooms []DetectedRoom, floor *FloorConfig, targetW, targetH int) []DetectedRoom {
	out := make([]DetectedRoom, len(rooms))
	copy(out, rooms)

	imageArea := float64(targetW) * float64(targetH)
	centerY := float64(targetH) / 2

	usedNames := make(map[string]bool)
	seq := 0

	for i := range out {
		room := &out[i]
		room.ID = fmt.Sprintf("room-%d", i+1)
		room.Type = determineType(*room, floor, imageArea, float64(targetH))
		room.Name = assignName(*room, floor, usedNames, centerY)
		if room.Name == "" {
			seq++
			room.Name = generatedName(room.Type, floor, seq)
		}
		usedNames[room.Name] = true
		room.Confidence = roomConfidence(*room, imageArea)
	}

	return out
}

// determineType applies floor-specific rules in order, then the generic
// fallback table. First matching rule wins. The fallback default is
// deliberately deterministic: office.
func determineType(room DetectedRoom, floor *FloorConfig, imageArea, targetH float64) RoomType {
	areaFrac := room.Area() / imageArea
	aspect := aspectOf(room)
	cy := room.Center()[1]

	if floor != nil {
		for _, rule := range floor.Rules {
			if ruleMatches(rule, areaFrac, aspect, cy, targetH) {
				return rule.Type
			}
		}
	}

	// Generic fallbacks.
	switch {
	case aspect >= 4.0 || (aspect > 0 && aspect <= 0.25):
		return RoomTypeHallway
	case areaFrac < 0.015:
		return RoomTypeStorage
	case areaFrac < 0.05:
		return RoomTypeOffice
	case areaFrac > 0.15:
		return RoomTypeLab
	default:
		return RoomTypeClassroom
	}
}

func ruleMatches(rule RoomRule, areaFrac, aspect, centerY, targetH float64) bool {
	if rule.MinAreaFrac > 0 && areaFrac < rule.MinAreaFrac {
		return false
	}
	if rule.MaxAreaFrac > 0 && areaFrac > rule.MaxAreaFrac {
		return false
	}
	if rule.MinAspect > 0 && aspect < rule.MinAspect {
		return false
	}
	if rule.MaxAspect > 0 && aspect > rule.MaxAspect {
		return false
	}
	if rule.NorthOf > 0 && centerY > rule.NorthOf*targetH {
		return false
	}
	if rule.SouthOf > 0 && centerY < rule.SouthOf*targetH {
		return false
	}
	return true
}

// assignName draws from the floor's name registry. Rooms north of the
// image centroid preferentially receive the floor's north-pattern names
// (faculty, office corridors), rooms south receive the south-pattern
// names (lobbies, reception). Remaining registry names go out in
// detection order. Returns "" when the registry is exhausted.
func assignName(room DetectedRoom, floor *FloorConfig, used map[string]bool, centerY float64) string {
	if floor == nil {
		return ""
	}

	quadrantNames := floor.SouthNames
	if room.Center()[1] < centerY {
		quadrantNames = floor.NorthNames
	}
	for _, name := range quadrantNames {
		if !used[name] {
			return name
		}
	}

	for _, name := range floor.RoomNames {
		if !used[name] {
			return name
		}
	}
	return ""
}

func generatedName(t RoomType, floor *FloorConfig, seq int) string {
	prefix := typePrefix[t]
	if prefix == "" {
		prefix = "Room"
	}
	floorPrefix := "F"
	if floor != nil && floor.Prefix != "" {
		floorPrefix = floor.Prefix
	} else if floor != nil && floor.ID != "" {
		floorPrefix = strings.ToUpper(floor.ID[:1])
	}
	return fmt.Sprintf("%s %s-%d", prefix, floorPrefix, seq)
}

// roomConfidence combines area, aspect, and type-prior confidence with
// 0.4/0.3/0.3 weights, clamped to [0.3, 1.0]. Detections are never
// reported below 0.3 nor above 1.0.
func roomConfidence(room DetectedRoom, imageArea float64) float64 {
	areaConf := areaConfidence(room.Area() / imageArea)
	aspectConf := aspectConfidence(aspectOf(room))
	prior, ok := typePrior[room.Type]
	if !ok {
		prior = 0.7
	}
	return clamp(0.4*areaConf+0.3*aspectConf+0.3*prior, 0.3, 1.0)
}

// areaConfidence peaks at 1.0 for medium-area rooms and decays linearly
// toward both extremes.
func areaConfidence(frac float64) float64 {
	const peak = 0.08
	const ceiling = 0.70
	switch {
	case frac <= 0:
		return 0
	case frac < peak:
		return frac / peak
	case frac <= ceiling:
		return 1.0 - (frac-peak)/(ceiling-peak)
	default:
		return 0
	}
}

// aspectConfidence peaks at ratio 1.0 and decays as min(1, k/ratio) for
// wide rooms and min(1, ratio·k) for tall ones.
func aspectConfidence(ratio float64) float64 {
	const k = 2.0
	if ratio <= 0 {
		return 0
	}
	if ratio >= 1 {
		return minF(1, k/ratio)
	}
	return minF(1, ratio*k)
}

func aspectOf(room DetectedRoom) float64 {
	if room.Height <= 0 {
		return 0
	}
	return room.Width / room.Height
}
