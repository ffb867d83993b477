package floorplan

import (
	"testing"
)

func TestDetermineType_GenericFallbacks(t *testing.T) {
	// Target space 1000x800, image area 800000.
	cases := []struct {
		name string
		room DetectedRoom
		want RoomType
	}{
		{"wide hallway", DetectedRoom{X: 0, Y: 0, Width: 500, Height: 100}, RoomTypeHallway},
		{"tall hallway", DetectedRoom{X: 0, Y: 0, Width: 60, Height: 300}, RoomTypeHallway},
		{"closet", DetectedRoom{X: 0, Y: 0, Width: 100, Height: 100}, RoomTypeStorage},
		{"office", DetectedRoom{X: 0, Y: 0, Width: 180, Height: 150}, RoomTypeOffice},
		{"classroom", DetectedRoom{X: 0, Y: 0, Width: 300, Height: 250}, RoomTypeClassroom},
		{"lab", DetectedRoom{X: 0, Y: 0, Width: 500, Height: 300}, RoomTypeLab},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := determineType(tc.room, nil, 800000, 800)
			if got != tc.want {
				t.Errorf("type = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDetermineType_FloorRulesWin(t *testing.T) {
	floor := &FloorConfig{
		ID: "floor-2",
		Rules: []RoomRule{
			{Type: RoomTypeRestroom, MaxAreaFrac: 0.02, SouthOf: 0.5},
			{Type: RoomTypeLab, MinAreaFrac: 0.10},
		},
	}

	// Small, in the south half: the restroom rule fires before the generic
	// storage fallback.
	southCloset := DetectedRoom{X: 100, Y: 600, Width: 100, Height: 100}
	if got := determineType(southCloset, floor, 800000, 800); got != RoomTypeRestroom {
		t.Errorf("type = %s, want restroom", got)
	}

	// Same size in the north half: the rule's SouthOf predicate fails and
	// the generic fallback applies.
	northCloset := DetectedRoom{X: 100, Y: 50, Width: 100, Height: 100}
	if got := determineType(northCloset, floor, 800000, 800); got != RoomTypeStorage {
		t.Errorf("type = %s, want storage", got)
	}

	big := DetectedRoom{X: 100, Y: 100, Width: 400, Height: 300}
	if got := determineType(big, floor, 800000, 800); got != RoomTypeLab {
		t.Errorf("type = %s, want lab via floor rule", got)
	}
}

func TestAssignName_QuadrantPreference(t *testing.T) {
	floor := &FloorConfig{
		ID:         "floor-1",
		NorthNames: []string{"Faculty Office A", "Faculty Office B"},
		SouthNames: []string{"Main Lobby"},
		RoomNames:  []string{"Room 101", "Room 102"},
	}
	used := make(map[string]bool)

	north := DetectedRoom{X: 100, Y: 50, Width: 200, Height: 150}
	if got := assignName(north, floor, used, 400); got != "Faculty Office A" {
		t.Errorf("north name = %q, want Faculty Office A", got)
	}
	used["Faculty Office A"] = true

	south := DetectedRoom{X: 100, Y: 600, Width: 200, Height: 150}
	if got := assignName(south, floor, used, 400); got != "Main Lobby" {
		t.Errorf("south name = %q, want Main Lobby", got)
	}
	used["Main Lobby"] = true

	// South list exhausted: fall through to the general registry.
	south2 := DetectedRoom{X: 500, Y: 600, Width: 200, Height: 150}
	if got := assignName(south2, floor, used, 400); got != "Room 101" {
		t.Errorf("fallback name = %q, want Room 101", got)
	}
}

func TestClassifyRooms_GeneratedNamesUnique(t *testing.T) {
	rooms := []DetectedRoom{
		{X: 50, Y: 50, Width: 180, Height: 150},
		{X: 300, Y: 50, Width: 180, Height: 150},
		{X: 550, Y: 50, Width: 180, Height: 150},
	}

	out := ClassifyRooms(rooms, nil, 1000, 800)
	seenNames := make(map[string]bool)
	seenIDs := make(map[string]bool)
	for _, r := range out {
		if r.Name == "" {
			t.Error("room left unnamed")
		}
		if seenNames[r.Name] {
			t.Errorf("duplicate name %q", r.Name)
		}
		if seenIDs[r.ID] {
			t.Errorf("duplicate id %q", r.ID)
		}
		seenNames[r.Name] = true
		seenIDs[r.ID] = true
	}

	if out[0].ID != "room-1" || out[2].ID != "room-3" {
		t.Errorf("ids = %q, %q; want room-1, room-3", out[0].ID, out[2].ID)
	}
}

func TestClassifyRooms_DoesNotMutateInput(t *testing.T) {
	rooms := []DetectedRoom{{X: 50, Y: 50, Width: 180, Height: 150}}
	ClassifyRooms(rooms, nil, 1000, 800)
	if rooms[0].ID != "" || rooms[0].Name != "" {
		t.Error("input slice was mutated")
	}
}

func TestRoomConfidence_Bounds(t *testing.T) {
	cases := []DetectedRoom{
		{Width: 1, Height: 1, Type: RoomTypeStorage},
		{Width: 250, Height: 200, Type: RoomTypeOffice},
		{Width: 990, Height: 790, Type: RoomTypeLab},
		{Width: 900, Height: 30, Type: RoomTypeHallway},
	}
	for _, room := range cases {
		conf := roomConfidence(room, 800000)
		if conf < 0.3 || conf > 1.0 {
			t.Errorf("confidence %v for %+v outside [0.3, 1.0]", conf, room)
		}
	}

	// A medium, square office should score near the top of the band.
	good := DetectedRoom{Width: 280, Height: 230, Type: RoomTypeOffice}
	if conf := roomConfidence(good, 800000); conf < 0.85 {
		t.Errorf("well-shaped office confidence = %v, want >= 0.85", conf)
	}
}

func TestAreaConfidence(t *testing.T) {
	if got := areaConfidence(0.08); got != 1.0 {
		t.Errorf("peak = %v, want 1.0", got)
	}
	if got := areaConfidence(0.04); got != 0.5 {
		t.Errorf("half-peak = %v, want 0.5", got)
	}
	if got := areaConfidence(0.9); got != 0 {
		t.Errorf("beyond ceiling = %v, want 0", got)
	}
	if got := areaConfidence(0); got != 0 {
		t.Errorf("zero = %v, want 0", got)
	}
}

func TestAspectConfidence(t *testing.T) {
	if got := aspectConfidence(1.0); got != 1.0 {
		t.Errorf("square = %v, want 1.0", got)
	}
	if got := aspectConfidence(4.0); got != 0.5 {
		t.Errorf("wide = %v, want 0.5", got)
	}
	if got := aspectConfidence(0.25); got != 0.5 {
		t.Errorf("tall = %v, want 0.5", got)
	}
}
