package floorplan

import (
	"encoding/json"
	"math"
	"testing"
)

func newTestLearningStore(cap int) (*LearningStore, *MemoryStore) {
	cfg := testDetectionConfig()
	if cap > 0 {
		cfg.SampleCap = cap
	}
	ms := NewMemoryStore()
	return NewLearningStore(ms, cfg), ms
}

func seedSamples(t *testing.T, ms *MemoryStore, floorID string, samples []LearningSample) {
	t.Helper()
	data, err := json.Marshal(samples)
	if err != nil {
		t.Fatalf("marshal seed samples: %v", err)
	}
	if err := ms.Set(learningKeyPrefix+floorID, data); err != nil {
		t.Fatalf("seed samples: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Record
// ---------------------------------------------------------------------------

func TestRecord_BelowThresholdDropped(t *testing.T) {
	ls, _ := newTestLearningStore(0)
	rooms := []DetectedRoom{{ID: "room-1", Name: "Office F-1", X: 100, Y: 100, Width: 200, Height: 150}}

	if err := ls.Record("floor-1", rooms, 0.5, false); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := ls.Samples("floor-1"); len(got) != 0 {
		t.Errorf("samples = %d, want 0 for sub-threshold confidence", len(got))
	}
}

func TestRecord_ManualCorrectionBypassesThreshold(t *testing.T) {
	ls, _ := newTestLearningStore(0)
	rooms := []DetectedRoom{{ID: "room-1", Name: "Office F-1", X: 100, Y: 100, Width: 200, Height: 150}}

	if err := ls.Record("floor-1", rooms, 0.5, true); err != nil {
		t.Fatalf("record: %v", err)
	}
	got := ls.Samples("floor-1")
	if len(got) != 1 {
		t.Fatalf("samples = %d, want 1 for manual correction", len(got))
	}
	if got[0].Confidence != 0.5 || got[0].FloorID != "floor-1" {
		t.Errorf("sample = %+v", got[0])
	}
}

func TestRecord_CapEvictsLowestScore(t *testing.T) {
	ls, _ := newTestLearningStore(3)
	rooms := []DetectedRoom{{ID: "room-1", Name: "Office F-1", X: 100, Y: 100, Width: 200, Height: 150}}

	for _, conf := range []float64{0.76, 0.80, 0.90} {
		if err := ls.Record("floor-1", rooms, conf, false); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := ls.Record("floor-1", rooms, 0.85, false); err != nil {
		t.Fatalf("record: %v", err)
	}

	got := ls.Samples("floor-1")
	if len(got) != 3 {
		t.Fatalf("samples = %d, want cap of 3", len(got))
	}
	for _, s := range got {
		if s.Confidence == 0.76 {
			t.Error("lowest-scoring sample survived eviction")
		}
	}
}

func TestRecord_SamplesRoundTrip(t *testing.T) {
	ls, _ := newTestLearningStore(0)
	rooms := []DetectedRoom{
		{ID: "room-1", Name: "Lab West", Type: RoomTypeLab, X: 50, Y: 80, Width: 400, Height: 300, Confidence: 0.91},
		{ID: "room-2", Name: "Office F-2", Type: RoomTypeOffice, X: 600, Y: 80, Width: 180, Height: 150, Confidence: 0.84},
	}

	if err := ls.Record("floor-1", rooms, 0.88, false); err != nil {
		t.Fatalf("record: %v", err)
	}
	got := ls.Samples("floor-1")
	if len(got) != 1 {
		t.Fatalf("samples = %d, want 1", len(got))
	}
	for i, r := range got[0].Rooms {
		if r != rooms[i] {
			t.Errorf("room %d = %+v, want %+v", i, r, rooms[i])
		}
	}
}

func TestLoadSamples_CorruptDataDegrades(t *testing.T) {
	ls, ms := newTestLearningStore(0)
	if err := ms.Set(learningKeyPrefix+"floor-1", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if got := ls.Samples("floor-1"); got != nil {
		t.Errorf("samples = %v, want nil for corrupt data", got)
	}
}

func TestClear(t *testing.T) {
	ls, _ := newTestLearningStore(0)
	rooms := []DetectedRoom{{ID: "room-1", Name: "Office F-1", X: 100, Y: 100, Width: 200, Height: 150}}
	if err := ls.Record("floor-1", rooms, 0.9, false); err != nil {
		t.Fatal(err)
	}
	if err := ls.Clear("floor-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := ls.Samples("floor-1"); len(got) != 0 {
		t.Errorf("samples = %d after clear, want 0", len(got))
	}
}

// ---------------------------------------------------------------------------
// Eviction scoring
// ---------------------------------------------------------------------------

func TestEvictLowest_RecencyOutweighsConfidence(t *testing.T) {
	samples := []LearningSample{
		{Timestamp: 1000, Confidence: 0.99},
		{Timestamp: 5000, Confidence: 0.76},
		{Timestamp: 9000, Confidence: 0.80},
	}
	// Oldest sample scores 0.6*0 + 0.4*0.99 = 0.396, below the
	// mid-span low-confidence sample's 0.3 + 0.304.
	kept := evictLowest(samples)
	if len(kept) != 2 {
		t.Fatalf("kept = %d, want 2", len(kept))
	}
	for _, s := range kept {
		if s.Timestamp == 1000 {
			t.Error("oldest sample survived despite lowest combined score")
		}
	}
}

// ---------------------------------------------------------------------------
// Consistency
// ---------------------------------------------------------------------------

func TestConsistency_SingleObservationAbsent(t *testing.T) {
	ls, ms := newTestLearningStore(0)
	seedSamples(t, ms, "floor-1", []LearningSample{
		{Timestamp: 1000, FloorID: "floor-1", Rooms: []DetectedRoom{
			{Name: "Lab West", X: 0, Y: 0, Width: 400, Height: 300},
		}, Confidence: 0.9},
	})

	got := ls.Consistency("floor-1")
	if _, ok := got["Lab West"]; ok {
		t.Error("single observation produced a consistency score")
	}
}

func TestConsistency_StableAndJittered(t *testing.T) {
	ls, ms := newTestLearningStore(0)
	seedSamples(t, ms, "floor-1", []LearningSample{
		{Timestamp: 1000, FloorID: "floor-1", Rooms: []DetectedRoom{
			{Name: "Lab West", X: 0, Y: 0, Width: 400, Height: 300},
			{Name: "Office A", X: 100, Y: 100, Width: 200, Height: 150},
		}, Confidence: 0.9},
		{Timestamp: 2000, FloorID: "floor-1", Rooms: []DetectedRoom{
			{Name: "Lab West", X: 0, Y: 0, Width: 400, Height: 300},
			{Name: "Office A", X: 130, Y: 115, Width: 220, Height: 165},
		}, Confidence: 0.85},
	})

	got := ls.Consistency("floor-1")
	if got["Lab West"] != 1.0 {
		t.Errorf("identical positions consistency = %v, want 1.0", got["Lab West"])
	}
	office := got["Office A"]
	if office <= 0 || office >= 1 {
		t.Errorf("jittered consistency = %v, want strictly inside (0, 1)", office)
	}
}

func TestRelStdDev(t *testing.T) {
	if got := relStdDev([]float64{100, 100, 100}); got != 0 {
		t.Errorf("constant series = %v, want 0", got)
	}
	got := relStdDev([]float64{90, 110})
	if math.Abs(got-0.1) > 1e-9 {
		t.Errorf("relStdDev = %v, want 0.1", got)
	}
}

// ---------------------------------------------------------------------------
// Enhance
// ---------------------------------------------------------------------------

func TestEnhance_NoSamplesPassThrough(t *testing.T) {
	ls, _ := newTestLearningStore(0)
	rooms := []DetectedRoom{{ID: "room-1", Name: "Office F-1", X: 100, Y: 100, Width: 200, Height: 150, Confidence: 0.8}}
	got := ls.Enhance(rooms, "floor-1")
	if len(got) != 1 || got[0] != rooms[0] {
		t.Errorf("enhance without history changed the detection: %+v", got)
	}
}

func TestEnhance_CorrectionAdoptsLearnedIdentity(t *testing.T) {
	ls, ms := newTestLearningStore(0)
	learned := DetectedRoom{ID: "room-7", Name: "Lab West", Type: RoomTypeLab, X: 100, Y: 100, Width: 400, Height: 300, Confidence: 0.9}
	seedSamples(t, ms, "floor-1", []LearningSample{
		{Timestamp: 1000, FloorID: "floor-1", Rooms: []DetectedRoom{learned}, Confidence: 0.9},
		{Timestamp: 2000, FloorID: "floor-1", Rooms: []DetectedRoom{learned}, Confidence: 0.88},
	})

	// Same footprint, freshly detected with a generated identity.
	fresh := []DetectedRoom{{ID: "room-1", Name: "Room F-1", Type: RoomTypeClassroom, X: 100, Y: 100, Width: 400, Height: 300, Confidence: 0.6}}
	got := ls.Enhance(fresh, "floor-1")
	if len(got) != 1 {
		t.Fatalf("rooms = %d, want 1", len(got))
	}
	r := got[0]
	if r.Name != "Lab West" || r.Type != RoomTypeLab || r.ID != "room-7" {
		t.Errorf("identity not adopted: %+v", r)
	}
	// Perfect match with perfect consistency boosts by the full 0.3.
	if math.Abs(r.Confidence-0.9) > 1e-9 {
		t.Errorf("confidence = %v, want 0.9", r.Confidence)
	}
}

func TestEnhance_InjectsConsistentMissingRoom(t *testing.T) {
	ls, ms := newTestLearningStore(0)
	server := DetectedRoom{ID: "room-3", Name: "Server Room", Type: RoomTypeStorage, X: 700, Y: 600, Width: 150, Height: 120, Confidence: 0.95}
	seedSamples(t, ms, "floor-1", []LearningSample{
		{Timestamp: 1000, FloorID: "floor-1", Rooms: []DetectedRoom{server}, Confidence: 0.9},
		{Timestamp: 2000, FloorID: "floor-1", Rooms: []DetectedRoom{server}, Confidence: 0.9},
	})

	fresh := []DetectedRoom{{ID: "room-1", Name: "Office F-1", Type: RoomTypeOffice, X: 50, Y: 50, Width: 200, Height: 150, Confidence: 0.85}}
	got := ls.Enhance(fresh, "floor-1")
	if len(got) != 2 {
		t.Fatalf("rooms = %d, want the fresh room plus the injection", len(got))
	}

	var injected *DetectedRoom
	for i := range got {
		if got[i].Name == "Server Room" {
			injected = &got[i]
		}
	}
	if injected == nil {
		t.Fatal("consistent learned room was not injected")
	}
	// Injections never out-rank fresh observations.
	if injected.Confidence > 0.85 {
		t.Errorf("injected confidence = %v, want <= 0.85", injected.Confidence)
	}
	if injected.ID != "room-3" {
		t.Errorf("injected id = %q, want the learned room's room-3", injected.ID)
	}

	for i := 0; i < len(got); i++ {
		for j := i + 1; j < len(got); j++ {
			if ratio := overlapRatio(got[i], got[j]); ratio > 0.35 {
				t.Errorf("rooms %d and %d overlap %.2f after injection", i, j, ratio)
			}
		}
	}
}

func TestEnhance_InjectionSkipsOverlap(t *testing.T) {
	ls, ms := newTestLearningStore(0)
	learned := DetectedRoom{ID: "room-3", Name: "Server Room", Type: RoomTypeStorage, X: 50, Y: 50, Width: 150, Height: 120, Confidence: 0.95}
	seedSamples(t, ms, "floor-1", []LearningSample{
		{Timestamp: 1000, FloorID: "floor-1", Rooms: []DetectedRoom{learned}, Confidence: 0.9},
		{Timestamp: 2000, FloorID: "floor-1", Rooms: []DetectedRoom{learned}, Confidence: 0.9},
	})

	// A confident fresh room covering the learned footprint but shaped and
	// placed differently enough to miss the match threshold.
	fresh := []DetectedRoom{{ID: "room-1", Name: "Lab F-1", Type: RoomTypeLab, X: 0, Y: 0, Width: 900, Height: 700, Confidence: 0.9}}
	got := ls.Enhance(fresh, "floor-1")
	for _, r := range got {
		if r.Name == "Server Room" {
			t.Error("injection violated the overlap bound")
		}
	}
}

func TestEnhance_InjectionRemintsTakenID(t *testing.T) {
	ls, ms := newTestLearningStore(0)
	// The learned sample carries a per-run id that a fresh detection can
	// legitimately hold too.
	server := DetectedRoom{ID: "room-1", Name: "Server Room", Type: RoomTypeStorage, X: 700, Y: 600, Width: 150, Height: 120, Confidence: 0.95}
	seedSamples(t, ms, "floor-1", []LearningSample{
		{Timestamp: 1000, FloorID: "floor-1", Rooms: []DetectedRoom{server}, Confidence: 0.9},
		{Timestamp: 2000, FloorID: "floor-1", Rooms: []DetectedRoom{server}, Confidence: 0.9},
	})

	fresh := []DetectedRoom{{ID: "room-1", Name: "Office F-1", Type: RoomTypeOffice, X: 50, Y: 50, Width: 200, Height: 150, Confidence: 0.85}}
	got := ls.Enhance(fresh, "floor-1")
	if len(got) != 2 {
		t.Fatalf("rooms = %d, want the fresh room plus the injection", len(got))
	}

	seen := map[string]bool{}
	for _, r := range got {
		if seen[r.ID] {
			t.Errorf("duplicate room id %q after injection", r.ID)
		}
		seen[r.ID] = true
	}
	for _, r := range got {
		if r.Name == "Server Room" && r.ID == "room-1" {
			t.Error("injected room kept an id already held by a fresh room")
		}
	}
}

func TestEnhance_CorrectionConsumesLearnedRoomOnce(t *testing.T) {
	ls, ms := newTestLearningStore(0)
	lab := DetectedRoom{ID: "room-9", Name: "Lab West", Type: RoomTypeLab, X: 100, Y: 100, Width: 400, Height: 300, Confidence: 0.9}
	seedSamples(t, ms, "floor-1", []LearningSample{
		{Timestamp: 1000, FloorID: "floor-1", Rooms: []DetectedRoom{lab}, Confidence: 0.9},
		{Timestamp: 2000, FloorID: "floor-1", Rooms: []DetectedRoom{lab}, Confidence: 0.9},
	})

	// Two fresh rooms both near the learned footprint, as a false split
	// produces. Only one may adopt the learned identity.
	fresh := []DetectedRoom{
		{ID: "room-1", Name: "Office F-1", Type: RoomTypeOffice, X: 100, Y: 100, Width: 400, Height: 300, Confidence: 0.8},
		{ID: "room-2", Name: "Office F-2", Type: RoomTypeOffice, X: 150, Y: 120, Width: 380, Height: 280, Confidence: 0.8},
	}
	got := ls.Enhance(fresh, "floor-1")

	adopted := 0
	for _, r := range got {
		if r.Name == "Lab West" {
			adopted++
		}
	}
	if adopted != 1 {
		t.Fatalf("rooms named Lab West = %d, want exactly 1", adopted)
	}
	seen := map[string]bool{}
	for _, r := range got {
		if seen[r.ID] {
			t.Errorf("duplicate room id %q after correction", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestEnhance_SuppressesFalseSplit(t *testing.T) {
	ls, ms := newTestLearningStore(0)
	lab := DetectedRoom{ID: "room-2", Name: "Lab West", Type: RoomTypeLab, X: 0, Y: 0, Width: 400, Height: 300, Confidence: 0.9}
	seedSamples(t, ms, "floor-1", []LearningSample{
		{Timestamp: 1000, FloorID: "floor-1", Rooms: []DetectedRoom{lab}, Confidence: 0.9},
		{Timestamp: 2000, FloorID: "floor-1", Rooms: []DetectedRoom{lab}, Confidence: 0.9},
	})

	genuine := DetectedRoom{ID: "room-1", Name: "Office F-1", Type: RoomTypeOffice, X: 600, Y: 400, Width: 200, Height: 150, Confidence: 0.8}
	// A small low-confidence fragment inside the learned lab's footprint.
	ghost := DetectedRoom{ID: "room-2", Name: "Storage F-2", Type: RoomTypeStorage, X: 10, Y: 10, Width: 80, Height: 60, Confidence: 0.6}

	got := ls.Enhance([]DetectedRoom{genuine, ghost}, "floor-1")
	for _, r := range got {
		if r.Name == "Storage F-2" {
			t.Error("false split inside a learned room was not suppressed")
		}
	}
	found := false
	for _, r := range got {
		if r.Name == "Office F-1" {
			found = true
		}
	}
	if !found {
		t.Error("genuine confident room was suppressed")
	}
}

func TestMatchScore(t *testing.T) {
	learned := DetectedRoom{X: 100, Y: 100, Width: 400, Height: 300}

	if got := matchScore(learned, learned); got != 1.0 {
		t.Errorf("identical rooms = %v, want 1.0", got)
	}

	far := DetectedRoom{X: 2000, Y: 2000, Width: 400, Height: 300}
	if got := matchScore(far, learned); got > matchThreshold {
		t.Errorf("distant room = %v, want below %v", got, matchThreshold)
	}

	// Score decays with distance.
	near := DetectedRoom{X: 120, Y: 110, Width: 400, Height: 300}
	nearScore := matchScore(near, learned)
	farther := DetectedRoom{X: 250, Y: 200, Width: 400, Height: 300}
	if fartherScore := matchScore(farther, learned); fartherScore >= nearScore {
		t.Errorf("score did not decay with distance: %v >= %v", fartherScore, nearScore)
	}
}
