package floorplan

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"
)

const (
	// Weight of recency vs confidence in the eviction score.
	evictRecencyWeight = 0.6

	// Enhance phase thresholds.
	matchThreshold      = 0.5
	injectConsistency   = 0.7
	injectConfidenceCap = 0.85
	suppressConfidence  = 0.7
	suppressOverlap     = 0.7
	correctionBoostMax  = 0.3

	learningKeyPrefix = "learning/"
)

// LearningStore persists accepted detections per floor and uses the
// positional and size consistency of named rooms across samples to
// correct, add, or remove regions in new detections.
//
// The store is shared across detections. Reads and writes for the same
// floor are mutually exclusive; different floors proceed in parallel.
type LearningStore struct {
	store           Store
	cap             int
	acceptThreshold float64

	mu     sync.Mutex
	floors map[string]*sync.Mutex
}

// NewLearningStore creates a learning store over the given persistence
// boundary.
func NewLearningStore(store Store, cfg DetectionConfig) *LearningStore {
	return &LearningStore{
		store:           store,
		cap:             cfg.SampleCap,
		acceptThreshold: cfg.AcceptThreshold,
		floors:          make(map[string]*sync.Mutex),
	}
}

func (ls *LearningStore) floorLock(floorID string) *sync.Mutex {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	m, ok := ls.floors[floorID]
	if !ok {
		m = &sync.Mutex{}
		ls.floors[floorID] = m
	}
	return m
}

// Record appends an accepted detection as a learning sample. Samples
// below the acceptance threshold are dropped unless the caller flags the
// detection as manually corrected. When the per-floor cap is reached the
// lowest-scoring sample (recency and confidence weighted) is evicted
// before the insert. The store is flushed before Record returns.
func (ls *LearningStore) Record(floorID string, rooms []DetectedRoom, confidence float64, manuallyCorrected bool) error {
	if !manuallyCorrected && confidence < ls.acceptThreshold {
		log.Printf("[LEARN] %s: sample below threshold (%.2f < %.2f), not recorded", floorID, confidence, ls.acceptThreshold)
		return nil
	}

	lock := ls.floorLock(floorID)
	lock.Lock()
	defer lock.Unlock()

	samples := ls.loadSamples(floorID)

	for len(samples) >= ls.cap {
		samples = evictLowest(samples)
	}

	snapshot := make([]DetectedRoom, len(rooms))
	copy(snapshot, rooms)
	samples = append(samples, LearningSample{
		Timestamp:  time.Now().UnixMilli(),
		FloorID:    floorID,
		Rooms:      snapshot,
		Confidence: clamp(confidence, 0, 1),
	})

	if err := ls.saveSamples(floorID, samples); err != nil {
		return fmt.Errorf("recording learning sample for %s: %w", floorID, err)
	}
	log.Printf("[LEARN] %s: recorded sample (%d rooms, confidence %.2f, %d/%d slots)",
		floorID, len(rooms), confidence, len(samples), ls.cap)
	return nil
}

// Samples returns the persisted samples for a floor.
func (ls *LearningStore) Samples(floorID string) []LearningSample {
	lock := ls.floorLock(floorID)
	lock.Lock()
	defer lock.Unlock()
	return ls.loadSamples(floorID)
}

// Clear removes all samples for a floor.
func (ls *LearningStore) Clear(floorID string) error {
	lock := ls.floorLock(floorID)
	lock.Lock()
	defer lock.Unlock()
	return ls.store.Delete(learningKeyPrefix + floorID)
}

// Consistency computes a [0,1] stability score per room name seen in at
// least two of the floor's samples. Names seen once are absent from the
// map: one observation is unknown stability, not maximal.
func (ls *LearningStore) Consistency(floorID string) map[string]float64 {
	lock := ls.floorLock(floorID)
	lock.Lock()
	defer lock.Unlock()
	return consistencyOf(ls.loadSamples(floorID))
}

// Enhance applies the floor's learned patterns to a fresh detection in
// three phases: correction, injection, suppression. Correction runs
// before suppression so true matches are never flagged as conflicting.
func (ls *LearningStore) Enhance(rooms []DetectedRoom, floorID string) []DetectedRoom {
	lock := ls.floorLock(floorID)
	lock.Lock()
	defer lock.Unlock()

	samples := ls.loadSamples(floorID)
	if len(samples) == 0 {
		return rooms
	}

	latest := samples[0]
	for _, s := range samples[1:] {
		if s.Timestamp > latest.Timestamp {
			latest = s
		}
	}
	consistency := consistencyOf(samples)

	out := make([]DetectedRoom, len(rooms))
	copy(out, rooms)

	// Phase 1: correction. Adopt the learned identity of the best match
	// and boost confidence in proportion to match quality and the name's
	// established consistency. Each learned room corrects at most one
	// fresh room, so a false split never yields two rooms with one
	// identity.
	matchedNames := make(map[string]bool)
	consumed := make(map[int]bool)
	for i := range out {
		idx, score := bestMatchIndex(out[i], latest.Rooms, consumed)
		if idx < 0 || score <= matchThreshold {
			continue
		}
		consumed[idx] = true
		best := latest.Rooms[idx]
		out[i].Name = best.Name
		out[i].Type = best.Type
		out[i].ID = best.ID
		matchedNames[best.Name] = true

		quality := (score - matchThreshold) / (1 - matchThreshold)
		factor, known := consistency[best.Name]
		if !known {
			factor = 0.5
		}
		out[i].Confidence = clamp(out[i].Confidence+correctionBoostMax*quality*factor, 0, 1)
		log.Printf("[LEARN] %s: corrected room to %q (match %.2f)", floorID, best.Name, score)
	}

	// Phase 2: injection. High-consistency learned rooms with no spatial
	// match are added, never more confident than a fresh observation and
	// never violating the mutual-overlap invariant.
	for _, learned := range latest.Rooms {
		if consistency[learned.Name] < injectConsistency || matchedNames[learned.Name] {
			continue
		}
		if _, score := bestMatch(learned, out); score > matchThreshold {
			continue
		}
		overlaps := false
		for _, existing := range out {
			if overlapRatio(learned, existing) > 0.35 {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		injected := learned
		injected.Confidence = minF(learned.Confidence, injectConfidenceCap)
		// IDs are unique within one result; a fresh room may already hold
		// the learned sample's per-run ID.
		if idInUse(out, injected.ID) {
			injected.ID = nextFreeID(out)
		}
		out = append(out, injected)
		log.Printf("[LEARN] %s: injected %q from history (consistency %.2f)", floorID, learned.Name, consistency[learned.Name])
	}

	// Phase 3: suppression. A low-confidence region overlapping a
	// high-consistency pattern it does not match is more likely a false
	// split of a known room than a genuine new one.
	kept := out[:0]
	for _, room := range out {
		if ls.suppress(room, latest.Rooms, consistency) {
			log.Printf("[LEARN] %s: suppressed low-confidence room %q", floorID, room.Name)
			continue
		}
		kept = append(kept, room)
	}

	return kept
}

func (ls *LearningStore) suppress(room DetectedRoom, learned []DetectedRoom, consistency map[string]float64) bool {
	if room.Confidence > suppressConfidence {
		return false
	}
	for _, pattern := range learned {
		if consistency[pattern.Name] < injectConsistency {
			continue
		}
		if overlapRatio(room, pattern) <= suppressOverlap {
			continue
		}
		if matchScore(room, pattern) < matchThreshold {
			return true
		}
	}
	return false
}

// loadSamples reads the floor's sample list. Corrupt or missing persisted
// data degrades to "no learning data" rather than failing detection.
func (ls *LearningStore) loadSamples(floorID string) []LearningSample {
	data, ok, err := ls.store.Get(learningKeyPrefix + floorID)
	if err != nil {
		log.Printf("[LEARN] %s: store read failed: %v (proceeding without learning data)", floorID, err)
		return nil
	}
	if !ok {
		return nil
	}
	var samples []LearningSample
	if err := json.Unmarshal(data, &samples); err != nil {
		log.Printf("[LEARN] %s: corrupt learning data: %v (proceeding without learning data)", floorID, err)
		return nil
	}
	return samples
}

func (ls *LearningStore) saveSamples(floorID string, samples []LearningSample) error {
	data, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("marshaling samples: %w", err)
	}
	return ls.store.Set(learningKeyPrefix+floorID, data)
}

// evictLowest drops the sample with the lowest recency+confidence score.
func evictLowest(samples []LearningSample) []LearningSample {
	if len(samples) == 0 {
		return samples
	}
	scores := evictionScores(samples)
	lowest := 0
	for i, s := range scores {
		if s < scores[lowest] {
			lowest = i
		}
	}
	return append(samples[:lowest], samples[lowest+1:]...)
}

// evictionScores ranks samples by recency (normalized over the set's
// timestamp span) weighted against confidence.
func evictionScores(samples []LearningSample) []float64 {
	minTS, maxTS := samples[0].Timestamp, samples[0].Timestamp
	for _, s := range samples[1:] {
		if s.Timestamp < minTS {
			minTS = s.Timestamp
		}
		if s.Timestamp > maxTS {
			maxTS = s.Timestamp
		}
	}
	span := float64(maxTS - minTS)

	scores := make([]float64, len(samples))
	for i, s := range samples {
		recency := 1.0
		if span > 0 {
			recency = float64(s.Timestamp-minTS) / span
		}
		scores[i] = evictRecencyWeight*recency + (1-evictRecencyWeight)*s.Confidence
	}
	return scores
}

// consistencyOf computes per-name positional/size consistency across
// samples: the standard deviation of x, y, width, and height normalized
// by their means, combined as 1 − min(1, 0.6·pos + 0.4·size).
func consistencyOf(samples []LearningSample) map[string]float64 {
	type series struct {
		xs, ys, ws, hs []float64
	}
	byName := make(map[string]*series)
	for _, sample := range samples {
		seen := make(map[string]bool)
		for _, room := range sample.Rooms {
			if room.Name == "" || seen[room.Name] {
				continue
			}
			seen[room.Name] = true
			s, ok := byName[room.Name]
			if !ok {
				s = &series{}
				byName[room.Name] = s
			}
			s.xs = append(s.xs, room.X)
			s.ys = append(s.ys, room.Y)
			s.ws = append(s.ws, room.Width)
			s.hs = append(s.hs, room.Height)
		}
	}

	out := make(map[string]float64)
	for name, s := range byName {
		if len(s.xs) < 2 {
			continue
		}
		posRel := (relStdDev(s.xs) + relStdDev(s.ys)) / 2
		sizeRel := (relStdDev(s.ws) + relStdDev(s.hs)) / 2
		out[name] = clamp(1.0-math.Min(1.0, 0.6*posRel+0.4*sizeRel), 0, 1)
	}
	return out
}

// relStdDev returns the standard deviation normalized by the mean.
func relStdDev(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if math.Abs(mean) < 1e-9 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance) / math.Abs(mean)
}

// matchScore blends center proximity (0.7) with size similarity (0.3).
// Deltas are normalized by the learned room's dimensions.
func matchScore(candidate, learned DetectedRoom) float64 {
	normW := maxF(learned.Width, 1)
	normH := maxF(learned.Height, 1)
	dx := (candidate.X + candidate.Width/2 - learned.X - learned.Width/2) / normW
	dy := (candidate.Y + candidate.Height/2 - learned.Y - learned.Height/2) / normH
	proximity := maxF(0, 1-math.Hypot(dx, dy))

	sizeSim := (ratioSim(candidate.Width, learned.Width) + ratioSim(candidate.Height, learned.Height)) / 2
	return 0.7*proximity + 0.3*sizeSim
}

func ratioSim(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > b {
		return b / a
	}
	return a / b
}

// bestMatch returns the closest room in candidates and its score.
func bestMatch(room DetectedRoom, candidates []DetectedRoom) (DetectedRoom, float64) {
	var best DetectedRoom
	bestScore := -1.0
	for _, c := range candidates {
		if s := matchScore(room, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, bestScore
}

// bestMatchIndex returns the closest unconsumed candidate's index and
// score, or -1 when every candidate is consumed.
func bestMatchIndex(room DetectedRoom, candidates []DetectedRoom, consumed map[int]bool) (int, float64) {
	best := -1
	bestScore := -1.0
	for i, c := range candidates {
		if consumed[i] {
			continue
		}
		if s := matchScore(room, c); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore
}

func idInUse(rooms []DetectedRoom, id string) bool {
	for _, r := range rooms {
		if r.ID == id {
			return true
		}
	}
	return false
}

// nextFreeID returns the first room-N identifier not present in rooms.
func nextFreeID(rooms []DetectedRoom) string {
	for n := len(rooms) + 1; ; n++ {
		id := fmt.Sprintf("room-%d", n)
		if !idInUse(rooms, id) {
			return id
		}
	}
}
