package floorplan

// roomDefaults carries the audit defaults filled in per room type when a
// DetectedRoom is converted for the CRUD layer.
type roomDefaults struct {
	reflectance  float64
	targetLux    float64
	fixtureCount int
}

var defaultsByType = map[RoomType]roomDefaults{
	RoomTypeOffice:    {reflectance: 0.50, targetLux: 500, fixtureCount: 4},
	RoomTypeClassroom: {reflectance: 0.50, targetLux: 300, fixtureCount: 6},
	RoomTypeLab:       {reflectance: 0.45, targetLux: 750, fixtureCount: 8},
	RoomTypeHallway:   {reflectance: 0.40, targetLux: 100, fixtureCount: 2},
	RoomTypeStorage:   {reflectance: 0.35, targetLux: 150, fixtureCount: 1},
	RoomTypeStairs:    {reflectance: 0.40, targetLux: 150, fixtureCount: 2},
	RoomTypeRestroom:  {reflectance: 0.60, targetLux: 200, fixtureCount: 2},
	RoomTypeLobby:     {reflectance: 0.55, targetLux: 200, fixtureCount: 4},
}

// ToRoomDetail converts a DetectedRoom to the record shape the audit
// application persists, filling reflectance, lux, and fixture defaults
// from the room type.
func ToRoomDetail(room DetectedRoom) RoomDetail {
	d, ok := defaultsByType[room.Type]
	if !ok {
		d = defaultsByType[RoomTypeOffice]
	}
	return RoomDetail{
		RoomID:             room.ID,
		RoomName:           room.Name,
		RoomType:           string(room.Type),
		PositionX:          room.X,
		PositionY:          room.Y,
		Width:              room.Width,
		Height:             room.Height,
		SurfaceReflectance: d.reflectance,
		TargetLux:          d.targetLux,
		FixtureCount:       d.fixtureCount,
		DetectionScore:     clamp(room.Confidence, 0, 1),
	}
}

// FromRoomDetail converts an edited RoomDetail back into a DetectedRoom,
// preserving the identity and geometry the user settled on.
func FromRoomDetail(detail RoomDetail) DetectedRoom {
	return DetectedRoom{
		ID:         detail.RoomID,
		Name:       detail.RoomName,
		Type:       RoomType(detail.RoomType),
		X:          detail.PositionX,
		Y:          detail.PositionY,
		Width:      detail.Width,
		Height:     detail.Height,
		Confidence: clamp(detail.DetectionScore, 0, 1),
	}
}

// ToRoomDetails converts a whole detection result.
func ToRoomDetails(result DetectionResult) []RoomDetail {
	details := make([]RoomDetail, len(result.Rooms))
	for i, room := range result.Rooms {
		details[i] = ToRoomDetail(room)
	}
	return details
}

// FromRoomDetails converts edited records back into rooms, typically
// before recording a manually corrected sample.
func FromRoomDetails(details []RoomDetail) []DetectedRoom {
	rooms := make([]DetectedRoom, len(details))
	for i, d := range details {
		rooms[i] = FromRoomDetail(d)
	}
	return rooms
}
