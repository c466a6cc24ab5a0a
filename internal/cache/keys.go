package cache

import (
	"fmt"
	"time"

	"roomsync-backend/internal/domain"
)

// Key layout shared with the reporting layer.
func RoomKey(roomID int64) string       { return fmt.Sprintf("room:%d", roomID) }
func BookingKey(bookingID int64) string { return fmt.Sprintf("booking:%d", bookingID) }
func StatsKey(buildingID int64) string  { return fmt.Sprintf("stats:%d", buildingID) }

func AvailabilityKey(roomID int64, from, to time.Time) string {
	return fmt.Sprintf("availability:%d:%s_%s", roomID, from.Format(domain.DateLayout), to.Format(domain.DateLayout))
}

// AvailabilityPattern matches every cached date range of a room.
func AvailabilityPattern(roomID int64) string {
	return fmt.Sprintf("availability:%d:*", roomID)
}

// Generation keys fence read-through fills against concurrent invalidation:
// a value is only served if it was loaded under the current generation.
func RoomGenerationKey(roomID int64) string { return fmt.Sprintf("gen:room:%d", roomID) }
func BuildingGenerationKey(buildingID int64) string {
	return fmt.Sprintf("gen:building:%d", buildingID)
}

func BookingGenerationKey(bookingID int64) string {
	return fmt.Sprintf("gen:booking:%d", bookingID)
}
