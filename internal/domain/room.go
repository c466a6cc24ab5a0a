package domain

import "time"

type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusOccupied    RoomStatus = "occupied"
	RoomStatusMaintenance RoomStatus = "maintenance"
	RoomStatusReserved    RoomStatus = "reserved"
	RoomStatusOutOfOrder  RoomStatus = "out_of_order"
)

// Derived reports whether the status is owned by booking state rather than set by staff.
func (s RoomStatus) Derived() bool {
	return s == RoomStatusAvailable || s == RoomStatusOccupied
}

type Room struct {
	ID         int64      `json:"id"`
	BuildingID int64      `json:"building_id"`
	Number     string     `json:"number"`
	Capacity   int32      `json:"capacity"`
	Status     RoomStatus `json:"status"`
	CreatedOn  time.Time  `json:"created_on"`
	UpdatedOn  time.Time  `json:"updated_on"`
}

// BuildingStats is the aggregate read model cached under stats:{building_id}.
type BuildingStats struct {
	BuildingID     int64                `json:"building_id"`
	TotalRooms     int32                `json:"total_rooms"`
	StatusCount    map[RoomStatus]int32 `json:"status_count"`
	ActiveBookings int32                `json:"active_bookings"`
	PendingCount   int32                `json:"pending_bookings"`
}
