package domain

import "time"

// LedgerEntry is one (room, day) row of the availability ledger. It is derived
// from bookings and is rebuilt from them on demand.
type LedgerEntry struct {
	RoomID         int64     `json:"room_id"`
	Date           time.Time `json:"date"`
	AvailableSlots int32     `json:"available_slots"`
	BookedSlots    int32     `json:"booked_slots"`
}

// Availability is the read model returned for a room over a date window.
type Availability struct {
	RoomID  int64         `json:"room_id"`
	From    time.Time     `json:"from"`
	To      time.Time     `json:"to"`
	Entries []LedgerEntry `json:"entries"`
}
