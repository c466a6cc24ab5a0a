package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type ChangeAction string

const (
	ActionBookingCreated ChangeAction = "booking_created"
	ActionBookingUpdated ChangeAction = "booking_updated"
	ActionBookingDeleted ChangeAction = "booking_deleted"
	// ActionRoomStatusChanged is raised by the status refresh job when the day rolls over.
	ActionRoomStatusChanged ChangeAction = "room_status_changed"
)

func (a ChangeAction) Valid() bool {
	switch a {
	case ActionBookingCreated, ActionBookingUpdated, ActionBookingDeleted, ActionRoomStatusChanged:
		return true
	}
	return false
}

// ChangeEvent is emitted once per committed booking mutation. It is never persisted.
type ChangeEvent struct {
	EventID    string        `json:"event_id,omitempty"`
	RoomID     int64         `json:"room_id"`
	BuildingID int64         `json:"building_id,omitempty"`
	TenantID   int64         `json:"tenant_id,omitempty"`
	Action     ChangeAction  `json:"action"`
	BookingID  int64         `json:"booking_id"`
	OldStatus  BookingStatus `json:"old_status,omitempty"`
	NewStatus  BookingStatus `json:"new_status,omitempty"`
	RoomStatus RoomStatus    `json:"room_status,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// TouchesActive reports whether the change moved a booking into or out of active,
// which is when the ledger and the room status can change.
func (e ChangeEvent) TouchesActive() bool {
	return e.OldStatus == BookingStatusActive || e.NewStatus == BookingStatusActive
}

// DedupKey identifies redeliveries of the same committed change.
func (e ChangeEvent) DedupKey() string {
	if e.EventID != "" {
		return e.EventID
	}
	return fmt.Sprintf("%d:%d:%s:%s:%s", e.RoomID, e.BookingID, e.Action, e.OldStatus, e.NewStatus)
}

// Encode renders the event as the notification payload.
func (e ChangeEvent) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeChangeEvent parses a notification payload and checks the required fields.
func DecodeChangeEvent(payload string) (ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	if e.RoomID <= 0 {
		return ChangeEvent{}, fmt.Errorf("decode change event: missing room_id")
	}
	if !e.Action.Valid() {
		return ChangeEvent{}, fmt.Errorf("decode change event: unknown action %q", e.Action)
	}
	if e.Action != ActionRoomStatusChanged && e.BookingID <= 0 {
		return ChangeEvent{}, fmt.Errorf("decode change event: missing booking_id")
	}
	return e, nil
}
