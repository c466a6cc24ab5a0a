package realtime

import (
	"encoding/json"
	"time"
)

// Inbound message types
const (
	MsgAuthenticate        = "authenticate"
	MsgSubscribeRoom       = "subscribe:room"
	MsgSubscribeBuilding   = "subscribe:building"
	MsgUnsubscribeRoom     = "unsubscribe:room"
	MsgUnsubscribeBuilding = "unsubscribe:building"
)

// Outbound message types
const (
	MsgAuthenticated = "authenticated"
	MsgSubscribed    = "subscribed"
	MsgUnsubscribed  = "unsubscribed"
	MsgError         = "error"

	EventRoomUpdated             = "room:updated"
	EventRoomAvailabilityChanged = "room:availability_changed"
	EventBookingUpdated          = "booking:updated"
)

// ClientMessage is a frame sent by the client.
type ClientMessage struct {
	Type       string `json:"type"`
	Token      string `json:"token,omitempty"`
	RoomID     int64  `json:"roomId,omitempty"`
	BuildingID int64  `json:"buildingId,omitempty"`
}

// ServerMessage is a frame sent to the client: either a reply to a
// ClientMessage or an event push.
type ServerMessage struct {
	Type       string    `json:"type"`
	Topic      string    `json:"topic,omitempty"`
	Error      string    `json:"error,omitempty"`
	UserID     int64     `json:"userId,omitempty"`
	RoomID     int64     `json:"roomId,omitempty"`
	BookingID  int64     `json:"bookingId,omitempty"`
	BuildingID int64     `json:"buildingId,omitempty"`
	Data       any       `json:"data,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
}

func encode(m ServerMessage) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		b, _ = json.Marshal(ServerMessage{Type: MsgError, Error: "encode failed"})
	}
	return b
}
