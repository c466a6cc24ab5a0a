package realtime

import (
	"context"
	"errors"

	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/logger"
)

// Handle fans a committed change event out to the room topic and the
// building topic. The booking push also reaches the tenant's personal topic
// when the tenant may see the building. It never blocks on a client.
func (h *Hub) Handle(ctx context.Context, ev domain.ChangeEvent) error {
	buildingID := ev.BuildingID
	if buildingID == 0 {
		if b, err := h.access.RoomBuilding(ctx, ev.RoomID); err == nil {
			buildingID = b
		} else {
			logger.Warn("broadcast without building topic", "room_id", ev.RoomID, "error", err)
		}
	}

	topics := []domain.Topic{domain.RoomTopic(ev.RoomID)}
	if buildingID > 0 {
		topics = append(topics, domain.BuildingTopic(buildingID))
	}

	for _, m := range h.pushesFor(ev, buildingID) {
		if m.Type == EventBookingUpdated && h.tenantMaySee(ctx, ev.TenantID, buildingID) {
			h.Broadcast(encode(m), append(topics, domain.UserTopic(ev.TenantID))...)
			continue
		}
		h.Broadcast(encode(m), topics...)
	}
	return nil
}

func (h *Hub) tenantMaySee(ctx context.Context, tenantID, buildingID int64) bool {
	if tenantID <= 0 || buildingID <= 0 {
		return false
	}
	ok, err := h.access.CanAccessBuilding(ctx, tenantID, buildingID)
	if err != nil {
		logger.Warn("skipping tenant push", "user_id", tenantID, "building_id", buildingID, "error", err)
		return false
	}
	return ok
}

func (h *Hub) pushesFor(ev domain.ChangeEvent, buildingID int64) []ServerMessage {
	var out []ServerMessage
	if ev.BookingID > 0 {
		out = append(out, h.push(EventBookingUpdated, ev, buildingID))
	}
	if ev.TouchesActive() {
		out = append(out, h.push(EventRoomAvailabilityChanged, ev, buildingID))
	}
	if ev.TouchesActive() || ev.Action == domain.ActionRoomStatusChanged {
		out = append(out, h.push(EventRoomUpdated, ev, buildingID))
	}
	return out
}

func (h *Hub) push(kind string, ev domain.ChangeEvent, buildingID int64) ServerMessage {
	ts := ev.OccurredAt
	if ts.IsZero() {
		ts = h.now()
	}
	return ServerMessage{
		Type:       kind,
		RoomID:     ev.RoomID,
		BookingID:  ev.BookingID,
		BuildingID: buildingID,
		Data:       ev,
		Timestamp:  ts,
	}
}

// Broadcast queues msg on every connection bound to any of topics and
// returns how many accepted it. Closed connections are removed.
func (h *Hub) Broadcast(msg []byte, topics ...domain.Topic) int {
	delivered := 0
	for _, c := range h.registry.Subscribers(topics...) {
		switch err := c.enqueue(msg); {
		case err == nil:
			delivered++
		case errors.Is(err, errConnClosed):
			h.registry.Remove(c)
		default:
			logger.Warn("dropping push for slow client", "conn_id", c.ID, "user_id", c.UserID())
		}
	}
	return delivered
}
