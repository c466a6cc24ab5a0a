package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/logger"
	"roomsync-backend/internal/security"
)

type TokenValidator interface {
	ValidateToken(token string) (*security.UserClaims, error)
}

// Authorizer answers whether a user may see a building's rooms.
type Authorizer interface {
	CanAccessBuilding(ctx context.Context, userID, buildingID int64) (bool, error)
	RoomBuilding(ctx context.Context, roomID int64) (int64, error)
}

// Hub owns the registry, gates subscriptions and fans change events out to
// subscribed connections.
type Hub struct {
	registry *Registry
	tokens   TokenValidator
	access   Authorizer
	now      func() time.Time
}

func NewHub(registry *Registry, tokens TokenValidator, access Authorizer) *Hub {
	return &Hub{registry: registry, tokens: tokens, access: access, now: time.Now}
}

func (h *Hub) Registry() *Registry { return h.registry }

// Connect registers a fresh unauthenticated connection.
func (h *Hub) Connect(buffer int) *Conn {
	c := NewConn(buffer)
	h.registry.Add(c)
	logger.Debug("realtime connection opened", "conn_id", c.ID)
	return c
}

func (h *Hub) Disconnect(c *Conn) {
	h.registry.Remove(c)
	logger.Debug("realtime connection closed", "conn_id", c.ID, "user_id", c.UserID())
}

// Authenticate validates token and binds the connection to its user's
// personal topic.
func (h *Hub) Authenticate(c *Conn, token string) (int64, error) {
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrNotAuthenticated, err)
	}
	if err := h.registry.bindPersonal(c, claims.UserID); err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// Subscribe binds c to t when its user may access the topic's building.
// Nothing is registered on failure.
func (h *Hub) Subscribe(ctx context.Context, c *Conn, t domain.Topic) error {
	if c.State() == StateUnauthenticated {
		return domain.ErrNotAuthenticated
	}
	userID := c.UserID()

	var buildingID int64
	switch t.Kind {
	case domain.TopicRoom:
		b, err := h.access.RoomBuilding(ctx, t.ID)
		if err != nil {
			if errors.Is(err, domain.ErrRoomNotFound) {
				return &domain.AuthorizationError{UserID: userID, Resource: t.String()}
			}
			return err
		}
		buildingID = b
	case domain.TopicBuilding:
		buildingID = t.ID
	default:
		return &domain.AuthorizationError{UserID: userID, Resource: t.String()}
	}

	ok, err := h.access.CanAccessBuilding(ctx, userID, buildingID)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.AuthorizationError{UserID: userID, Resource: t.String()}
	}
	return h.registry.Subscribe(c, t)
}

func (h *Hub) Unsubscribe(c *Conn, t domain.Topic) bool {
	return h.registry.Unsubscribe(c, t)
}

// HandleMessage runs one inbound frame through the protocol and queues the
// reply on c.
func (h *Hub) HandleMessage(ctx context.Context, c *Conn, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.reply(c, ServerMessage{Type: MsgError, Error: "invalid message"})
		return
	}

	switch msg.Type {
	case MsgAuthenticate:
		userID, err := h.Authenticate(c, msg.Token)
		if err != nil {
			logger.Warn("realtime authentication failed", "conn_id", c.ID, "error", err)
			h.reply(c, ServerMessage{Type: MsgError, Error: "authentication failed"})
			return
		}
		h.reply(c, ServerMessage{Type: MsgAuthenticated, UserID: userID})

	case MsgSubscribeRoom, MsgSubscribeBuilding:
		t, ok := topicOf(msg)
		if !ok {
			h.reply(c, ServerMessage{Type: MsgError, Error: "missing id"})
			return
		}
		if err := h.Subscribe(ctx, c, t); err != nil {
			h.reply(c, ServerMessage{Type: MsgError, Topic: t.String(), Error: subscribeError(err)})
			if !errors.Is(err, domain.ErrUnauthorized) && !errors.Is(err, domain.ErrNotAuthenticated) {
				logger.Error("realtime subscribe failed", "conn_id", c.ID, "topic", t.String(), "error", err)
			}
			return
		}
		h.reply(c, ServerMessage{Type: MsgSubscribed, Topic: t.String()})

	case MsgUnsubscribeRoom, MsgUnsubscribeBuilding:
		t, ok := topicOf(msg)
		if !ok {
			h.reply(c, ServerMessage{Type: MsgError, Error: "missing id"})
			return
		}
		h.Unsubscribe(c, t)
		h.reply(c, ServerMessage{Type: MsgUnsubscribed, Topic: t.String()})

	default:
		h.reply(c, ServerMessage{Type: MsgError, Error: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

func topicOf(msg ClientMessage) (domain.Topic, bool) {
	switch msg.Type {
	case MsgSubscribeRoom, MsgUnsubscribeRoom:
		return domain.RoomTopic(msg.RoomID), msg.RoomID > 0
	default:
		return domain.BuildingTopic(msg.BuildingID), msg.BuildingID > 0
	}
}

func subscribeError(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "not authenticated"
	case errors.Is(err, domain.ErrUnauthorized):
		return "access denied"
	}
	return "subscribe failed"
}

func (h *Hub) reply(c *Conn, m ServerMessage) {
	if err := c.enqueue(encode(m)); err != nil {
		logger.Debug("realtime reply dropped", "conn_id", c.ID, "type", m.Type, "error", err)
	}
}
