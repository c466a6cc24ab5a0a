package realtime

import (
	"errors"
	"sync"

	"roomsync-backend/internal/domain"

	"github.com/google/uuid"
)

// State is the lifecycle position of a client connection.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateSubscribed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateSubscribed:
		return "subscribed"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var (
	errConnClosed  = errors.New("connection closed")
	errBufferFull  = errors.New("send buffer full")
	errAlreadyAuth = errors.New("connection already authenticated as another user")
)

// Conn is one real-time client. Outbound messages are queued on a bounded
// buffer drained by the transport's write loop.
type Conn struct {
	ID string

	send chan []byte
	done chan struct{}

	mu       sync.Mutex
	state    State
	userID   int64
	topics   map[domain.Topic]struct{}
	personal *domain.Topic
}

func NewConn(buffer int) *Conn {
	if buffer <= 0 {
		buffer = 64
	}
	return &Conn{
		ID:     uuid.NewString(),
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
		topics: make(map[domain.Topic]struct{}),
	}
}

func (c *Conn) Send() <-chan []byte   { return c.send }
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) UserID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Topics returns the explicit subscriptions, without the personal topic.
func (c *Conn) Topics() []domain.Topic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Topic, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	return out
}

func (c *Conn) authenticate(userID int64) (domain.Topic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateClosed:
		return domain.Topic{}, errConnClosed
	case StateUnauthenticated:
		c.userID = userID
		c.state = StateAuthenticated
		t := domain.UserTopic(userID)
		c.personal = &t
		return t, nil
	}
	if c.userID != userID {
		return domain.Topic{}, errAlreadyAuth
	}
	return *c.personal, nil
}

func (c *Conn) addTopic(t domain.Topic) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateClosed:
		return errConnClosed
	case StateUnauthenticated:
		return domain.ErrNotAuthenticated
	}
	c.topics[t] = struct{}{}
	c.state = StateSubscribed
	return nil
}

func (c *Conn) removeTopic(t domain.Topic) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.topics[t]; !ok {
		return false
	}
	delete(c.topics, t)
	if len(c.topics) == 0 && c.state == StateSubscribed {
		c.state = StateAuthenticated
	}
	return true
}

// bindings returns every topic the connection is bound to, personal topic
// included.
func (c *Conn) bindings() []domain.Topic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Topic, 0, len(c.topics)+1)
	for t := range c.topics {
		out = append(out, t)
	}
	if c.personal != nil {
		out = append(out, *c.personal)
	}
	return out
}

// close moves the connection to closed. It reports whether this call did it.
func (c *Conn) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return false
	}
	c.state = StateClosed
	close(c.done)
	return true
}

// enqueue never blocks: a full buffer drops the message.
func (c *Conn) enqueue(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return errConnClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return errBufferFull
	}
}
