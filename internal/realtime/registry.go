package realtime

import (
	"sync"

	"roomsync-backend/internal/domain"
)

// Registry maps topics to the connections bound to them.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	topics map[domain.Topic]map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*Conn),
		topics: make(map[domain.Topic]map[string]*Conn),
	}
}

func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = c
}

// Remove closes c and drops all of its topic memberships.
func (r *Registry) Remove(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.close()
	for _, t := range c.bindings() {
		r.unbindLocked(c, t)
	}
	delete(r.conns, c.ID)
}

func (r *Registry) bindPersonal(c *Conn, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := c.authenticate(userID)
	if err != nil {
		return err
	}
	r.bindLocked(c, t)
	return nil
}

func (r *Registry) Subscribe(c *Conn, t domain.Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := c.addTopic(t); err != nil {
		return err
	}
	r.bindLocked(c, t)
	return nil
}

func (r *Registry) Unsubscribe(c *Conn, t domain.Topic) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !c.removeTopic(t) {
		return false
	}
	r.unbindLocked(c, t)
	return true
}

func (r *Registry) bindLocked(c *Conn, t domain.Topic) {
	m := r.topics[t]
	if m == nil {
		m = make(map[string]*Conn)
		r.topics[t] = m
	}
	m[c.ID] = c
}

func (r *Registry) unbindLocked(c *Conn, t domain.Topic) {
	m := r.topics[t]
	if m == nil {
		return
	}
	delete(m, c.ID)
	if len(m) == 0 {
		delete(r.topics, t)
	}
}

// Subscribers returns the distinct connections bound to any of topics.
func (r *Registry) Subscribers(topics ...domain.Topic) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []*Conn
	for _, t := range topics {
		for id, c := range r.topics[t] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) TopicSize(t domain.Topic) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[t])
}
