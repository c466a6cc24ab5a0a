package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/logger"

	"github.com/lib/pq"
)

// Source is the notification connection the relay listens on. *pq.Listener
// satisfies it.
type Source interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// Consumer receives decoded change events in commit order.
type Consumer interface {
	Handle(ctx context.Context, ev domain.ChangeEvent) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(ctx context.Context, ev domain.ChangeEvent) error

func (f ConsumerFunc) Handle(ctx context.Context, ev domain.ChangeEvent) error { return f(ctx, ev) }

// StatusSink is told when the listener connection goes up or down.
type StatusSink interface {
	SetRelayServing(serving bool)
}

type namedConsumer struct {
	name string
	c    Consumer
}

type Config struct {
	Channel              string
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
	PingInterval         time.Duration
	DedupWindow          int
}

// Stats counts what the relay has seen since start.
type Stats struct {
	Received   int64
	Dispatched int64
	Malformed  int64
	Duplicates int64
	Reconnects int64
}

// Relay bridges committed storage notifications to in-process consumers.
// Events are dispatched on a single goroutine, so consumers observe them in
// the order the storage engine delivered them.
type Relay struct {
	cfg       Config
	consumers []namedConsumer
	dedup     *window
	status    StatusSink
	connected atomic.Bool
	log       *slog.Logger

	received, dispatched, malformed, duplicates, reconnects atomic.Int64
}

func New(cfg Config, status StatusSink) *Relay {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 90 * time.Second
	}
	return &Relay{
		cfg:    cfg,
		dedup:  newWindow(cfg.DedupWindow),
		status: status,
		log:    logger.WithComponent("relay").With("channel", cfg.Channel),
	}
}

// Use appends a consumer. Consumers run in registration order for every event.
func (r *Relay) Use(name string, c Consumer) {
	r.consumers = append(r.consumers, namedConsumer{name: name, c: c})
}

// NewListener opens the pq listener with bounded reconnect backoff, reporting
// connection state back to the relay.
func (r *Relay) NewListener(connStr string) *pq.Listener {
	return pq.NewListener(connStr, r.cfg.MinReconnectInterval, r.cfg.MaxReconnectInterval, r.OnListenerEvent)
}

// OnListenerEvent is the pq.Listener event callback.
func (r *Relay) OnListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		r.log.Info("relay listener connected")
		r.setConnected(true)
	case pq.ListenerEventReconnected:
		r.log.Warn("relay listener reconnected; notifications sent while disconnected are lost")
		r.reconnects.Add(1)
		r.setConnected(true)
	case pq.ListenerEventDisconnected:
		r.log.Error("relay listener disconnected", "error", err)
		r.setConnected(false)
	case pq.ListenerEventConnectionAttemptFailed:
		r.log.Warn("relay listener connection attempt failed", "error", err)
		r.setConnected(false)
	}
}

func (r *Relay) setConnected(ok bool) {
	r.connected.Store(ok)
	if r.status != nil {
		r.status.SetRelayServing(ok)
	}
}

func (r *Relay) Connected() bool { return r.connected.Load() }

func (r *Relay) Stats() Stats {
	return Stats{
		Received:   r.received.Load(),
		Dispatched: r.dispatched.Load(),
		Malformed:  r.malformed.Load(),
		Duplicates: r.duplicates.Load(),
		Reconnects: r.reconnects.Load(),
	}
}

// Run listens on the configured channel until ctx is cancelled. It returns
// nil on cancellation and an error only when the source cannot be used.
func (r *Relay) Run(ctx context.Context, src Source) error {
	if err := src.Listen(r.cfg.Channel); err != nil {
		return fmt.Errorf("listen %s: %w", r.cfg.Channel, err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			r.log.Warn("relay close failed", "error", err)
		}
		r.setConnected(false)
	}()
	r.log.Info("relay started", "consumers", len(r.consumers))

	ticker := time.NewTicker(r.cfg.PingInterval)
	defer ticker.Stop()

	notifications := src.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping")
			return nil
		case n, ok := <-notifications:
			if !ok {
				return errors.New("relay notification channel closed")
			}
			if n == nil {
				// pq delivers nil after re-establishing the connection.
				continue
			}
			r.Deliver(ctx, n.Extra)
		case <-ticker.C:
			go func() {
				if err := src.Ping(); err != nil {
					r.log.Warn("relay ping failed", "error", err)
				}
			}()
		}
	}
}

// Deliver decodes one raw payload and fans it out. Malformed payloads and
// redeliveries are dropped.
func (r *Relay) Deliver(ctx context.Context, payload string) {
	r.received.Add(1)
	ev, err := domain.DecodeChangeEvent(payload)
	if err != nil {
		r.malformed.Add(1)
		r.log.Warn("dropping malformed change notification", "error", err, "payload", payload)
		return
	}
	if r.dedup.seen(ev.DedupKey()) {
		r.duplicates.Add(1)
		r.log.Debug("dropping redelivered change event", "event_id", ev.EventID, "room_id", ev.RoomID)
		return
	}

	for _, nc := range r.consumers {
		if err := r.dispatch(ctx, nc, ev); err != nil {
			r.log.Warn("change event consumer failed",
				"consumer", nc.name, "room_id", ev.RoomID, "booking_id", ev.BookingID,
				"action", ev.Action, "error", err)
		}
	}
	r.dispatched.Add(1)
}

func (r *Relay) dispatch(ctx context.Context, nc namedConsumer, ev domain.ChangeEvent) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("consumer panic: %v", rec)
		}
	}()
	return nc.c.Handle(ctx, ev)
}
