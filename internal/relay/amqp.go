package relay

import (
	"context"
	"fmt"
	"time"

	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPForwarder republishes change events on a topic exchange for
// out-of-process consumers, keyed booking.<action>.
type AMQPForwarder struct {
	conn     *amqp.Connection
	ch       publisher
	exchange string
	timeout  time.Duration
}

func NewAMQPForwarder(url, exchange string) (*AMQPForwarder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPForwarder{conn: conn, ch: ch, exchange: exchange, timeout: 2 * time.Second}, nil
}

func RoutingKey(action domain.ChangeAction) string {
	return "booking." + string(action)
}

func (f *AMQPForwarder) Handle(ctx context.Context, ev domain.ChangeEvent) error {
	body, err := ev.Encode()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	key := RoutingKey(ev.Action)
	logger.ExternalServiceCall("rabbitmq", "publish", "exchange", f.exchange, "key", key)
	err = f.ch.PublishWithContext(ctx, f.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    ev.OccurredAt,
		Body:         []byte(body),
	})
	logger.ExternalServiceResult("rabbitmq", "publish", err, "event_id", ev.EventID)
	if err != nil {
		return &domain.TransientInfraError{Op: "amqp publish", Err: err}
	}
	return nil
}

func (f *AMQPForwarder) Close() error {
	if c, ok := f.ch.(*amqp.Channel); ok && c != nil {
		_ = c.Close()
	}
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}
