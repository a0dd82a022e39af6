// Package rabbit publishes domain events to a RabbitMQ topic exchange.
package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"wanderbook/internal/domain"
)

const (
	Exchange            = "wanderbook.events"
	KeyBookingConfirmed = "booking.confirmed"
)

type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects and declares the events exchange.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	p, err := NewPublisher(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, errors.Wrap(err, "declare exchange")
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev domain.BookingConfirmedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	err = p.ch.PublishWithContext(ctx, Exchange, KeyBookingConfirmed, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.BookingID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	return errors.Wrap(err, "publish "+KeyBookingConfirmed)
}

func (p *Publisher) Close() error {
	if err := p.ch.Close(); err != nil {
		log.Warn().Err(err).Msg("close rabbit channel")
	}
	return p.conn.Close()
}

// Noop drops events; used when no broker is configured.
type Noop struct{}

func (Noop) PublishBookingConfirmed(ctx context.Context, ev domain.BookingConfirmedEvent) error {
	log.Debug().Str("booking_id", ev.BookingID).Msg("event publishing disabled")
	return nil
}
