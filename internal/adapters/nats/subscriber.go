package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/pkg/logging"
)

// maxDeliver bounds redeliveries of a cancellation event.
const maxDeliver = 3

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber sharing a NATS connection.
func NewSubscriber(conn *nats.Conn) (*Subscriber, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStream(js); err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeBookingCancellations delivers each booking.cancelled event to
// handler. A failed event is delivered at most three times; malformed
// payloads and the final failed delivery are terminated.
func (s *Subscriber) SubscribeBookingCancellations(ctx context.Context, handler func(ctx context.Context, event *domain.BookingEvent) error) error {
	sub, err := s.js.Subscribe(domain.EventBookingCancelled+".>", func(msg *nats.Msg) {
		handle(ctx, msg.Data, msg, handler)
	},
		nats.Durable("refund-settler"),
		nats.ManualAck(),
		nats.MaxDeliver(maxDeliver),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// ackable is the part of *nats.Msg handle needs.
type ackable interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
	Metadata() (*nats.MsgMetadata, error)
}

func handle(ctx context.Context, data []byte, msg ackable, handler func(context.Context, *domain.BookingEvent) error) {
	log := logging.FromContext(ctx)

	var event domain.BookingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.WarnContext(ctx, "drop malformed booking event", "error", err)
		_ = msg.Term()
		return
	}
	if err := handler(ctx, &event); err != nil {
		// The server gives up silently after maxDeliver attempts, so the
		// last one is logged as a lost event.
		if meta, merr := msg.Metadata(); merr == nil && meta.NumDelivered >= maxDeliver {
			log.ErrorContext(ctx, "booking event dropped after final delivery",
				"booking_id", event.BookingID, "deliveries", meta.NumDelivered, "error", err)
			_ = msg.Term()
			return
		}
		log.WarnContext(ctx, "booking event handler failed", "booking_id", event.BookingID, "error", err)
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
