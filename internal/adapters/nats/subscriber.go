package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geoindex/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribePlacesChanged delivers change events published from now on. Every
// subscriber gets its own ephemeral consumer, so each API instance rebuilds
// its own index.
func (s *Subscriber) SubscribePlacesChanged(ctx context.Context, handler func(ctx context.Context, ev *domain.PlacesChanged) error) error {
	sub, err := s.js.Subscribe(SubjectPlacesChanged, placesChangedHandler(ctx, handler),
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectPlacesChanged, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

func placesChangedHandler(ctx context.Context, handler func(ctx context.Context, ev *domain.PlacesChanged) error) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var ev domain.PlacesChanged
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("dropping malformed places.changed event", "error", err)
			// redelivery cannot fix a malformed payload
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &ev); err != nil {
			slog.Error("places.changed handler failed", "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
