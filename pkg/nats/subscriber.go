package nats

import (
	"context"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// MessageHandler processes one raw message. Returning an error naks it for redelivery.
type MessageHandler func(ctx context.Context, subject string, data []byte) error

// Subscriber handles listening for messages from NATS.
type Subscriber struct {
	nc   *nats.Conn
	js   jetstream.JetStream
	ctxs []jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	ensureStream(js)

	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe registers a handler for a subject with a durable consumer.
// Only messages published after the consumer is created are delivered.
func (s *Subscriber) Subscribe(ctx context.Context, subject, durableName string, handler MessageHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Subject(), msg.Data()); err != nil {
			log.Printf("Handler failed for %s: %v", msg.Subject(), err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.ctxs = append(s.ctxs, cc)

	log.Printf("Subscribed to %s with durable %s", subject, durableName)
	return nil
}

// Close stops all consumers and closes the connection.
func (s *Subscriber) Close() {
	for _, cc := range s.ctxs {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
