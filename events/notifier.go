package events

import (
	"context"
	"log"
)

// Notifier is told about every successful catalog mutation.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

type sink interface {
	Publish(ctx context.Context, e Event) error
}

// Bus fans events out to the hub and, when configured, the broker.
// Delivery is best effort; a failed publish never fails the mutation.
type Bus struct {
	hub       *Hub
	publisher sink
}

// NewBus takes a nil publisher when no broker is configured.
func NewBus(hub *Hub, publisher *Publisher) *Bus {
	b := &Bus{hub: hub}
	if publisher != nil {
		b.publisher = publisher
	}
	return b
}

func (b *Bus) Notify(ctx context.Context, e Event) {
	message, err := e.JSON()
	if err != nil {
		log.Printf("Error encoding %s event: %v", e.Type, err)
		return
	}
	if b.hub != nil {
		b.hub.Broadcast(message)
	}
	if b.publisher != nil {
		if err := b.publisher.Publish(ctx, e); err != nil {
			log.Printf("Error publishing %s event: %v", e.Type, err)
		}
	}
}
