// Package eventbus abstracts publish/subscribe delivery of run lifecycle
// events over interchangeable transports.
package eventbus

import (
	"context"

	"github.com/pulsehq/pulse/pkg/events"
)

// EventHandler processes one decoded event.
type EventHandler func(ctx context.Context, event any) error

// EventBus publishes and routes run lifecycle events. Handle registers a
// handler per event type before Subscribe starts delivery.
type EventBus interface {
	Publish(ctx context.Context, key string, event events.Event) error
	Subscribe(ctx context.Context) error
	Handle(eventType events.EventType, handler EventHandler) error
	GenerateID() string
	Close() error
}
