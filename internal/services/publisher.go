package services

import (
	"log"

	"peerfinder/internal/events"
)

// EventPublisher is the broker surface the services need. *rabbitmq.Client
// satisfies it; tests pass a mock or nil.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// publishEvent is best-effort: a nil or failing publisher is logged and never
// fails the operation that raised the event.
func publishEvent(p EventPublisher, kind string, payload interface{}) {
	if p == nil {
		return
	}
	body, err := events.Marshal(kind, payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", kind, err)
		return
	}
	if err := p.Publish(kind, body); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", kind, err)
	}
}
