// Package events defines the canonical stored representation of a domain
// event. Aggregates emit typed events; the repository lifts them into
// envelopes and writes them next to the aggregate record. The reverse
// direction is not needed: events are write-only from the aggregate side and
// read by downstream pollers.
package events

import "encoding/json"

// DomainEvent is the contract an aggregate's event types satisfy. The event
// owns its identity, generated at creation time, and its JSON form is the
// envelope payload.
type DomainEvent interface {
	EventID() string
	EventName() string
	AggregateID() string
}

// Envelope is the stored form of a domain event. Payload is an opaque
// serialized string; the envelope never interprets it.
type Envelope struct {
	ID            string
	Name          string
	AggregateID   string
	AggregateName string
	Payload       string
}

// Wrap lifts a domain event into its envelope, serializing the event's
// semantic fields as the payload.
func Wrap(aggregateName string, event DomainEvent) (Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:            event.EventID(),
		Name:          event.EventName(),
		AggregateID:   event.AggregateID(),
		AggregateName: aggregateName,
		Payload:       string(payload),
	}, nil
}
