package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"khidma/internal/ports"
)

// Routing keys of the events published on the exchange.
const (
	RoutingCollectionRecorded = "collection.recorded"
	RoutingSettlementSaved    = "settlement.saved"
)

// Event is a decoded delivery. Exactly one of the payloads is set,
// according to Kind.
type Event struct {
	Kind       string
	Collection *ports.CollectionRecorded
	Settlement *ports.SettlementSaved
}

// NewCollectionRecorded stamps the event with the current time if unset.
func NewCollectionRecorded(ev ports.CollectionRecorded) ports.CollectionRecorded {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	return ev
}

// NewSettlementSaved stamps the event with the current time if unset.
func NewSettlementSaved(ev ports.SettlementSaved) ports.SettlementSaved {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	return ev
}

// DecodeEvent parses a delivery body according to its routing key.
func DecodeEvent(routingKey string, data []byte) (Event, error) {
	ev := Event{Kind: routingKey}
	switch routingKey {
	case RoutingCollectionRecorded:
		var c ports.CollectionRecorded
		if err := json.Unmarshal(data, &c); err != nil {
			return Event{}, err
		}
		ev.Collection = &c
	case RoutingSettlementSaved:
		var s ports.SettlementSaved
		if err := json.Unmarshal(data, &s); err != nil {
			return Event{}, err
		}
		ev.Settlement = &s
	default:
		return Event{}, fmt.Errorf("unknown routing key %q", routingKey)
	}
	return ev, nil
}
