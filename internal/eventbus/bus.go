/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus provides distributed event bus backends. Single-node
// deployments use the in-memory bus; multi-node deployments fan events
// out over Redis pub/sub or NATS.
package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/skald/internal/events"
	"github.com/friendsincode/skald/internal/telemetry"
)

// Bus is the interface all event bus backends satisfy.
type Bus interface {
	Subscribe(eventType events.EventType) events.Subscriber
	Publish(eventType events.EventType, payload events.Payload)
	Unsubscribe(eventType events.EventType, sub events.Subscriber)
	Close() error
}

// MemoryBus wraps the in-process bus with a no-op Close.
type MemoryBus struct {
	*events.Bus
}

// NewMemoryBus creates a single-node event bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{Bus: events.NewBus()}
}

// Publish counts and delivers the event locally.
func (m *MemoryBus) Publish(eventType events.EventType, payload events.Payload) {
	telemetry.EventsPublishedTotal.WithLabelValues(string(eventType)).Inc()
	m.Bus.Publish(eventType, payload)
}

// Close implements Bus.
func (m *MemoryBus) Close() error { return nil }

// envelope is the wire format shared by the Redis and NATS backends.
// NodeID identifies the publishing instance so nodes can skip their own
// echoes; MessageID deduplicates redeliveries.
type envelope struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

func marshalEnvelope(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(envelope{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	})
}

func unmarshalEnvelope(data []byte) (*envelope, error) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}
	return &msg, nil
}
