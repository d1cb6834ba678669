/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	// Configuration lifecycle.
	EventConfigWritten EventType = "config.written"
	EventConfigFailed  EventType = "config.failed"

	// Live DJ state, published by the internal callout endpoints.
	EventDJConnect    EventType = "dj.connect"
	EventDJDisconnect EventType = "dj.disconnect"
	EventLiveToggled  EventType = "dj.live_toggled"

	// Remote control.
	EventRequestEnqueued EventType = "control.request_enqueued"
	EventTrackSkipped    EventType = "control.track_skipped"

	// Entity changes that invalidate any derived state.
	EventStationUpdated  EventType = "cache.station_updated"
	EventStationDeleted  EventType = "cache.station_deleted"
	EventPlaylistUpdated EventType = "cache.playlist_updated"
	EventMountUpdated    EventType = "cache.mount_updated"
	EventRemoteUpdated   EventType = "cache.remote_updated"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub. Delivery is best effort: a
// subscriber with a full channel misses the event.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
