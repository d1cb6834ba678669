/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald/internal/events"
	"github.com/friendsincode/skald/internal/telemetry"
)

// NATSBus fans events out over NATS core pub/sub, one subject per event
// type under the skald.events prefix. Like the Redis backend, local
// subscribers are served through the in-memory bus and remote copies
// travel in JSON envelopes tagged with the publishing node.
type NATSBus struct {
	conn   *nats.Conn
	logger zerolog.Logger
	local  *events.Bus
	nodeID string

	mu            sync.Mutex
	subs          map[events.EventType][]events.Subscriber
	subscriptions map[events.EventType]*nats.Subscription
}

// NewNATSBus connects to the NATS server at url.
func NewNATSBus(url, nodeID string, logger zerolog.Logger) (*NATSBus, error) {
	log := logger.With().Str("component", "nats_bus").Logger()

	conn, err := nats.Connect(url,
		nats.Name("skald-"+nodeID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}

	log.Info().Str("url", url).Msg("nats event bus connected")
	return &NATSBus{
		conn:          conn,
		logger:        log,
		local:         events.NewBus(),
		nodeID:        nodeID,
		subs:          make(map[events.EventType][]events.Subscriber),
		subscriptions: make(map[events.EventType]*nats.Subscription),
	}, nil
}

// Subscribe registers a subscriber and, on first use of an event type,
// opens the matching NATS subscription.
func (nb *NATSBus) Subscribe(eventType events.EventType) events.Subscriber {
	sub := nb.local.Subscribe(eventType)

	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.subs[eventType] = append(nb.subs[eventType], sub)

	if _, exists := nb.subscriptions[eventType]; !exists {
		natsSub, err := nb.conn.Subscribe(subjectName(eventType), func(msg *nats.Msg) {
			env, err := unmarshalEnvelope(msg.Data)
			if err != nil {
				nb.logger.Error().Err(err).Msg("bad event envelope")
				return
			}
			if env.NodeID == nb.nodeID {
				return
			}
			nb.local.Publish(eventType, env.Payload)
		})
		if err != nil {
			nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("nats subscribe failed")
			return sub
		}
		nb.subscriptions[eventType] = natsSub
	}
	return sub
}

// Publish delivers locally and mirrors the event to NATS.
func (nb *NATSBus) Publish(eventType events.EventType, payload events.Payload) {
	telemetry.EventsPublishedTotal.WithLabelValues(string(eventType)).Inc()
	nb.local.Publish(eventType, payload)

	data, err := marshalEnvelope(eventType, payload, nb.nodeID)
	if err != nil {
		nb.logger.Error().Err(err).Msg("marshal event envelope")
		return
	}
	if err := nb.conn.Publish(subjectName(eventType), data); err != nil {
		nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("nats publish failed")
	}
}

// Unsubscribe removes a subscriber and drains the NATS subscription
// once the event type has no listeners left.
func (nb *NATSBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	nb.local.Unsubscribe(eventType, sub)

	nb.mu.Lock()
	defer nb.mu.Unlock()
	subs := nb.subs[eventType]
	for i, s := range subs {
		if s == sub {
			nb.subs[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(nb.subs[eventType]) == 0 {
		if natsSub, exists := nb.subscriptions[eventType]; exists {
			_ = natsSub.Drain()
			delete(nb.subscriptions, eventType)
		}
	}
}

// Close drains the connection so queued events flush before shutdown.
func (nb *NATSBus) Close() error {
	if err := nb.conn.Drain(); err != nil {
		nb.conn.Close()
		return err
	}
	return nil
}

func subjectName(eventType events.EventType) string {
	return "skald.events." + string(eventType)
}
