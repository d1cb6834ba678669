/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald/internal/events"
	"github.com/friendsincode/skald/internal/telemetry"
)

// RedisBus fans events out over Redis pub/sub. Local subscribers are
// always served through the in-memory bus; Redis carries the copies for
// other nodes. When Redis fails repeatedly the bus trips a circuit
// breaker and degrades to local-only delivery.
type RedisBus struct {
	client   *redis.Client
	logger   zerolog.Logger
	local    *events.Bus
	nodeID   string
	maxFails int

	mu       sync.Mutex
	subs     map[events.EventType][]events.Subscriber
	channels map[events.EventType]*redis.PubSub

	failCount int
	localOnly bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout time.Duration
	MaxFailures int
}

// NewRedisBus creates a Redis-backed event bus. A failed initial ping
// starts the bus in local-only mode rather than erroring out.
func NewRedisBus(cfg RedisConfig, nodeID string, logger zerolog.Logger) *RedisBus {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}

	ctx, cancel := context.WithCancel(context.Background())
	rb := &RedisBus{
		client: redis.NewClient(&redis.Options{
			Addr:        cfg.Addr,
			Password:    cfg.Password,
			DB:          cfg.DB,
			DialTimeout: cfg.DialTimeout,
		}),
		logger:   logger.With().Str("component", "redis_bus").Logger(),
		local:    events.NewBus(),
		nodeID:   nodeID,
		maxFails: cfg.MaxFailures,
		subs:     make(map[events.EventType][]events.Subscriber),
		channels: make(map[events.EventType]*redis.PubSub),
		ctx:      ctx,
		cancel:   cancel,
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer pingCancel()
	if err := rb.client.Ping(pingCtx).Err(); err != nil {
		rb.logger.Warn().Err(err).Msg("redis unreachable, events stay local to this node")
		rb.localOnly = true
	} else {
		rb.logger.Info().Str("addr", cfg.Addr).Msg("redis event bus connected")
	}

	return rb
}

// Subscribe registers a subscriber and, on first use of an event type,
// opens the matching Redis subscription.
func (rb *RedisBus) Subscribe(eventType events.EventType) events.Subscriber {
	sub := rb.local.Subscribe(eventType)

	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.subs[eventType] = append(rb.subs[eventType], sub)

	if rb.localOnly {
		return sub
	}
	if _, exists := rb.channels[eventType]; !exists {
		pubsub := rb.client.Subscribe(rb.ctx, channelName(eventType))
		rb.channels[eventType] = pubsub
		rb.wg.Add(1)
		go rb.receive(eventType, pubsub)
	}
	return sub
}

func (rb *RedisBus) receive(eventType events.EventType, pubsub *redis.PubSub) {
	defer rb.wg.Done()
	ch := pubsub.Channel()

	for {
		select {
		case <-rb.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				rb.recordFailure()
				return
			}
			env, err := unmarshalEnvelope([]byte(msg.Payload))
			if err != nil {
				rb.logger.Error().Err(err).Msg("bad event envelope")
				continue
			}
			if env.NodeID == rb.nodeID {
				continue
			}
			rb.local.Publish(eventType, env.Payload)
		}
	}
}

// Publish delivers locally and mirrors the event to Redis.
func (rb *RedisBus) Publish(eventType events.EventType, payload events.Payload) {
	telemetry.EventsPublishedTotal.WithLabelValues(string(eventType)).Inc()
	rb.local.Publish(eventType, payload)

	rb.mu.Lock()
	localOnly := rb.localOnly
	rb.mu.Unlock()
	if localOnly {
		return
	}

	data, err := marshalEnvelope(eventType, payload, rb.nodeID)
	if err != nil {
		rb.logger.Error().Err(err).Msg("marshal event envelope")
		return
	}

	ctx, cancel := context.WithTimeout(rb.ctx, 2*time.Second)
	defer cancel()
	if err := rb.client.Publish(ctx, channelName(eventType), data).Err(); err != nil {
		rb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("redis publish failed")
		rb.recordFailure()
		return
	}

	rb.mu.Lock()
	rb.failCount = 0
	rb.mu.Unlock()
}

// Unsubscribe removes a subscriber and closes the Redis subscription
// once the event type has no listeners left.
func (rb *RedisBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	rb.local.Unsubscribe(eventType, sub)

	rb.mu.Lock()
	defer rb.mu.Unlock()
	subs := rb.subs[eventType]
	for i, s := range subs {
		if s == sub {
			rb.subs[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(rb.subs[eventType]) == 0 {
		if pubsub, exists := rb.channels[eventType]; exists {
			_ = pubsub.Close()
			delete(rb.channels, eventType)
		}
	}
}

// Close stops all receivers and closes the Redis client.
func (rb *RedisBus) Close() error {
	rb.cancel()
	rb.wg.Wait()

	rb.mu.Lock()
	for _, pubsub := range rb.channels {
		_ = pubsub.Close()
	}
	rb.channels = make(map[events.EventType]*redis.PubSub)
	rb.mu.Unlock()

	return rb.client.Close()
}

func (rb *RedisBus) recordFailure() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.failCount++
	if rb.failCount >= rb.maxFails && !rb.localOnly {
		rb.logger.Warn().
			Int("fail_count", rb.failCount).
			Msg("redis failure threshold reached, degrading to local-only delivery")
		rb.localOnly = true
	}
}

func channelName(eventType events.EventType) string {
	return "skald:events:" + string(eventType)
}
