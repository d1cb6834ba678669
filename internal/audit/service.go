/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audit records configuration and live DJ events into a
// queryable database trail.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/skald/internal/eventbus"
	"github.com/friendsincode/skald/internal/events"
	"github.com/friendsincode/skald/internal/models"
)

// Service subscribes to bus events and stores audit entries.
type Service struct {
	db     *gorm.DB
	bus    eventbus.Bus
	logger zerolog.Logger
}

// NewService creates an audit service.
func NewService(db *gorm.DB, bus eventbus.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to the audited event types and records them until ctx
// is cancelled.
func (s *Service) Start(ctx context.Context) {
	configWritten := s.bus.Subscribe(events.EventConfigWritten)
	configFailed := s.bus.Subscribe(events.EventConfigFailed)
	djConnect := s.bus.Subscribe(events.EventDJConnect)
	djDisconnect := s.bus.Subscribe(events.EventDJDisconnect)
	liveToggled := s.bus.Subscribe(events.EventLiveToggled)
	requestEnqueued := s.bus.Subscribe(events.EventRequestEnqueued)
	trackSkipped := s.bus.Subscribe(events.EventTrackSkipped)

	defer func() {
		s.bus.Unsubscribe(events.EventConfigWritten, configWritten)
		s.bus.Unsubscribe(events.EventConfigFailed, configFailed)
		s.bus.Unsubscribe(events.EventDJConnect, djConnect)
		s.bus.Unsubscribe(events.EventDJDisconnect, djDisconnect)
		s.bus.Unsubscribe(events.EventLiveToggled, liveToggled)
		s.bus.Unsubscribe(events.EventRequestEnqueued, requestEnqueued)
		s.bus.Unsubscribe(events.EventTrackSkipped, trackSkipped)
	}()

	s.logger.Info().Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return
		case payload := <-configWritten:
			s.record(ctx, models.AuditActionConfigWrite, payload)
		case payload := <-configFailed:
			s.record(ctx, models.AuditActionConfigWriteFailed, payload)
		case payload := <-djConnect:
			s.record(ctx, models.AuditActionDJConnect, payload)
		case payload := <-djDisconnect:
			s.record(ctx, models.AuditActionDJDisconnect, payload)
		case payload := <-liveToggled:
			s.record(ctx, models.AuditActionLiveToggle, payload)
		case payload := <-requestEnqueued:
			s.record(ctx, models.AuditActionRequestEnqueue, payload)
		case payload := <-trackSkipped:
			s.record(ctx, models.AuditActionTrackSkip, payload)
		}
	}
}

func (s *Service) record(ctx context.Context, action models.AuditAction, payload events.Payload) {
	entry := &models.AuditLog{
		Action:    action,
		StationID: stationID(payload),
		Details:   make(map[string]any),
	}

	if actor, ok := payload["username"].(string); ok {
		entry.Actor = actor
	}

	for k, v := range payload {
		switch k {
		case "station_id", "username":
		default:
			entry.Details[k] = v
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", string(action)).Msg("failed to log audit entry")
	}
}

// stationID extracts the station reference from a payload. Events that
// crossed a Redis or NATS hop carry numbers as float64.
func stationID(payload events.Payload) *uint {
	switch v := payload["station_id"].(type) {
	case uint:
		return &v
	case int:
		id := uint(v)
		return &id
	case float64:
		id := uint(v)
		return &id
	}
	return nil
}

// Log records an audit entry directly.
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", string(entry.Action)).
		Str("id", entry.ID).
		Msg("audit entry logged")
	return nil
}

// QueryFilters narrows an audit log query.
type QueryFilters struct {
	StationID *uint
	Action    *models.AuditAction
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Query retrieves audit entries, most recent first.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filters.StationID != nil {
		query = query.Where("station_id = ?", *filters.StationID)
	}
	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.StartTime != nil {
		query = query.Where("timestamp >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("timestamp <= ?", *filters.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
