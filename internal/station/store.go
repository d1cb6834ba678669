/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package station

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/skald/internal/cache"
	"github.com/friendsincode/skald/internal/models"
)

// ErrNotFound is returned when a station or related entity does not exist.
var ErrNotFound = errors.New("station: not found")

// Store is the gorm-backed repository for stations and their broadcast
// entities. All list methods return rows in stable primary-key order so
// that script generation is deterministic.
type Store struct {
	db     *gorm.DB
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewStore creates a station store.
func NewStore(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "station_store").Logger(),
	}
}

// WithCache attaches a read-through cache. Nil leaves caching off.
func (s *Store) WithCache(c *cache.Cache) *Store {
	s.cache = c
	return s
}

// Station fetches a single station by ID.
func (s *Store) Station(ctx context.Context, id uint) (*models.Station, error) {
	if s.cache != nil {
		if st, ok := s.cache.GetStation(ctx, id); ok {
			return st, nil
		}
	}

	var st models.Station
	if err := s.db.WithContext(ctx).First(&st, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load station %d: %w", id, err)
	}

	if s.cache != nil {
		_ = s.cache.SetStation(ctx, &st)
	}
	return &st, nil
}

// Stations lists all stations in ID order.
func (s *Store) Stations(ctx context.Context) ([]models.Station, error) {
	if s.cache != nil {
		if stations, ok := s.cache.GetStationList(ctx); ok {
			return stations, nil
		}
	}

	var out []models.Station
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.SetStationList(ctx, out)
	}
	return out, nil
}

// Playlists lists a station's playlists with their items, in ID order.
func (s *Store) Playlists(ctx context.Context, stationID uint) ([]models.Playlist, error) {
	if s.cache != nil {
		if playlists, ok := s.cache.GetPlaylists(ctx, stationID); ok {
			return playlists, nil
		}
	}

	var out []models.Playlist
	err := s.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") }).
		Where("station_id = ?", stationID).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list playlists for station %d: %w", stationID, err)
	}

	if s.cache != nil {
		_ = s.cache.SetPlaylists(ctx, stationID, out)
	}
	return out, nil
}

// CreatePlaylist persists a new playlist.
func (s *Store) CreatePlaylist(ctx context.Context, p *models.Playlist) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create playlist %q: %w", p.Name, err)
	}
	if s.cache != nil {
		_ = s.cache.InvalidatePlaylists(ctx, p.StationID)
	}
	s.logger.Info().
		Uint("station_id", p.StationID).
		Str("playlist", p.Name).
		Msg("playlist created")
	return nil
}

// Mounts lists a station's local broadcast mounts in ID order.
func (s *Store) Mounts(ctx context.Context, stationID uint) ([]models.Mount, error) {
	if s.cache != nil {
		if mounts, ok := s.cache.GetMounts(ctx, stationID); ok {
			return mounts, nil
		}
	}

	var out []models.Mount
	err := s.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list mounts for station %d: %w", stationID, err)
	}

	if s.cache != nil {
		_ = s.cache.SetMounts(ctx, stationID, out)
	}
	return out, nil
}

// Remotes lists a station's relay targets in ID order.
func (s *Store) Remotes(ctx context.Context, stationID uint) ([]models.Remote, error) {
	if s.cache != nil {
		if remotes, ok := s.cache.GetRemotes(ctx, stationID); ok {
			return remotes, nil
		}
	}

	var out []models.Remote
	err := s.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list remotes for station %d: %w", stationID, err)
	}

	if s.cache != nil {
		_ = s.cache.SetRemotes(ctx, stationID, out)
	}
	return out, nil
}

// Streamer looks up an active live DJ account by username.
func (s *Store) Streamer(ctx context.Context, stationID uint, username string) (*models.Streamer, error) {
	var st models.Streamer
	err := s.db.WithContext(ctx).
		Where("station_id = ? AND username = ? AND is_active = ?", stationID, username, true).
		First(&st).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load streamer %q: %w", username, err)
	}
	return &st, nil
}

// SetStreamerLive records live DJ connection state on the station.
func (s *Store) SetStreamerLive(ctx context.Context, stationID uint, streamerID *uint, live bool) error {
	updates := map[string]any{
		"is_streamer_live":    live,
		"current_streamer_id": streamerID,
	}
	if err := s.db.WithContext(ctx).Model(&models.Station{}).Where("id = ?", stationID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update streamer state for station %d: %w", stationID, err)
	}
	if s.cache != nil {
		_ = s.cache.InvalidateStation(ctx, stationID)
	}
	return nil
}

// CreateRequest stores a new request ticket.
func (s *Store) CreateRequest(ctx context.Context, stationID uint, trackURI, requesterIP string) (*models.StationRequest, error) {
	req := &models.StationRequest{
		ID:          uuid.NewString(),
		StationID:   stationID,
		TrackURI:    trackURI,
		RequesterIP: requesterIP,
	}
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// NextRequest returns the oldest unplayed request ticket, or ErrNotFound.
func (s *Store) NextRequest(ctx context.Context, stationID uint) (*models.StationRequest, error) {
	var req models.StationRequest
	err := s.db.WithContext(ctx).
		Where("station_id = ? AND played_at IS NULL", stationID).
		Order("created_at").
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load next request: %w", err)
	}
	return &req, nil
}

// MarkRequestPlayed stamps a request ticket as handed to the engine.
func (s *Store) MarkRequestPlayed(ctx context.Context, id string) error {
	now := time.Now()
	err := s.db.WithContext(ctx).
		Model(&models.StationRequest{}).
		Where("id = ?", id).
		Update("played_at", &now).Error
	if err != nil {
		return fmt.Errorf("mark request %s played: %w", id, err)
	}
	return nil
}

// NextSong picks the track the engine should play next: the oldest unplayed
// request if one exists, otherwise a random track from the enabled
// default-type playlists. Returns ErrNotFound when the station has nothing
// playable.
func (s *Store) NextSong(ctx context.Context, stationID uint) (string, error) {
	if req, err := s.NextRequest(ctx, stationID); err == nil {
		if err := s.MarkRequestPlayed(ctx, req.ID); err != nil {
			return "", err
		}
		return req.TrackURI, nil
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	playlists, err := s.Playlists(ctx, stationID)
	if err != nil {
		return "", err
	}

	var candidates []string
	for _, p := range playlists {
		if !p.IsEnabled || p.Type != models.PlaylistTypeDefault || p.Source != models.PlaylistSourceSongs {
			continue
		}
		for _, item := range p.Items {
			candidates = append(candidates, item.Path)
		}
	}
	if len(candidates) == 0 {
		return "", ErrNotFound
	}
	return candidates[rand.Intn(len(candidates))], nil
}
