/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"
)

// FrontendAdapter enumerates supported broadcast frontends.
type FrontendAdapter string

const (
	FrontendIcecast   FrontendAdapter = "icecast"
	FrontendShoutcast FrontendAdapter = "shoutcast"
	FrontendRemote    FrontendAdapter = "remote"
)

// Station aggregates playlists, mounts, remotes and AutoDJ settings.
type Station struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex"`
	ShortName   string `gorm:"index"`
	Description string `gorm:"type:text"`
	URL         string

	// Frontend (broadcast server) settings.
	Frontend       FrontendAdapter `gorm:"type:varchar(16)"`
	FrontendPort   int
	SourcePassword string

	// Backend (AutoDJ engine) settings.
	CrossfadeSeconds float64
	DJBufferSeconds  int
	Charset          string `gorm:"type:varchar(32)"`
	CustomConfig     string `gorm:"type:text"`
	ManualAutoDJ     bool
	DJPort           *int
	TelnetPort       *int

	// Live streamer state.
	EnableStreamers   bool
	IsStreamerLive    bool
	CurrentStreamerID *uint

	// Optional override for the per-station filesystem root.
	RadioBaseDir string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ControlPort returns the engine telnet port: the explicit override when
// set, otherwise the broadcast port minus one.
func (s *Station) ControlPort() int {
	if s.TelnetPort != nil && *s.TelnetPort > 0 {
		return *s.TelnetPort
	}
	return s.FrontendPort - 1
}

// HarborPort returns the live DJ input port: the explicit override when
// set, otherwise the broadcast port plus five.
func (s *Station) HarborPort() int {
	if s.DJPort != nil && *s.DJPort > 0 {
		return *s.DJPort
	}
	return s.FrontendPort + 5
}

// PlaylistSource enumerates where a playlist's audio comes from.
type PlaylistSource string

const (
	PlaylistSourceSongs     PlaylistSource = "songs"
	PlaylistSourceRemoteURL PlaylistSource = "remote_url"
)

// PlaylistOrder enumerates playback ordering of song-list playlists.
type PlaylistOrder string

const (
	PlaylistOrderSequential PlaylistOrder = "sequential"
	PlaylistOrderShuffle    PlaylistOrder = "shuffle"
)

// PlaylistType enumerates scheduling behaviour.
type PlaylistType string

const (
	PlaylistTypeDefault       PlaylistType = "default"
	PlaylistTypeOncePerXSongs PlaylistType = "once_per_x_songs"
	PlaylistTypeOncePerXMins  PlaylistType = "once_per_x_minutes"
	PlaylistTypeScheduled     PlaylistType = "scheduled"
	PlaylistTypeOncePerDay    PlaylistType = "once_per_day"
	PlaylistTypeAdvanced      PlaylistType = "custom"
)

// Playlist belongs to one station. Schedule times are integer HHMM codes
// against the application's schedule baseline.
type Playlist struct {
	ID        uint `gorm:"primaryKey"`
	StationID uint `gorm:"index"`
	Name      string
	IsEnabled bool

	Source    PlaylistSource `gorm:"type:varchar(16)"`
	Order     PlaylistOrder  `gorm:"type:varchar(16);column:play_order"`
	Type      PlaylistType   `gorm:"type:varchar(24)"`
	RemoteURL string

	Weight            int
	PlayPerSongs      int
	PlayPerMinutes    int
	ScheduleStartTime int
	ScheduleEndTime   int
	PlayOnceTime      int

	Items []PlaylistItem `gorm:"foreignKey:PlaylistID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlaylistItem is one track reference inside a song-list playlist.
type PlaylistItem struct {
	ID         uint `gorm:"primaryKey"`
	PlaylistID uint `gorm:"index"`
	Position   int  `gorm:"index"`
	Path       string
}

// Mount is a local broadcast target on the station's own frontend.
type Mount struct {
	ID        uint `gorm:"primaryKey"`
	StationID uint `gorm:"index"`
	Name      string

	EnableAutoDJ  bool
	AutoDJFormat  string `gorm:"type:varchar(16)"`
	AutoDJBitrate int
	IsPublic      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RemoteAdapter enumerates relay protocol variants.
type RemoteAdapter string

const (
	RemoteIcecast    RemoteAdapter = "icecast"
	RemoteShoutcast1 RemoteAdapter = "shoutcast1"
	RemoteShoutcast2 RemoteAdapter = "shoutcast2"
)

// Remote is a relay broadcast target on a third-party server.
type Remote struct {
	ID        uint `gorm:"primaryKey"`
	StationID uint `gorm:"index"`

	Type           RemoteAdapter `gorm:"type:varchar(16)"`
	URL            string
	Port           *int
	Mount          string
	SourceUsername string
	SourcePassword string

	IsEnabled     bool
	EnableAutoDJ  bool
	AutoDJFormat  string `gorm:"type:varchar(16)"`
	AutoDJBitrate int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Streamer is a live DJ account allowed to connect to the harbor input.
type Streamer struct {
	ID           uint `gorm:"primaryKey"`
	StationID    uint `gorm:"index"`
	Username     string
	PasswordHash string
	DisplayName  string
	IsActive     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuditAction enumerates recorded audit event kinds.
type AuditAction string

const (
	AuditActionConfigWrite       AuditAction = "config.write"
	AuditActionConfigWriteFailed AuditAction = "config.write_failed"
	AuditActionDJConnect         AuditAction = "dj.connect"
	AuditActionDJDisconnect      AuditAction = "dj.disconnect"
	AuditActionLiveToggle        AuditAction = "dj.live_toggle"
	AuditActionRequestEnqueue    AuditAction = "control.request_enqueue"
	AuditActionTrackSkip         AuditAction = "control.track_skip"
)

// AuditLog is one recorded audit entry.
type AuditLog struct {
	ID        string      `gorm:"type:uuid;primaryKey"`
	Timestamp time.Time   `gorm:"index"`
	Action    AuditAction `gorm:"type:varchar(48);index"`
	StationID *uint       `gorm:"index"`
	Actor     string
	Details   map[string]any `gorm:"serializer:json"`
	CreatedAt time.Time
}

// StationRequest is a listener request ticket for the manual AutoDJ queue.
type StationRequest struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	StationID   uint   `gorm:"index"`
	TrackURI    string
	RequesterIP string
	PlayedAt    *time.Time
	CreatedAt   time.Time
}
