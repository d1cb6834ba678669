package station

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/skald/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.Station{},
		&models.Playlist{},
		&models.PlaylistItem{},
		&models.Mount{},
		&models.Remote{},
		&models.Streamer{},
		&models.StationRequest{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db, zerolog.Nop())
}

func seedStation(t *testing.T, s *Store) *models.Station {
	t.Helper()
	st := &models.Station{Name: "Test FM", ShortName: "test", Frontend: models.FrontendIcecast, FrontendPort: 8000}
	if err := s.db.Create(st).Error; err != nil {
		t.Fatalf("seed station: %v", err)
	}
	return st
}

func TestStationNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.Station(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPlaylistsOrderedWithItems(t *testing.T) {
	s := testStore(t)
	st := seedStation(t, s)
	ctx := context.Background()

	p := &models.Playlist{
		StationID: st.ID,
		Name:      "rock",
		IsEnabled: true,
		Source:    models.PlaylistSourceSongs,
		Type:      models.PlaylistTypeDefault,
		Weight:    3,
		Items: []models.PlaylistItem{
			{Position: 2, Path: "/music/b.mp3"},
			{Position: 1, Path: "/music/a.mp3"},
		},
	}
	if err := s.CreatePlaylist(ctx, p); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	playlists, err := s.Playlists(ctx, st.ID)
	if err != nil {
		t.Fatalf("Playlists: %v", err)
	}
	if len(playlists) != 1 {
		t.Fatalf("playlists = %d", len(playlists))
	}
	items := playlists[0].Items
	if len(items) != 2 || items[0].Path != "/music/a.mp3" {
		t.Errorf("items not ordered by position: %+v", items)
	}
}

func TestNextSongPrefersRequests(t *testing.T) {
	s := testStore(t)
	st := seedStation(t, s)
	ctx := context.Background()

	err := s.CreatePlaylist(ctx, &models.Playlist{
		StationID: st.ID,
		Name:      "default",
		IsEnabled: true,
		Source:    models.PlaylistSourceSongs,
		Type:      models.PlaylistTypeDefault,
		Items:     []models.PlaylistItem{{Position: 1, Path: "/music/fallback.mp3"}},
	})
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	req, err := s.CreateRequest(ctx, st.ID, "/music/requested.mp3", "203.0.113.7")
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	uri, err := s.NextSong(ctx, st.ID)
	if err != nil {
		t.Fatalf("NextSong: %v", err)
	}
	if uri != "/music/requested.mp3" {
		t.Errorf("uri = %q, want requested track first", uri)
	}

	// The ticket is consumed; the next pick falls back to the playlist.
	if _, err := s.NextRequest(ctx, st.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("request %s not marked played: %v", req.ID, err)
	}
	uri, err = s.NextSong(ctx, st.ID)
	if err != nil {
		t.Fatalf("NextSong fallback: %v", err)
	}
	if uri != "/music/fallback.mp3" {
		t.Errorf("fallback uri = %q", uri)
	}
}

func TestNextSongEmptyStation(t *testing.T) {
	s := testStore(t)
	st := seedStation(t, s)
	if _, err := s.NextSong(context.Background(), st.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStreamerLookupIgnoresInactive(t *testing.T) {
	s := testStore(t)
	st := seedStation(t, s)
	ctx := context.Background()

	streamers := []models.Streamer{
		{StationID: st.ID, Username: "active_dj", PasswordHash: "x", IsActive: true},
		{StationID: st.ID, Username: "retired_dj", PasswordHash: "x", IsActive: false},
	}
	if err := s.db.Create(&streamers).Error; err != nil {
		t.Fatalf("seed streamers: %v", err)
	}

	if _, err := s.Streamer(ctx, st.ID, "active_dj"); err != nil {
		t.Errorf("active streamer: %v", err)
	}
	if _, err := s.Streamer(ctx, st.ID, "retired_dj"); !errors.Is(err, ErrNotFound) {
		t.Errorf("inactive streamer err = %v, want ErrNotFound", err)
	}
}

func TestSetStreamerLive(t *testing.T) {
	s := testStore(t)
	st := seedStation(t, s)
	ctx := context.Background()

	id := uint(42)
	if err := s.SetStreamerLive(ctx, st.ID, &id, true); err != nil {
		t.Fatalf("SetStreamerLive: %v", err)
	}

	got, err := s.Station(ctx, st.ID)
	if err != nil {
		t.Fatalf("Station: %v", err)
	}
	if !got.IsStreamerLive || got.CurrentStreamerID == nil || *got.CurrentStreamerID != 42 {
		t.Errorf("live state not recorded: %+v", got)
	}

	if err := s.SetStreamerLive(ctx, st.ID, nil, false); err != nil {
		t.Fatalf("SetStreamerLive off: %v", err)
	}
	got, _ = s.Station(ctx, st.ID)
	if got.IsStreamerLive || got.CurrentStreamerID != nil {
		t.Errorf("live state not cleared: %+v", got)
	}
}
