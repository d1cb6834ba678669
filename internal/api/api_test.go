/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/friendsincode/skald/internal/auth"
	"github.com/friendsincode/skald/internal/eventbus"
	"github.com/friendsincode/skald/internal/events"
	"github.com/friendsincode/skald/internal/liquidsoap"
	"github.com/friendsincode/skald/internal/models"
	"github.com/friendsincode/skald/internal/station"
)

type fakeStore struct {
	stations  map[uint]*models.Station
	streamers map[string]*models.Streamer
	nextSong  string
	requests  []models.StationRequest
	liveState map[uint]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		stations:  make(map[uint]*models.Station),
		streamers: make(map[string]*models.Streamer),
		liveState: make(map[uint]bool),
	}
}

func (f *fakeStore) Station(_ context.Context, id uint) (*models.Station, error) {
	st, ok := f.stations[id]
	if !ok {
		return nil, station.ErrNotFound
	}
	return st, nil
}

func (f *fakeStore) Stations(_ context.Context) ([]models.Station, error) {
	var out []models.Station
	for _, st := range f.stations {
		out = append(out, *st)
	}
	return out, nil
}

func (f *fakeStore) Streamer(_ context.Context, _ uint, username string) (*models.Streamer, error) {
	s, ok := f.streamers[username]
	if !ok {
		return nil, station.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) SetStreamerLive(_ context.Context, stationID uint, _ *uint, live bool) error {
	f.liveState[stationID] = live
	return nil
}

func (f *fakeStore) CreateRequest(_ context.Context, stationID uint, trackURI, requesterIP string) (*models.StationRequest, error) {
	req := models.StationRequest{ID: "req-1", StationID: stationID, TrackURI: trackURI, RequesterIP: requesterIP}
	f.requests = append(f.requests, req)
	return &req, nil
}

func (f *fakeStore) NextSong(_ context.Context, _ uint) (string, error) {
	if f.nextSong == "" {
		return "", station.ErrNotFound
	}
	return f.nextSong, nil
}

type fakeWriter struct {
	installs int
	fail     bool
}

func (f *fakeWriter) Generate(_ context.Context, st *models.Station) (*liquidsoap.Artifact, error) {
	return &liquidsoap.Artifact{Script: "# generated\n"}, nil
}

func (f *fakeWriter) Install(_ context.Context, st *models.Station) (*liquidsoap.Artifact, error) {
	if f.fail {
		return nil, context.DeadlineExceeded
	}
	f.installs++
	return &liquidsoap.Artifact{Script: "# generated\n", ScriptPath: "/tmp/liquidsoap.liq"}, nil
}

type fakeController struct {
	enqueueErr error
	commands   []string
}

func (f *fakeController) EnqueueRequest(_ context.Context, _ *models.Station, uri string) ([]string, error) {
	if f.enqueueErr != nil {
		return nil, f.enqueueErr
	}
	f.commands = append(f.commands, "push "+uri)
	return []string{"20"}, nil
}

func (f *fakeController) Skip(_ context.Context, _ *models.Station) error {
	f.commands = append(f.commands, "skip")
	return nil
}

func (f *fakeController) SetLive(_ context.Context, _ *models.Station, live bool) error {
	if live {
		f.commands = append(f.commands, "live on")
	} else {
		f.commands = append(f.commands, "live off")
	}
	return nil
}

var testSecret = []byte("test-secret")

func testAPI(t *testing.T, store *fakeStore, writer *fakeWriter, ctl *fakeController) (*chi.Mux, eventbus.Bus) {
	t.Helper()
	bus := eventbus.NewMemoryBus()
	a := New(store, writer, ctl, nil, bus, testSecret, zerolog.Nop())
	router := chi.NewRouter()
	a.Routes(router)
	return router, bus
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := auth.Issue(testSecret, auth.Claims{UserID: "u1", Roles: []string{"admin"}}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return "Bearer " + token
}

func TestManagementRequiresToken(t *testing.T) {
	router, _ := testAPI(t, newFakeStore(), &fakeWriter{}, &fakeController{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stations", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestWriteConfigPublishesEvent(t *testing.T) {
	store := newFakeStore()
	store.stations[1] = &models.Station{ID: 1, ShortName: "test", FrontendPort: 8000}
	writer := &fakeWriter{}
	router, bus := testAPI(t, store, writer, &fakeController{})

	sub := bus.Subscribe(events.EventConfigWritten)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stations/1/config/write", nil)
	req.Header.Set("Authorization", bearer(t))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if writer.installs != 1 {
		t.Errorf("installs = %d", writer.installs)
	}
	select {
	case payload := <-sub:
		if payload["station_id"] != uint(1) {
			t.Errorf("event payload = %v", payload)
		}
	case <-time.After(time.Second):
		t.Error("config written event not published")
	}
}

func TestGetConfigReturnsScript(t *testing.T) {
	store := newFakeStore()
	store.stations[1] = &models.Station{ID: 1, ShortName: "test", FrontendPort: 8000}
	router, _ := testAPI(t, store, &fakeWriter{}, &fakeController{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stations/1/config", nil)
	req.Header.Set("Authorization", bearer(t))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "# generated\n" {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestEnqueueRequestConflict(t *testing.T) {
	store := newFakeStore()
	store.stations[1] = &models.Station{ID: 1, ShortName: "test", FrontendPort: 8000, ManualAutoDJ: true}
	ctl := &fakeController{enqueueErr: liquidsoap.ErrRequestPending}
	router, _ := testAPI(t, store, &fakeWriter{}, ctl)

	body := bytes.NewBufferString(`{"uri":"/media/a.mp3"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stations/1/requests", body)
	req.Header.Set("Authorization", bearer(t))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestEnqueueRequestManualReturnsAck(t *testing.T) {
	store := newFakeStore()
	store.stations[1] = &models.Station{ID: 1, ShortName: "test", FrontendPort: 8000, ManualAutoDJ: true}
	ctl := &fakeController{}
	router, _ := testAPI(t, store, &fakeWriter{}, ctl)

	body := bytes.NewBufferString(`{"uri":"/media/a.mp3"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stations/1/requests", body)
	req.Header.Set("Authorization", bearer(t))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"engine_ack":["20"]`) {
		t.Errorf("push acknowledgment missing from response: %s", rr.Body.String())
	}
	if len(ctl.commands) != 1 || ctl.commands[0] != "push /media/a.mp3" {
		t.Errorf("commands = %v", ctl.commands)
	}
}

func TestEnqueueRequestAutomaticSkipsTelnet(t *testing.T) {
	store := newFakeStore()
	store.stations[1] = &models.Station{ID: 1, ShortName: "test", FrontendPort: 8000}
	ctl := &fakeController{enqueueErr: liquidsoap.ErrConnect}
	router, _ := testAPI(t, store, &fakeWriter{}, ctl)

	// The engine being unreachable must not fail automatic-mode
	// requests: the ticket waits for the next nextsong callout.
	body := bytes.NewBufferString(`{"uri":"/media/a.mp3"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stations/1/requests", body)
	req.Header.Set("Authorization", bearer(t))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", rr.Code, rr.Body.String())
	}
	if len(store.requests) != 1 {
		t.Errorf("requests = %d", len(store.requests))
	}
}

func TestNextSongCallout(t *testing.T) {
	store := newFakeStore()
	store.stations[1] = &models.Station{ID: 1, ShortName: "test", FrontendPort: 8000}
	store.nextSong = "/media/next.mp3"
	router, _ := testAPI(t, store, &fakeWriter{}, &fakeController{})

	req := httptest.NewRequest(http.MethodPost, "/api/internal/1/nextsong", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "/media/next.mp3" {
		t.Errorf("body = %q", got)
	}

	store.nextSong = ""
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/internal/1/nextsong", nil))
	if got := strings.TrimSpace(rr.Body.String()); got != "false" {
		t.Errorf("empty station body = %q, want false", got)
	}
}

func TestDJAuthCallout(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	store := newFakeStore()
	store.stations[1] = &models.Station{ID: 1, ShortName: "test", FrontendPort: 8000, EnableStreamers: true}
	store.streamers["dj"] = &models.Streamer{ID: 1, StationID: 1, Username: "dj", PasswordHash: string(hash), IsActive: true}
	router, _ := testAPI(t, store, &fakeWriter{}, &fakeController{})

	try := func(user, pass string) string {
		form := url.Values{"dj_user": {user}, "dj_password": {pass}}
		req := httptest.NewRequest(http.MethodPost, "/api/internal/1/djauth", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return strings.TrimSpace(rr.Body.String())
	}

	if got := try("dj", "sesame"); got != "true" {
		t.Errorf("valid credentials = %q, want true", got)
	}
	if got := try("dj", "wrong"); got != "false" {
		t.Errorf("bad password = %q, want false", got)
	}
	if got := try("ghost", "sesame"); got != "false" {
		t.Errorf("unknown user = %q, want false", got)
	}
}

func TestDJConnectCallouts(t *testing.T) {
	store := newFakeStore()
	store.stations[1] = &models.Station{ID: 1, ShortName: "test", FrontendPort: 8000, EnableStreamers: true}
	router, bus := testAPI(t, store, &fakeWriter{}, &fakeController{})

	sub := bus.Subscribe(events.EventDJConnect)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/internal/1/djon", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("djon: %d", rr.Code)
	}
	if !store.liveState[1] {
		t.Error("station not marked live after djon")
	}
	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Error("dj connect event not published")
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/internal/1/djoff", nil))
	if store.liveState[1] {
		t.Error("station still live after djoff")
	}
}

func TestSkipAndLive(t *testing.T) {
	store := newFakeStore()
	store.stations[1] = &models.Station{ID: 1, ShortName: "test", FrontendPort: 8000}
	ctl := &fakeController{}
	router, _ := testAPI(t, store, &fakeWriter{}, ctl)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stations/1/skip", nil)
	req.Header.Set("Authorization", bearer(t))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("skip: %d", rr.Code)
	}

	body := bytes.NewBufferString(`{"live":false}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/stations/1/live", body)
	req.Header.Set("Authorization", bearer(t))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("live: %d", rr.Code)
	}

	if len(ctl.commands) != 2 || ctl.commands[0] != "skip" || ctl.commands[1] != "live off" {
		t.Errorf("commands = %v", ctl.commands)
	}
}
