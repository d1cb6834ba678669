/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald/internal/auth"
	"github.com/friendsincode/skald/internal/eventbus"
	"github.com/friendsincode/skald/internal/liquidsoap"
	"github.com/friendsincode/skald/internal/models"
	"github.com/friendsincode/skald/internal/storage"
)

// Store is the subset of the station repository the API needs.
type Store interface {
	Station(ctx context.Context, id uint) (*models.Station, error)
	Stations(ctx context.Context) ([]models.Station, error)
	Streamer(ctx context.Context, stationID uint, username string) (*models.Streamer, error)
	SetStreamerLive(ctx context.Context, stationID uint, streamerID *uint, live bool) error
	CreateRequest(ctx context.Context, stationID uint, trackURI, requesterIP string) (*models.StationRequest, error)
	NextSong(ctx context.Context, stationID uint) (string, error)
}

// ConfigWriter generates and installs station configuration.
type ConfigWriter interface {
	Generate(ctx context.Context, st *models.Station) (*liquidsoap.Artifact, error)
	Install(ctx context.Context, st *models.Station) (*liquidsoap.Artifact, error)
}

// EngineController issues remote-control commands against running engines.
type EngineController interface {
	EnqueueRequest(ctx context.Context, st *models.Station, uri string) ([]string, error)
	Skip(ctx context.Context, st *models.Station) error
	SetLive(ctx context.Context, st *models.Station, live bool) error
}

// API exposes HTTP handlers.
type API struct {
	store      Store
	writer     ConfigWriter
	controller EngineController
	archive    *storage.ConfigArchive
	bus        eventbus.Bus
	jwtSecret  []byte
	logger     zerolog.Logger
}

// New creates the API router wrapper. archive may be nil when no object
// storage is configured.
func New(store Store, writer ConfigWriter, controller EngineController, archive *storage.ConfigArchive, bus eventbus.Bus, jwtSecret []byte, logger zerolog.Logger) *API {
	return &API{
		store:      store,
		writer:     writer,
		controller: controller,
		archive:    archive,
		bus:        bus,
		jwtSecret:  jwtSecret,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts the management API (JWT-protected) and the internal
// callout endpoints generated scripts call back into.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(a.jwtSecret))

		r.Get("/stations", a.handleListStations)
		r.Route("/stations/{stationID}", func(r chi.Router) {
			r.Get("/config", a.handleGetConfig)
			r.Post("/config/write", a.handleWriteConfig)
			r.Post("/requests", a.handleEnqueueRequest)
			r.Post("/skip", a.handleSkip)
			r.Post("/live", a.handleSetLive)
		})
	})

	// Engines authenticate by network placement, not tokens: these
	// endpoints are reachable only from the stations network.
	r.Route("/api/internal/{stationID}", func(r chi.Router) {
		r.Post("/nextsong", a.handleNextSong)
		r.Post("/djauth", a.handleDJAuth)
		r.Post("/djon", a.handleDJOn)
		r.Post("/djoff", a.handleDJOff)
	})
}

func (a *API) station(w http.ResponseWriter, r *http.Request) (*models.Station, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "stationID"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid station id")
		return nil, false
	}
	st, err := a.store.Station(r.Context(), uint(id))
	if err != nil {
		writeError(w, http.StatusNotFound, "station not found")
		return nil, false
	}
	return st, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
