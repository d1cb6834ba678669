/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/friendsincode/skald/internal/events"
	"github.com/friendsincode/skald/internal/station"
	"github.com/friendsincode/skald/internal/telemetry"
)

// The internal endpoints speak the engine's dialect: plain text bodies,
// "true"/"false" for booleans, and a 200 even when the answer is "no
// track" so the engine does not retry in a tight loop.

func writePlain(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body + "\n"))
}

// handleNextSong answers the AutoDJ's next-track callout with a URI, or
// "false" when the station has nothing playable.
func (a *API) handleNextSong(w http.ResponseWriter, r *http.Request) {
	telemetry.CalloutRequestsTotal.WithLabelValues("nextsong").Inc()

	st, ok := a.station(w, r)
	if !ok {
		return
	}

	uri, err := a.store.NextSong(r.Context(), st.ID)
	if err != nil {
		if !errors.Is(err, station.ErrNotFound) {
			a.logger.Error().Err(err).Uint("station_id", st.ID).Msg("next song lookup")
		}
		writePlain(w, "false")
		return
	}

	a.logger.Debug().Uint("station_id", st.ID).Str("uri", uri).Msg("next song dispatched")
	writePlain(w, uri)
}

// handleDJAuth answers the harbor auth callout.
func (a *API) handleDJAuth(w http.ResponseWriter, r *http.Request) {
	telemetry.CalloutRequestsTotal.WithLabelValues("djauth").Inc()

	st, ok := a.station(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writePlain(w, "false")
		return
	}

	username := r.PostFormValue("dj_user")
	password := r.PostFormValue("dj_password")
	if !st.EnableStreamers || username == "" {
		writePlain(w, "false")
		return
	}

	streamer, err := a.store.Streamer(r.Context(), st.ID, username)
	if err != nil {
		if !errors.Is(err, station.ErrNotFound) {
			a.logger.Error().Err(err).Uint("station_id", st.ID).Msg("streamer lookup")
		}
		writePlain(w, "false")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(streamer.PasswordHash), []byte(password)) != nil {
		a.logger.Warn().
			Uint("station_id", st.ID).
			Str("username", username).
			Msg("dj auth rejected")
		writePlain(w, "false")
		return
	}

	writePlain(w, "true")
}

// handleDJOn records that a live DJ connected to the harbor.
func (a *API) handleDJOn(w http.ResponseWriter, r *http.Request) {
	telemetry.CalloutRequestsTotal.WithLabelValues("djon").Inc()

	st, ok := a.station(w, r)
	if !ok {
		return
	}

	if err := a.store.SetStreamerLive(r.Context(), st.ID, nil, true); err != nil {
		a.logger.Error().Err(err).Uint("station_id", st.ID).Msg("record dj connect")
	}
	a.bus.Publish(events.EventDJConnect, events.Payload{"station_id": st.ID})
	writePlain(w, "ok")
}

// handleDJOff records that the live DJ stream dropped.
func (a *API) handleDJOff(w http.ResponseWriter, r *http.Request) {
	telemetry.CalloutRequestsTotal.WithLabelValues("djoff").Inc()

	st, ok := a.station(w, r)
	if !ok {
		return
	}

	if err := a.store.SetStreamerLive(r.Context(), st.ID, nil, false); err != nil {
		a.logger.Error().Err(err).Uint("station_id", st.ID).Msg("record dj disconnect")
	}
	a.bus.Publish(events.EventDJDisconnect, events.Payload{"station_id": st.ID})
	writePlain(w, "ok")
}
