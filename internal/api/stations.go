/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/friendsincode/skald/internal/events"
	"github.com/friendsincode/skald/internal/liquidsoap"
)

type stationResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	ShortName    string `json:"short_name"`
	Frontend     string `json:"frontend"`
	FrontendPort int    `json:"frontend_port"`
	ManualAutoDJ bool   `json:"manual_autodj"`
	IsLive       bool   `json:"is_live"`
}

func (a *API) handleListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := a.store.Stations(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list stations")
		writeError(w, http.StatusInternalServerError, "list stations failed")
		return
	}

	out := make([]stationResponse, 0, len(stations))
	for _, st := range stations {
		out = append(out, stationResponse{
			ID:           st.ID,
			Name:         st.Name,
			ShortName:    st.ShortName,
			Frontend:     string(st.Frontend),
			FrontendPort: st.FrontendPort,
			ManualAutoDJ: st.ManualAutoDJ,
			IsLive:       st.IsStreamerLive,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetConfig returns the script a write would install, without
// touching the filesystem.
func (a *API) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	st, ok := a.station(w, r)
	if !ok {
		return
	}

	art, err := a.writer.Generate(r.Context(), st)
	if err != nil {
		a.logger.Error().Err(err).Uint("station_id", st.ID).Msg("generate config")
		writeError(w, http.StatusInternalServerError, "config generation failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(art.Script))
}

func (a *API) handleWriteConfig(w http.ResponseWriter, r *http.Request) {
	st, ok := a.station(w, r)
	if !ok {
		return
	}

	art, err := a.writer.Install(r.Context(), st)
	if err != nil {
		a.logger.Error().Err(err).Uint("station_id", st.ID).Msg("install config")
		a.bus.Publish(events.EventConfigFailed, events.Payload{"station_id": st.ID, "error": err.Error()})
		writeError(w, http.StatusInternalServerError, "config write failed")
		return
	}

	resp := map[string]any{
		"station_id":     st.ID,
		"script_path":    art.ScriptPath,
		"playlist_files": len(art.PlaylistFiles),
	}

	if a.archive != nil {
		key, err := a.archive.Save(r.Context(), liquidsoap.VariablePrefix(st), art.Script)
		if err != nil {
			// Archival is best effort; the installed config is already live.
			a.logger.Warn().Err(err).Uint("station_id", st.ID).Msg("config archive failed")
		} else {
			resp["archive_key"] = key
		}
	}

	a.bus.Publish(events.EventConfigWritten, events.Payload{
		"station_id":  st.ID,
		"script_path": art.ScriptPath,
	})
	writeJSON(w, http.StatusOK, resp)
}

type enqueueRequest struct {
	URI string `json:"uri"`
}

func (a *API) handleEnqueueRequest(w http.ResponseWriter, r *http.Request) {
	st, ok := a.station(w, r)
	if !ok {
		return
	}

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URI == "" {
		writeError(w, http.StatusBadRequest, "uri is required")
		return
	}

	ticket, err := a.store.CreateRequest(r.Context(), st.ID, req.URI, r.RemoteAddr)
	if err != nil {
		a.logger.Error().Err(err).Uint("station_id", st.ID).Msg("create request ticket")
		writeError(w, http.StatusInternalServerError, "request failed")
		return
	}

	resp := map[string]any{"request_id": ticket.ID}

	// Manual stations take the request over telnet immediately;
	// automatic stations pick the ticket up on the next song boundary.
	if st.ManualAutoDJ {
		ack, err := a.controller.EnqueueRequest(r.Context(), st, req.URI)
		if err != nil {
			switch {
			case errors.Is(err, liquidsoap.ErrRequestPending):
				writeError(w, http.StatusConflict, "a request is already pending")
			case errors.Is(err, liquidsoap.ErrConnect):
				writeError(w, http.StatusBadGateway, "station engine unreachable")
			default:
				a.logger.Error().Err(err).Uint("station_id", st.ID).Msg("enqueue request")
				writeError(w, http.StatusInternalServerError, "request failed")
			}
			return
		}
		resp["engine_ack"] = ack
	}

	a.bus.Publish(events.EventRequestEnqueued, events.Payload{
		"station_id": st.ID,
		"request_id": ticket.ID,
		"uri":        req.URI,
	})
	writeJSON(w, http.StatusAccepted, resp)
}

func (a *API) handleSkip(w http.ResponseWriter, r *http.Request) {
	st, ok := a.station(w, r)
	if !ok {
		return
	}

	if err := a.controller.Skip(r.Context(), st); err != nil {
		if errors.Is(err, liquidsoap.ErrConnect) {
			writeError(w, http.StatusBadGateway, "station engine unreachable")
			return
		}
		a.logger.Error().Err(err).Uint("station_id", st.ID).Msg("skip")
		writeError(w, http.StatusInternalServerError, "skip failed")
		return
	}

	a.bus.Publish(events.EventTrackSkipped, events.Payload{"station_id": st.ID})
	writeJSON(w, http.StatusOK, map[string]bool{"skipped": true})
}

type setLiveRequest struct {
	Live bool `json:"live"`
}

func (a *API) handleSetLive(w http.ResponseWriter, r *http.Request) {
	st, ok := a.station(w, r)
	if !ok {
		return
	}

	var req setLiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if err := a.controller.SetLive(r.Context(), st, req.Live); err != nil {
		if errors.Is(err, liquidsoap.ErrConnect) {
			writeError(w, http.StatusBadGateway, "station engine unreachable")
			return
		}
		a.logger.Error().Err(err).Uint("station_id", st.ID).Msg("set live")
		writeError(w, http.StatusInternalServerError, "live toggle failed")
		return
	}

	a.bus.Publish(events.EventLiveToggled, events.Payload{
		"station_id": st.ID,
		"live":       req.Live,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"live": req.Live})
}
