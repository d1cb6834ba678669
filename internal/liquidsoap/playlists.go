/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package liquidsoap

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/friendsincode/skald/internal/models"
)

// defaultPlaylistWeight is assigned to the auto-created default playlist.
const defaultPlaylistWeight = 3

// rotation is one once-per-N wrap, kept in playlist declaration order:
// exactly one of perSongs or perMinutes is set.
type rotation struct {
	variable   string
	perSongs   int
	perMinutes int
}

type scheduleBranch struct {
	predicate string
	variable  string
}

// writePlaylists materializes every enabled playlist as a source
// expression and composes them into the station's AutoDJ stream.
func (w *Writer) writePlaylists(ctx context.Context, s *script, st *models.Station) error {
	playlists, err := w.store.Playlists(ctx, st.ID)
	if err != nil {
		return err
	}

	if !hasEnabledDefault(playlists) {
		created, err := w.createDefaultPlaylist(ctx, st)
		if err != nil {
			return err
		}
		playlists = append(playlists, *created)
	}

	delta := OffsetDelta(w.now(), w.cfg.BaselineOffsetHours)

	var (
		weights   []string
		defaults  []string
		rotations []rotation
		schedules []scheduleBranch
		seenVars  = make(map[string]int)
		seenFiles = make(map[string]int)
	)

	for _, p := range playlists {
		if !p.IsEnabled {
			continue
		}

		variable := uniqueName(s.prefix+"_playlist_"+playlistFragment(p), seenVars)
		source, err := w.playlistSource(s, p, variable, seenFiles)
		if err != nil {
			return err
		}
		s.appendf("%s = audio_to_stereo(%s)", variable, source)

		switch p.Type {
		case models.PlaylistTypeDefault:
			weight := p.Weight
			if weight < 1 {
				weight = 1
			}
			weights = append(weights, strconv.Itoa(weight))
			defaults = append(defaults, variable)

		case models.PlaylistTypeOncePerXSongs:
			rotations = append(rotations, rotation{variable: variable, perSongs: p.PlayPerSongs})

		case models.PlaylistTypeOncePerXMins:
			rotations = append(rotations, rotation{variable: variable, perMinutes: p.PlayPerMinutes})

		case models.PlaylistTypeScheduled:
			schedules = append(schedules, scheduleBranch{
				predicate: timeRangePredicate(p.ScheduleStartTime, p.ScheduleEndTime, delta),
				variable:  variable,
			})

		case models.PlaylistTypeOncePerDay:
			schedules = append(schedules, scheduleBranch{
				predicate: formatTimeCode(p.PlayOnceTime, delta),
				variable:  variable,
			})

		case models.PlaylistTypeAdvanced:
			// Defined but not composed; referenced from the station's
			// custom configuration fragment.
		}
	}

	s.append("")

	// Weighted-random base over the default playlists, then each
	// rotation wraps the accumulated stream in declaration order.
	stream := fmt.Sprintf("random(weights=[%s], [%s])",
		strings.Join(weights, ", "), strings.Join(defaults, ", "))

	for _, r := range rotations {
		if r.perSongs > 0 {
			stream = fmt.Sprintf("rotate(weights=[1, %d], [%s, %s])", r.perSongs, r.variable, stream)
		} else {
			stream = fmt.Sprintf("fallback([delay(%s, %s), %s])",
				ToFloat(float64(r.perMinutes*60)), r.variable, stream)
		}
	}
	if len(schedules) > 0 {
		branches := make([]string, 0, len(schedules)+1)
		for _, b := range schedules {
			branches = append(branches, fmt.Sprintf("({ %s }, %s)", b.predicate, b.variable))
		}
		branches = append(branches, fmt.Sprintf("({true}, %s)", stream))
		stream = fmt.Sprintf("switch([%s])", strings.Join(branches, ", "))
	}

	// Highest-priority branch: the manual request queue, or the
	// automatic next-song puller behind a cue trim.
	var top string
	if st.ManualAutoDJ {
		s.appendf("%s_requests = request.queue(id=%s)", s.prefix, quote(s.prefix+"_requests"))
		top = s.prefix + "_requests"
	} else {
		s.append(
			fmt.Sprintf("def %s_next_song() =", s.prefix),
			fmt.Sprintf(`  uri = list.hd(default="", get_process_lines(%s))`, quote(w.callout.NextSong(st.ID))),
			fmt.Sprintf(`  log("AutoDJ next song: #{uri}")`),
			"  request.create(audio=true, uri)",
			"end",
		)
		s.appendf("%s_autodj = cue_cut(id=%s, request.dynamic(id=%s, timeout=20., %s_next_song))",
			s.prefix, quote(s.prefix+"_cue"), quote(s.prefix+"_autodj"), s.prefix)
		top = s.prefix + "_autodj"
	}

	// Track-sensitive only in manual mode so a queued track always
	// finishes before the fallback advances.
	trackSensitive := "false"
	if st.ManualAutoDJ {
		trackSensitive = "true"
	}

	s.append("")
	s.appendf("%s = fallback(id=%s, track_sensitive=%s, [%s, %s, blank(duration=2.)])",
		s.radioVar, quote(s.prefix+"_fallback"), trackSensitive, top, stream)

	return nil
}

// playlistSource renders the source expression for one playlist and
// registers its track list export when it is a song-list playlist.
func (w *Writer) playlistSource(s *script, p models.Playlist, variable string, seenFiles map[string]int) (string, error) {
	if p.Source == models.PlaylistSourceRemoteURL {
		if p.RemoteURL == "" {
			return "", fmt.Errorf("playlist %q: remote playlist without URL", p.Name)
		}
		return fmt.Sprintf("mksafe(input.http(%s))", quote(p.RemoteURL)), nil
	}

	file := uniqueName("playlist_"+playlistFragment(p), seenFiles) + ".m3u"
	var list strings.Builder
	for _, item := range p.Items {
		list.WriteString(item.Path)
		list.WriteString("\n")
	}
	s.addFile(file, list.String())

	mode := "randomize"
	if p.Order == models.PlaylistOrderSequential {
		mode = "normal"
	}

	return fmt.Sprintf("playlist(id=%s, mode=%s, reload_mode=%s, %s)",
		quote(variable), quote(mode), quote("watch"), quote(filepath.Join(s.playlistsDir, file))), nil
}

func (w *Writer) createDefaultPlaylist(ctx context.Context, st *models.Station) (*models.Playlist, error) {
	p := &models.Playlist{
		StationID: st.ID,
		Name:      "default",
		IsEnabled: true,
		Source:    models.PlaylistSourceSongs,
		Order:     models.PlaylistOrderShuffle,
		Type:      models.PlaylistTypeDefault,
		Weight:    defaultPlaylistWeight,
	}
	if err := w.store.CreatePlaylist(ctx, p); err != nil {
		return nil, fmt.Errorf("auto-create default playlist: %w", err)
	}
	w.logger.Info().
		Uint("station_id", st.ID).
		Msg("station had no enabled default playlist, created one")
	return p, nil
}

func hasEnabledDefault(playlists []models.Playlist) bool {
	for _, p := range playlists {
		if p.IsEnabled && p.Type == models.PlaylistTypeDefault {
			return true
		}
	}
	return false
}

func playlistFragment(p models.Playlist) string {
	if f := SanitizeIdentifier(p.Name); f != "" {
		return f
	}
	return strconv.FormatUint(uint64(p.ID), 10)
}

// uniqueName deduplicates generated identifiers within one script by
// suffixing repeats with a counter.
func uniqueName(base string, seen map[string]int) string {
	seen[base]++
	if seen[base] == 1 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, seen[base])
}
