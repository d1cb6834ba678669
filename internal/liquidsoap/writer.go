/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package liquidsoap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald/internal/models"
	"github.com/friendsincode/skald/internal/telemetry"
)

// ScriptFileName is the engine entry point inside a station's config dir.
const ScriptFileName = "liquidsoap.liq"

// EntityStore provides the station's broadcast entities in stable order
// and persists the auto-created default playlist.
type EntityStore interface {
	Playlists(ctx context.Context, stationID uint) ([]models.Playlist, error)
	CreatePlaylist(ctx context.Context, p *models.Playlist) error
	Mounts(ctx context.Context, stationID uint) ([]models.Mount, error)
	Remotes(ctx context.Context, stationID uint) ([]models.Remote, error)
}

// Config carries the generation-time settings injected into the writer.
type Config struct {
	// StationsDir is the root under which per-station config and
	// playlist directories live.
	StationsDir string

	// APIBaseURL is where generated scripts call back for next-song
	// lookups and DJ auth.
	APIBaseURL string

	// BroadcastHost is the host local mount outputs connect to.
	BroadcastHost string

	// BaselineOffsetHours is the UTC offset the stored schedule times
	// are relative to.
	BaselineOffsetHours int
}

// Artifact is the product of one generation pass: the script text plus
// the per-playlist track list files it references.
type Artifact struct {
	Script        string
	PlaylistFiles map[string]string
	ScriptPath    string
}

// Writer assembles Liquidsoap configuration scripts. Generation runs a
// fixed, priority-ordered stage list over one shared buffer; any stage
// error aborts the pass and leaves the installed script untouched.
type Writer struct {
	store   EntityStore
	cfg     Config
	callout Callout
	logger  zerolog.Logger
	now     func() time.Time

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// NewWriter creates a configuration writer.
func NewWriter(store EntityStore, cfg Config, logger zerolog.Logger) *Writer {
	return &Writer{
		store:   store,
		cfg:     cfg,
		callout: NewCallout(cfg.APIBaseURL),
		logger:  logger.With().Str("component", "liquidsoap_writer").Logger(),
		now:     time.Now,
		locks:   make(map[uint]*sync.Mutex),
	}
}

type stage struct {
	name string
	fn   func(ctx context.Context, s *script, st *models.Station) error
}

func (w *Writer) stages() []stage {
	return []stage{
		{"header", w.writeHeader},
		{"playlists", w.writePlaylists},
		{"harbor", w.writeHarbor},
		{"custom", w.writeCustomConfig},
		{"local_outputs", w.writeLocalOutputs},
		{"remote_outputs", w.writeRemoteOutputs},
	}
}

// stationLock serializes generation per station.
func (w *Writer) stationLock(stationID uint) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	lock, ok := w.locks[stationID]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[stationID] = lock
	}
	return lock
}

// BaseDir returns the station's filesystem root.
func (w *Writer) BaseDir(st *models.Station) string {
	if st.RadioBaseDir != "" {
		return st.RadioBaseDir
	}
	return filepath.Join(w.cfg.StationsDir, VariablePrefix(st))
}

// ScriptPath returns where the station's generated script is installed.
func (w *Writer) ScriptPath(st *models.Station) string {
	return filepath.Join(w.BaseDir(st), "config", ScriptFileName)
}

// PlaylistsDir returns the station's track list export directory.
func (w *Writer) PlaylistsDir(st *models.Station) string {
	return filepath.Join(w.BaseDir(st), "playlists")
}

// Generate runs the stage list and returns the assembled artifact
// without touching the filesystem.
func (w *Writer) Generate(ctx context.Context, st *models.Station) (*Artifact, error) {
	lock := w.stationLock(st.ID)
	lock.Lock()
	defer lock.Unlock()
	return w.generate(ctx, st)
}

func (w *Writer) generate(ctx context.Context, st *models.Station) (*Artifact, error) {
	start := w.now()
	s := newScript(VariablePrefix(st), filepath.Join(w.BaseDir(st), "config"), w.PlaylistsDir(st))

	for _, stg := range w.stages() {
		if err := stg.fn(ctx, s, st); err != nil {
			telemetry.ConfigWritesTotal.WithLabelValues(s.prefix, "error").Inc()
			return nil, fmt.Errorf("stage %s: %w", stg.name, err)
		}
	}

	telemetry.ConfigWritesTotal.WithLabelValues(s.prefix, "ok").Inc()
	telemetry.ConfigWriteDuration.Observe(w.now().Sub(start).Seconds())

	w.logger.Debug().
		Uint("station_id", st.ID).
		Str("prefix", s.prefix).
		Int("lines", len(s.blocks)).
		Int("playlist_files", len(s.files)).
		Msg("script assembled")

	return &Artifact{
		Script:        s.String(),
		PlaylistFiles: s.files,
		ScriptPath:    w.ScriptPath(st),
	}, nil
}

// Install generates the station's script and installs it atomically:
// playlist exports are staged into a temporary directory and swapped in
// (stale lists from removed playlists do not survive), then the script
// is written to a temp path and renamed over the previous one. A failed
// pass leaves the previously installed files untouched.
func (w *Writer) Install(ctx context.Context, st *models.Station) (*Artifact, error) {
	ctx, span := telemetry.Tracer("liquidsoap").Start(ctx, "config.install")
	defer span.End()

	lock := w.stationLock(st.ID)
	lock.Lock()
	defer lock.Unlock()

	art, err := w.generate(ctx, st)
	if err != nil {
		return nil, err
	}

	if err := w.installPlaylists(st, art); err != nil {
		return nil, err
	}
	if err := w.installScript(st, art); err != nil {
		return nil, err
	}

	w.logger.Info().
		Uint("station_id", st.ID).
		Str("path", art.ScriptPath).
		Msg("configuration installed")

	return art, nil
}

func (w *Writer) installPlaylists(st *models.Station, art *Artifact) (err error) {
	dir := w.PlaylistsDir(st)
	staging := dir + ".tmp"

	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("clear playlist staging dir: %w", err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("create playlist staging dir: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(staging)
		}
	}()

	for name, contents := range art.PlaylistFiles {
		if err = os.WriteFile(filepath.Join(staging, name), []byte(contents), 0o644); err != nil {
			return fmt.Errorf("write playlist export %s: %w", name, err)
		}
	}

	if err = os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear playlist dir: %w", err)
	}
	if err = os.Rename(staging, dir); err != nil {
		return fmt.Errorf("install playlist dir: %w", err)
	}
	return nil
}

func (w *Writer) installScript(st *models.Station, art *Artifact) error {
	if err := os.MkdirAll(filepath.Dir(art.ScriptPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp := art.ScriptPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(art.Script), 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write script: %w", err)
	}
	if err := os.Rename(tmp, art.ScriptPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("install script: %w", err)
	}
	return nil
}

// writeHeader emits runtime options. It is the only stage allowed to
// prepend, so it runs first and everything later stays below it.
func (w *Writer) writeHeader(_ context.Context, s *script, st *models.Station) error {
	s.prepend(
		"# Generated by Skald. Do not edit: this file is overwritten on every configuration write.",
		"",
		`set("init.daemon", false)`,
		fmt.Sprintf(`set("init.daemon.pidfile.path", %s)`, quote(filepath.Join(s.configDir, "liquidsoap.pid"))),
		`set("log.stdout", true)`,
		`set("log.file", false)`,
		`set("server.telnet", true)`,
		`set("server.telnet.bind_addr", "0.0.0.0")`,
		fmt.Sprintf(`set("server.telnet.port", %d)`, st.ControlPort()),
		`set("harbor.bind_addr", "0.0.0.0")`,
		"",
	)
	return nil
}

// writeCustomConfig applies the crossfade and amplify filters and then
// passes any user-supplied configuration fragment through verbatim.
func (w *Writer) writeCustomConfig(_ context.Context, s *script, st *models.Station) error {
	s.append("")

	if st.CrossfadeSeconds > 0 {
		cf := ToFloat(st.CrossfadeSeconds)
		s.appendf("%s = crossfade(start_next=%s, fade_out=%s, fade_in=%s, %s)",
			s.radioVar, cf, cf, cf, s.radioVar)
	}

	s.appendf(`%s = amplify(1., override="replaygain_track_gain", %s)`, s.radioVar, s.radioVar)

	if st.CustomConfig != "" {
		// Passed through unvalidated; a malformed fragment fails at
		// engine load, not here.
		s.append("", "# Custom configuration", st.CustomConfig)
	}
	return nil
}
