/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/skald/internal/db"
	"github.com/friendsincode/skald/internal/models"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import <seed.yml>",
	Short: "Import stations from a YAML seed file",
	Long:  "Create stations, playlists, mounts, relays and streamer accounts from a declarative YAML seed file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and validate the seed without writing to the database")
	rootCmd.AddCommand(importCmd)
}

type seedFile struct {
	Stations []seedStation `yaml:"stations"`
}

type seedStation struct {
	Name             string  `yaml:"name"`
	ShortName        string  `yaml:"short_name"`
	Description      string  `yaml:"description"`
	URL              string  `yaml:"url"`
	Frontend         string  `yaml:"frontend"`
	FrontendPort     int     `yaml:"frontend_port"`
	SourcePassword   string  `yaml:"source_password"`
	CrossfadeSeconds float64 `yaml:"crossfade_seconds"`
	DJBufferSeconds  int     `yaml:"dj_buffer_seconds"`
	Charset          string  `yaml:"charset"`
	ManualAutoDJ     bool    `yaml:"manual_autodj"`
	EnableStreamers  bool    `yaml:"enable_streamers"`

	Playlists []seedPlaylist `yaml:"playlists"`
	Mounts    []seedMount    `yaml:"mounts"`
	Remotes   []seedRemote   `yaml:"remotes"`
	Streamers []seedStreamer `yaml:"streamers"`
}

type seedPlaylist struct {
	Name           string   `yaml:"name"`
	Source         string   `yaml:"source"`
	Order          string   `yaml:"order"`
	Type           string   `yaml:"type"`
	RemoteURL      string   `yaml:"remote_url"`
	Weight         int      `yaml:"weight"`
	PlayPerSongs   int      `yaml:"play_per_songs"`
	PlayPerMinutes int      `yaml:"play_per_minutes"`
	ScheduleStart  int      `yaml:"schedule_start"`
	ScheduleEnd    int      `yaml:"schedule_end"`
	PlayOnceTime   int      `yaml:"play_once_time"`
	Tracks         []string `yaml:"tracks"`
}

type seedMount struct {
	Name         string `yaml:"name"`
	EnableAutoDJ bool   `yaml:"enable_autodj"`
	Format       string `yaml:"format"`
	Bitrate      int    `yaml:"bitrate"`
	IsPublic     bool   `yaml:"is_public"`
}

type seedRemote struct {
	Type           string `yaml:"type"`
	URL            string `yaml:"url"`
	Port           *int   `yaml:"port"`
	Mount          string `yaml:"mount"`
	SourceUsername string `yaml:"source_username"`
	SourcePassword string `yaml:"source_password"`
	EnableAutoDJ   bool   `yaml:"enable_autodj"`
	Format         string `yaml:"format"`
	Bitrate        int    `yaml:"bitrate"`
}

type seedStreamer struct {
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	DisplayName string `yaml:"display_name"`
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	if len(seed.Stations) == 0 {
		return fmt.Errorf("seed file contains no stations")
	}
	for _, st := range seed.Stations {
		if st.Name == "" || st.FrontendPort == 0 {
			return fmt.Errorf("station %q: name and frontend_port are required", st.Name)
		}
	}

	if importDryRun {
		fmt.Printf("seed valid: %d station(s)\n", len(seed.Stations))
		return nil
	}

	database, err := initDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(database) }()

	for _, s := range seed.Stations {
		st := models.Station{
			Name:             s.Name,
			ShortName:        s.ShortName,
			Description:      s.Description,
			URL:              s.URL,
			Frontend:         models.FrontendAdapter(s.Frontend),
			FrontendPort:     s.FrontendPort,
			SourcePassword:   s.SourcePassword,
			CrossfadeSeconds: s.CrossfadeSeconds,
			DJBufferSeconds:  s.DJBufferSeconds,
			Charset:          s.Charset,
			ManualAutoDJ:     s.ManualAutoDJ,
			EnableStreamers:  s.EnableStreamers,
		}
		if st.Frontend == "" {
			st.Frontend = models.FrontendIcecast
		}
		if err := database.Create(&st).Error; err != nil {
			return fmt.Errorf("create station %q: %w", s.Name, err)
		}

		for _, p := range s.Playlists {
			playlist := models.Playlist{
				StationID:         st.ID,
				Name:              p.Name,
				IsEnabled:         true,
				Source:            models.PlaylistSource(p.Source),
				Order:             models.PlaylistOrder(p.Order),
				Type:              models.PlaylistType(p.Type),
				RemoteURL:         p.RemoteURL,
				Weight:            p.Weight,
				PlayPerSongs:      p.PlayPerSongs,
				PlayPerMinutes:    p.PlayPerMinutes,
				ScheduleStartTime: p.ScheduleStart,
				ScheduleEndTime:   p.ScheduleEnd,
				PlayOnceTime:      p.PlayOnceTime,
			}
			if playlist.Source == "" {
				playlist.Source = models.PlaylistSourceSongs
			}
			if playlist.Order == "" {
				playlist.Order = models.PlaylistOrderShuffle
			}
			if playlist.Type == "" {
				playlist.Type = models.PlaylistTypeDefault
			}
			for i, track := range p.Tracks {
				playlist.Items = append(playlist.Items, models.PlaylistItem{Position: i, Path: track})
			}
			if err := database.Create(&playlist).Error; err != nil {
				return fmt.Errorf("create playlist %q: %w", p.Name, err)
			}
		}

		for _, m := range s.Mounts {
			mount := models.Mount{
				StationID:     st.ID,
				Name:          m.Name,
				EnableAutoDJ:  m.EnableAutoDJ,
				AutoDJFormat:  m.Format,
				AutoDJBitrate: m.Bitrate,
				IsPublic:      m.IsPublic,
			}
			if err := database.Create(&mount).Error; err != nil {
				return fmt.Errorf("create mount %q: %w", m.Name, err)
			}
		}

		for _, r := range s.Remotes {
			remote := models.Remote{
				StationID:      st.ID,
				Type:           models.RemoteAdapter(r.Type),
				URL:            r.URL,
				Port:           r.Port,
				Mount:          r.Mount,
				SourceUsername: r.SourceUsername,
				SourcePassword: r.SourcePassword,
				IsEnabled:      true,
				EnableAutoDJ:   r.EnableAutoDJ,
				AutoDJFormat:   r.Format,
				AutoDJBitrate:  r.Bitrate,
			}
			if err := database.Create(&remote).Error; err != nil {
				return fmt.Errorf("create remote %q: %w", r.URL, err)
			}
		}

		for _, dj := range s.Streamers {
			hash, err := bcrypt.GenerateFromPassword([]byte(dj.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password for streamer %q: %w", dj.Username, err)
			}
			streamer := models.Streamer{
				StationID:    st.ID,
				Username:     dj.Username,
				PasswordHash: string(hash),
				DisplayName:  dj.DisplayName,
				IsActive:     true,
			}
			if err := database.Create(&streamer).Error; err != nil {
				return fmt.Errorf("create streamer %q: %w", dj.Username, err)
			}
		}

		fmt.Printf("imported station %q (id %d)\n", st.Name, st.ID)
	}
	return nil
}
