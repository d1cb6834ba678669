/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package liquidsoap

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/friendsincode/skald/internal/models"
)

// encoderProfile renders the encoder expression for a format name and
// bitrate. Unknown formats fall back to MP3.
func encoderProfile(format string, bitrate int) string {
	if bitrate < 32 {
		bitrate = 128
	}
	switch strings.ToLower(format) {
	case "aac":
		return fmt.Sprintf("%%fdkaac(channels=2, samplerate=44100, bitrate=%d, afterburner=false, aot=\"mpeg4_he_aac_v2\", transmux=\"adts\", sbr_mode=true)", bitrate)
	case "ogg", "vorbis":
		return fmt.Sprintf("%%vorbis.cbr(samplerate=44100, channels=2, bitrate=%d)", bitrate)
	case "opus":
		return fmt.Sprintf("%%opus(samplerate=48000, bitrate=%d, vbr=\"none\", application=\"audio\", channels=2, signal=\"music\", complexity=10, max_bandwidth=\"full_band\")", bitrate)
	default:
		return fmt.Sprintf("%%mp3(samplerate=44100, stereo=true, bitrate=%d)", bitrate)
	}
}

// OutputParams describes one output.icecast sink.
type OutputParams struct {
	ID       string
	Format   string
	Bitrate  int
	Host     string
	Port     int
	Username string
	Password string
	Mount    string
	Name     string
	Genre    string
	URL      string
	Public   bool
	Charset  string

	// Shoutcast v1 servers take no mount and speak the legacy ICY
	// source protocol.
	Shoutcast bool
}

// BuildOutput renders an output.icecast expression feeding sourceVar.
func BuildOutput(p OutputParams, sourceVar string) string {
	args := []string{
		encoderProfile(p.Format, p.Bitrate),
		"id=" + quote(p.ID),
		"host=" + quote(p.Host),
		"port=" + strconv.Itoa(p.Port),
		"password=" + quote(p.Password),
	}
	if p.Username != "" {
		args = append(args, "user="+quote(p.Username))
	}
	if p.Shoutcast {
		args = append(args, `protocol="icy"`)
	} else {
		args = append(args, "mount="+quote(p.Mount))
	}
	args = append(args,
		"name="+quote(cleanMetadata(p.Name)),
		"genre="+quote(cleanMetadata(p.Genre)),
		"url="+quote(cleanMetadata(p.URL)),
		"public="+strconv.FormatBool(p.Public),
	)
	if p.Charset != "" {
		args = append(args, "encoding="+quote(p.Charset))
	}
	args = append(args, "fallible=true", sourceVar)

	return fmt.Sprintf("output.icecast(%s)", strings.Join(args, ", "))
}

// writeLocalOutputs emits one sink per AutoDJ-enabled mount on the
// station's own frontend. Ids are numbered in mount order so the first
// one, <prefix>_local_1, is the stable skip target for remote control.
func (w *Writer) writeLocalOutputs(ctx context.Context, s *script, st *models.Station) error {
	mounts, err := w.store.Mounts(ctx, st.ID)
	if err != nil {
		return err
	}

	s.append("")
	n := 0
	for _, m := range mounts {
		if !m.EnableAutoDJ {
			continue
		}
		n++
		s.append(BuildOutput(OutputParams{
			ID:        fmt.Sprintf("%s_local_%d", s.prefix, n),
			Format:    m.AutoDJFormat,
			Bitrate:   m.AutoDJBitrate,
			Host:      w.cfg.BroadcastHost,
			Port:      st.FrontendPort,
			Password:  st.SourcePassword,
			Mount:     m.Name,
			Name:      st.Name,
			Genre:     st.Description,
			URL:       st.URL,
			Public:    m.IsPublic,
			Charset:   st.Charset,
			Shoutcast: st.Frontend == models.FrontendShoutcast,
		}, s.radioVar))
	}

	if n == 0 {
		w.logger.Warn().
			Uint("station_id", st.ID).
			Msg("no AutoDJ-enabled mounts, station has no local outputs")
	}
	return nil
}

// writeRemoteOutputs emits one sink per enabled AutoDJ relay.
func (w *Writer) writeRemoteOutputs(ctx context.Context, s *script, st *models.Station) error {
	remotes, err := w.store.Remotes(ctx, st.ID)
	if err != nil {
		return err
	}

	n := 0
	for _, r := range remotes {
		if !r.IsEnabled || !r.EnableAutoDJ {
			continue
		}
		n++

		host, urlPort := splitHostPort(r.URL)
		port := 8000
		if r.Port != nil && *r.Port > 0 {
			port = *r.Port
		} else if urlPort > 0 {
			port = urlPort
		}

		p := OutputParams{
			ID:       fmt.Sprintf("%s_remote_%d", s.prefix, n),
			Format:   r.AutoDJFormat,
			Bitrate:  r.AutoDJBitrate,
			Host:     host,
			Port:     port,
			Username: r.SourceUsername,
			Password: r.SourcePassword,
			Mount:    r.Mount,
			Name:     st.Name,
			Genre:    st.Description,
			URL:      st.URL,
			Public:   false,
			Charset:  st.Charset,
		}

		switch r.Type {
		case models.RemoteShoutcast1:
			p.Shoutcast = true
			p.Mount = ""
		case models.RemoteShoutcast2:
			// Shoutcast v2 selects the stream by a password suffix, not
			// a mount. The mount field holds "/#<sid>" or a bare sid.
			p.Shoutcast = true
			if sid := strings.TrimLeft(r.Mount, "/#"); sid != "" {
				p.Password += ":#" + sid
			}
			p.Mount = ""
		}

		s.append(BuildOutput(p, s.radioVar))
	}
	return nil
}

// splitHostPort extracts host and optional port from a relay URL that
// may carry a scheme and path.
func splitHostPort(raw string) (string, int) {
	s := raw
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	host, portStr, found := strings.Cut(s, ":")
	if !found {
		return s, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
