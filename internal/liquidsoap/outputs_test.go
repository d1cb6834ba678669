/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package liquidsoap

import (
	"context"
	"strings"
	"testing"

	"github.com/friendsincode/skald/internal/models"
)

func TestEncoderProfile(t *testing.T) {
	cases := []struct {
		format  string
		bitrate int
		want    string
	}{
		{"mp3", 128, "%mp3(samplerate=44100, stereo=true, bitrate=128)"},
		{"", 0, "%mp3(samplerate=44100, stereo=true, bitrate=128)"},
		{"aac", 64, "%fdkaac("},
		{"ogg", 192, "%vorbis.cbr(samplerate=44100, channels=2, bitrate=192)"},
		{"opus", 96, "%opus("},
		{"flac", 320, "%mp3(samplerate=44100, stereo=true, bitrate=320)"},
	}
	for _, c := range cases {
		got := encoderProfile(c.format, c.bitrate)
		if !strings.HasPrefix(got, c.want) {
			t.Errorf("encoderProfile(%q, %d) = %q, want prefix %q", c.format, c.bitrate, got, c.want)
		}
	}
}

func TestBuildOutputIcecast(t *testing.T) {
	out := BuildOutput(OutputParams{
		ID:       "test_local_1",
		Format:   "mp3",
		Bitrate:  128,
		Host:     "127.0.0.1",
		Port:     8000,
		Password: "hackme",
		Mount:    "/radio.mp3",
		Name:     "Test Radio",
		Public:   true,
		Charset:  "UTF-8",
	}, "test_radio")

	for _, want := range []string{
		`id="test_local_1"`,
		`host="127.0.0.1"`,
		"port=8000",
		`password="hackme"`,
		`mount="/radio.mp3"`,
		"public=true",
		`encoding="UTF-8"`,
		"fallible=true, test_radio)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
	if strings.Contains(out, `protocol="icy"`) {
		t.Error("icecast output must not use the ICY protocol")
	}
}

func TestBuildOutputShoutcast(t *testing.T) {
	out := BuildOutput(OutputParams{
		ID:        "test_remote_1",
		Format:    "mp3",
		Bitrate:   128,
		Host:      "relay.example.com",
		Port:      8010,
		Password:  "secret",
		Shoutcast: true,
	}, "test_radio")

	if !strings.Contains(out, `protocol="icy"`) {
		t.Errorf("shoutcast output missing ICY protocol: %s", out)
	}
	if strings.Contains(out, "mount=") {
		t.Errorf("shoutcast output must not carry a mount: %s", out)
	}
}

func TestWriteRemoteOutputs(t *testing.T) {
	port := 9000
	store := testStore()
	store.remotes = []models.Remote{
		{
			ID: 1, StationID: 1, Type: models.RemoteIcecast,
			URL: "http://relay.example.com:8010/stream", Mount: "/relay.mp3",
			SourceUsername: "source", SourcePassword: "pw",
			IsEnabled: true, EnableAutoDJ: true, AutoDJFormat: "mp3", AutoDJBitrate: 128,
		},
		{
			ID: 2, StationID: 1, Type: models.RemoteShoutcast2,
			URL: "relay2.example.com", Port: &port, Mount: "/#2",
			SourcePassword: "pw2",
			IsEnabled:      true, EnableAutoDJ: true, AutoDJFormat: "aac", AutoDJBitrate: 64,
		},
		{
			ID: 3, StationID: 1, Type: models.RemoteIcecast,
			URL:       "http://off.example.com", Mount: "/off",
			IsEnabled: true, EnableAutoDJ: false,
		},
	}

	w := testWriter(store, t.TempDir())
	art, err := w.Generate(context.Background(), testStation())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, want := range []string{
		`id="test_remote_1"`,
		`host="relay.example.com"`,
		"port=8010",
		`mount="/relay.mp3"`,
		`user="source"`,
		`id="test_remote_2"`,
		`host="relay2.example.com"`,
		"port=9000",
		`password="pw2:#2"`,
	} {
		if !strings.Contains(art.Script, want) {
			t.Errorf("script missing %q", want)
		}
	}
	if strings.Contains(art.Script, "off.example.com") {
		t.Error("relay without AutoDJ must not be emitted")
	}
}

func TestSplitHostPort(t *testing.T) {
	cases := []struct {
		in       string
		wantHost string
		wantPort int
	}{
		{"http://relay.example.com:8010/stream", "relay.example.com", 8010},
		{"relay.example.com", "relay.example.com", 0},
		{"relay.example.com:9000", "relay.example.com", 9000},
		{"https://relay.example.com/", "relay.example.com", 0},
	}
	for _, c := range cases {
		host, port := splitHostPort(c.in)
		if host != c.wantHost || port != c.wantPort {
			t.Errorf("splitHostPort(%q) = (%q, %d), want (%q, %d)", c.in, host, port, c.wantHost, c.wantPort)
		}
	}
}
