/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package liquidsoap

import (
	"testing"
	"time"

	"github.com/friendsincode/skald/internal/models"
)

func TestToFloat(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{2, "2."},
		{3.0, "3."},
		{0, "0."},
		{2.5, "2.50"},
		{1.25, "1.25"},
		{-4, "-4."},
	}
	for _, c := range cases {
		if got := ToFloat(c.in); got != c.want {
			t.Errorf("ToFloat(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"My Station!", "my_station"},
		{"  WXYZ-FM  ", "wxyz_fm"},
		{"9lives", "_9lives"},
		{"___", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := SanitizeIdentifier(c.in); got != c.want {
			t.Errorf("SanitizeIdentifier(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestVariablePrefixFallsBackToStationID(t *testing.T) {
	st := &models.Station{ID: 7, ShortName: "!!!"}
	if got := VariablePrefix(st); got != "station_7" {
		t.Errorf("VariablePrefix = %q, want station_7", got)
	}

	st = &models.Station{ID: 7, ShortName: "Night Owl"}
	if got := VariablePrefix(st); got != "night_owl" {
		t.Errorf("VariablePrefix = %q, want night_owl", got)
	}
}

func TestFormatTimeCode(t *testing.T) {
	cases := []struct {
		code  int
		delta int
		want  string
	}{
		{0, 0, "0h0m"},
		{2330, 0, "23h30m"},
		{2300, 2, "1h0m"},
		{100, -2, "23h0m"},
		{1215, 0, "12h15m"},
	}
	for _, c := range cases {
		if got := formatTimeCode(c.code, c.delta); got != c.want {
			t.Errorf("formatTimeCode(%d, %d) = %q, want %q", c.code, c.delta, got, c.want)
		}
	}
}

func TestTimeRangePredicate(t *testing.T) {
	if got := timeRangePredicate(2200, 600, 0); got != "22h0m-6h0m" {
		t.Errorf("timeRangePredicate = %q, want 22h0m-6h0m", got)
	}
}

func TestOffsetDelta(t *testing.T) {
	utc := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	if got := OffsetDelta(utc, 0); got != 0 {
		t.Errorf("OffsetDelta(utc, 0) = %d, want 0", got)
	}
	if got := OffsetDelta(utc, -5); got != 5 {
		t.Errorf("OffsetDelta(utc, -5) = %d, want 5", got)
	}

	east := time.Date(2026, 8, 25, 12, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	if got := OffsetDelta(east, 0); got != 3 {
		t.Errorf("OffsetDelta(utc+3, 0) = %d, want 3", got)
	}
}

func TestCleanMetadata(t *testing.T) {
	if got := cleanMetadata("Rock \"n\" Roll\nRadio"); got != "Rock n Roll Radio" {
		t.Errorf("cleanMetadata = %q", got)
	}
}
