/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package liquidsoap

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/skald/internal/models"
)

var identifierPattern = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// SanitizeIdentifier reduces a name to a Liquidsoap-safe identifier
// fragment: lowercase, underscores for anything non-alphanumeric, never
// starting with a digit. Returns "" when nothing usable remains.
func SanitizeIdentifier(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = identifierPattern.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}

// VariablePrefix returns the station's deterministic script variable
// prefix. Every variable, server command and output id in a generated
// script is namespaced under it, so it must be stable across runs.
func VariablePrefix(st *models.Station) string {
	if p := SanitizeIdentifier(st.ShortName); p != "" {
		return p
	}
	return fmt.Sprintf("station_%d", st.ID)
}

// ToFloat renders a float the way Liquidsoap expects: integral values get
// a bare trailing decimal point, everything else two fixed decimals.
func ToFloat(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64) + "."
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// quote renders a double-quoted Liquidsoap string literal.
func quote(s string) string {
	return strconv.Quote(s)
}

var metadataCleaner = strings.NewReplacer(`"`, "", "'", "", "\n", " ", "\r", "")

// cleanMetadata strips quotes and newlines from user-supplied strings
// before they are embedded in output expressions.
func cleanMetadata(s string) string {
	return strings.TrimSpace(metadataCleaner.Replace(s))
}

// OffsetDelta returns the whole-hour difference between the host zone
// offset at now and the schedule baseline offset.
func OffsetDelta(now time.Time, baselineHours int) int {
	_, secs := now.Zone()
	return secs/3600 - baselineHours
}

// formatTimeCode converts an integer HHMM schedule code to a Liquidsoap
// time-of-day expression, shifting the hour by deltaHours and wrapping
// into [0,24).
func formatTimeCode(code, deltaHours int) string {
	hours := code/100 + deltaHours
	minutes := code % 100

	hours %= 24
	if hours < 0 {
		hours += 24
	}

	return fmt.Sprintf("%dh%dm", hours, minutes)
}

// timeRangePredicate renders the predicate for a scheduled playlist window.
func timeRangePredicate(startCode, endCode, deltaHours int) string {
	return fmt.Sprintf("%s-%s", formatTimeCode(startCode, deltaHours), formatTimeCode(endCode, deltaHours))
}
