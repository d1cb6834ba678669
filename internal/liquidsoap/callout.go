/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package liquidsoap

import (
	"fmt"
	"strings"
)

// Callout builds the external commands a generated script runs to reach
// the management API (next-song lookups, DJ auth, DJ state). All shell
// quoting is centralized here.
type Callout struct {
	baseURL string
}

// NewCallout creates a callout builder for the given API base URL.
func NewCallout(baseURL string) Callout {
	return Callout{baseURL: strings.TrimRight(baseURL, "/")}
}

func (c Callout) endpoint(stationID uint, leaf string) string {
	return fmt.Sprintf("%s/api/internal/%d/%s", c.baseURL, stationID, leaf)
}

// NextSong returns the command the AutoDJ request source runs to fetch
// the next track URI. The API answers with one line: a URI or "false".
func (c Callout) NextSong(stationID uint) string {
	return fmt.Sprintf("curl -s --request POST --url %s", shellQuote(c.endpoint(stationID, "nextsong")))
}

// DJAuth returns the harbor auth command. The #{user} and #{password}
// placeholders are interpolated by Liquidsoap at call time; the API
// answers "true" or "false".
func (c Callout) DJAuth(stationID uint) string {
	return fmt.Sprintf("curl -s --request POST --url %s --data-urlencode %s --data-urlencode %s",
		shellQuote(c.endpoint(stationID, "djauth")),
		shellQuote("dj_user=#{user}"),
		shellQuote("dj_password=#{password}"))
}

// DJOn returns the command run when a live DJ connects to the harbor.
func (c Callout) DJOn(stationID uint) string {
	return fmt.Sprintf("curl -s --request POST --url %s", shellQuote(c.endpoint(stationID, "djon")))
}

// DJOff returns the command run when the live DJ stream drops.
func (c Callout) DJOff(stationID uint) string {
	return fmt.Sprintf("curl -s --request POST --url %s", shellQuote(c.endpoint(stationID, "djoff")))
}

// shellQuote single-quotes an argument for the shell the engine spawns.
func shellQuote(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
