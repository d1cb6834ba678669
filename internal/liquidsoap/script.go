/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package liquidsoap

import (
	"fmt"
	"strings"
)

// script is the shared buffer one generation pass writes into. Stages
// append lines in priority order; only the header stage may prepend.
// Playlist exports ride along as named files so the caller can install
// script and track lists in one atomic step.
type script struct {
	prefix       string
	radioVar     string
	configDir    string
	playlistsDir string

	blocks []string
	files  map[string]string
}

func newScript(prefix, configDir, playlistsDir string) *script {
	return &script{
		prefix:       prefix,
		radioVar:     prefix + "_radio",
		configDir:    configDir,
		playlistsDir: playlistsDir,
		files:        make(map[string]string),
	}
}

func (s *script) append(lines ...string) {
	s.blocks = append(s.blocks, lines...)
}

func (s *script) appendf(format string, args ...any) {
	s.blocks = append(s.blocks, fmt.Sprintf(format, args...))
}

func (s *script) prepend(lines ...string) {
	s.blocks = append(append([]string{}, lines...), s.blocks...)
}

func (s *script) addFile(name, contents string) {
	s.files[name] = contents
}

func (s *script) String() string {
	return strings.Join(s.blocks, "\n") + "\n"
}
