/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package liquidsoap

import (
	"context"
	"fmt"

	"github.com/friendsincode/skald/internal/models"
)

// writeHarbor emits the live DJ input and splices it above the AutoDJ
// stream. The live override is an interactive boolean flipped by the
// connect/disconnect callouts and toggleable over telnet, so operators
// can force the station back to AutoDJ without kicking the DJ.
func (w *Writer) writeHarbor(_ context.Context, s *script, st *models.Station) error {
	if !st.EnableStreamers {
		return nil
	}

	buffer := st.DJBufferSeconds
	if buffer < 1 {
		buffer = 5
	}

	liveVar := s.prefix + "_live"
	liveEnabled := s.prefix + "_live_enabled"

	s.append(
		"",
		fmt.Sprintf("%s = interactive.bool(%s, false)", liveEnabled, quote(liveEnabled)),
		"",
		fmt.Sprintf("def %s_dj_auth(user, password) =", s.prefix),
		fmt.Sprintf(`  ret = list.hd(default="false", get_process_lines(%s))`, quote(w.callout.DJAuth(st.ID))),
		"  bool_of_string(ret)",
		"end",
		"",
		fmt.Sprintf("def %s_dj_connect(headers) =", s.prefix),
		fmt.Sprintf("  %s := true", liveEnabled),
		fmt.Sprintf("  ignore(get_process_lines(%s))", quote(w.callout.DJOn(st.ID))),
		"end",
		"",
		fmt.Sprintf("def %s_dj_disconnect() =", s.prefix),
		fmt.Sprintf("  %s := false", liveEnabled),
		fmt.Sprintf("  ignore(get_process_lines(%s))", quote(w.callout.DJOff(st.ID))),
		"end",
		"",
	)

	s.appendf("%s = audio_to_stereo(input.harbor(%s, id=%s, port=%d, auth=%s_dj_auth, icy=true, max=30., buffer=%s, on_connect=%s_dj_connect, on_disconnect=%s_dj_disconnect))",
		liveVar, quote("/"), quote(liveVar), st.HarborPort(),
		s.prefix, ToFloat(float64(buffer)), s.prefix, s.prefix)

	s.append(
		"",
		fmt.Sprintf("%s = switch(id=%s, track_sensitive=false, [({!%s}, %s), ({true}, %s)])",
			s.radioVar, quote(s.prefix+"_live_switch"), liveEnabled, liveVar, s.radioVar),
	)

	return nil
}
