/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package liquidsoap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald/internal/telemetry"
)

// ErrConnect reports that the engine's control socket was unreachable,
// usually because the station's engine is not running.
var ErrConnect = errors.New("liquidsoap: control connection failed")

// ControlClient talks to a running engine over its line-based telnet
// server. Each command is a fresh connection: send the command, send
// quit, read everything until the server closes the socket.
type ControlClient struct {
	dialer  net.Dialer
	timeout time.Duration
	logger  zerolog.Logger
}

// NewControlClient creates a control client. A zero timeout defaults to
// 20 seconds.
func NewControlClient(timeout time.Duration, logger zerolog.Logger) *ControlClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ControlClient{
		timeout: timeout,
		logger:  logger.With().Str("component", "liquidsoap_control").Logger(),
	}
}

// Command runs one command against host:port and returns the response
// lines with protocol chatter ("END", "Bye!") filtered out.
func (c *ControlClient) Command(ctx context.Context, host string, port int, command string) ([]string, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := c.dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		telemetry.ControlCommandsTotal.WithLabelValues(commandVerb(command), "error").Inc()
		return nil, fmt.Errorf("%w: %s: %v", ErrConnect, addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	if _, err := fmt.Fprintf(conn, "%s\nquit\n", command); err != nil {
		telemetry.ControlCommandsTotal.WithLabelValues(commandVerb(command), "error").Inc()
		return nil, fmt.Errorf("write control command: %w", err)
	}

	var lines []string
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || line == "END" || line == "Bye!" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		telemetry.ControlCommandsTotal.WithLabelValues(commandVerb(command), "error").Inc()
		return nil, fmt.Errorf("read control response: %w", err)
	}

	telemetry.ControlCommandsTotal.WithLabelValues(commandVerb(command), "ok").Inc()
	c.logger.Debug().
		Str("addr", addr).
		Str("command", command).
		Int("response_lines", len(lines)).
		Msg("control command completed")
	return lines, nil
}

// commandVerb reduces a command to its metric label: the part after the
// last dot of the first word, so "foo_requests.push uri" becomes "push".
func commandVerb(command string) string {
	word, _, _ := strings.Cut(command, " ")
	if i := strings.LastIndexByte(word, '.'); i >= 0 {
		return word[i+1:]
	}
	return word
}
