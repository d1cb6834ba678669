/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package liquidsoap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/friendsincode/skald/internal/models"
)

// ErrRequestPending reports that the manual queue already holds an
// unplayed request; the caller should retry once it drains.
var ErrRequestPending = errors.New("liquidsoap: a request is already pending")

// Controller issues station-level commands against a running engine.
type Controller struct {
	client *ControlClient
	host   string
}

// NewController wraps a control client with the host the engines listen
// on (localhost outside Docker, the stations service inside).
func NewController(client *ControlClient, host string) *Controller {
	return &Controller{client: client, host: host}
}

func (c *Controller) command(ctx context.Context, st *models.Station, command string) ([]string, error) {
	return c.client.Command(ctx, c.host, st.ControlPort(), command)
}

// EnqueueRequest pushes a track URI onto the station's manual request
// queue and returns the engine's acknowledgment lines. Only one request
// may be pending at a time.
func (c *Controller) EnqueueRequest(ctx context.Context, st *models.Station, uri string) ([]string, error) {
	prefix := VariablePrefix(st)

	queued, err := c.command(ctx, st, prefix+"_requests.queue")
	if err != nil {
		return nil, err
	}
	for _, line := range queued {
		if strings.TrimSpace(line) != "" {
			return nil, ErrRequestPending
		}
	}

	return c.command(ctx, st, fmt.Sprintf("%s_requests.push %s", prefix, uri))
}

// Skip advances the station's first local output to the next track.
func (c *Controller) Skip(ctx context.Context, st *models.Station) error {
	_, err := c.command(ctx, st, fmt.Sprintf("%s_local_1.skip", VariablePrefix(st)))
	return err
}

// SetLive flips the live override: false sends the stream back to the
// AutoDJ even while a DJ is still connected to the harbor.
func (c *Controller) SetLive(ctx context.Context, st *models.Station, live bool) error {
	_, err := c.command(ctx, st, fmt.Sprintf("var.set %s_live_enabled = %t", VariablePrefix(st), live))
	return err
}
