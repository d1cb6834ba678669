/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/friendsincode/skald/internal/db"
	"github.com/friendsincode/skald/internal/liquidsoap"
	"github.com/friendsincode/skald/internal/models"
	"github.com/friendsincode/skald/internal/station"
)

var requestCmd = &cobra.Command{
	Use:   "request <station-id> <uri>",
	Short: "Queue a track request on a station",
	Args:  cobra.ExactArgs(2),
	RunE:  runRequest,
}

var skipCmd = &cobra.Command{
	Use:   "skip <station-id>",
	Short: "Skip the station's currently playing track",
	Args:  cobra.ExactArgs(1),
	RunE:  runSkip,
}

var liveCmd = &cobra.Command{
	Use:   "live <station-id> <on|off>",
	Short: "Toggle the station's live DJ override",
	Args:  cobra.ExactArgs(2),
	RunE:  runLive,
}

func init() {
	rootCmd.AddCommand(requestCmd, skipCmd, liveCmd)
}

func controlStation(ctx context.Context, arg string) (*models.Station, *liquidsoap.Controller, func(), error) {
	if err := loadConfig(); err != nil {
		return nil, nil, nil, err
	}
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid station id %q", arg)
	}

	database, err := initDatabase()
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() { _ = db.Close(database) }

	store := station.NewStore(database, logger)
	st, err := store.Station(ctx, uint(id))
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	client := liquidsoap.NewControlClient(cfg.ControlTimeout, logger)
	return st, liquidsoap.NewController(client, cfg.ControlHost), cleanup, nil
}

func runRequest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, ctl, cleanup, err := controlStation(ctx, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	ack, err := ctl.EnqueueRequest(ctx, st, args[1])
	if err != nil {
		if errors.Is(err, liquidsoap.ErrRequestPending) {
			return fmt.Errorf("station %d already has a pending request", st.ID)
		}
		return err
	}
	fmt.Printf("queued %s on station %d\n", args[1], st.ID)
	for _, line := range ack {
		fmt.Println(line)
	}
	return nil
}

func runSkip(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, ctl, cleanup, err := controlStation(ctx, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	if err := ctl.Skip(ctx, st); err != nil {
		return err
	}
	fmt.Printf("skipped current track on station %d\n", st.ID)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var live bool
	switch args[1] {
	case "on":
		live = true
	case "off":
		live = false
	default:
		return fmt.Errorf("live state must be on or off, got %q", args[1])
	}

	st, ctl, cleanup, err := controlStation(ctx, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	if err := ctl.SetLive(ctx, st, live); err != nil {
		return err
	}
	fmt.Printf("live override on station %d set to %s\n", st.ID, args[1])
	return nil
}
