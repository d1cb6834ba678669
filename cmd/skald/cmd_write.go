/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/skald/internal/db"
	"github.com/friendsincode/skald/internal/liquidsoap"
	"github.com/friendsincode/skald/internal/station"
)

var (
	writeStationID uint
	writeAll       bool
	writeDryRun    bool
)

var writeConfigCmd = &cobra.Command{
	Use:   "write-config",
	Short: "Generate and install station configuration",
	Long:  "Generate the Liquidsoap configuration for one station (or all stations) and install it atomically",
	RunE:  runWriteConfig,
}

func init() {
	writeConfigCmd.Flags().UintVar(&writeStationID, "station", 0, "station ID to write (0 with --all writes every station)")
	writeConfigCmd.Flags().BoolVar(&writeAll, "all", false, "write configuration for all stations")
	writeConfigCmd.Flags().BoolVar(&writeDryRun, "dry-run", false, "print the generated script instead of installing it")
	rootCmd.AddCommand(writeConfigCmd)
}

func runWriteConfig(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if writeStationID == 0 && !writeAll {
		return fmt.Errorf("either --station or --all is required")
	}

	database, err := initDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(database) }()

	store := station.NewStore(database, logger)
	writer := liquidsoap.NewWriter(store, liquidsoap.Config{
		StationsDir:         cfg.StationsDir,
		APIBaseURL:          cfg.APIBaseURL,
		BroadcastHost:       cfg.BroadcastHost,
		BaselineOffsetHours: cfg.ScheduleBaselineOffset,
	}, logger)

	ctx := context.Background()

	var stations []uint
	if writeAll {
		all, err := store.Stations(ctx)
		if err != nil {
			return err
		}
		for _, st := range all {
			stations = append(stations, st.ID)
		}
	} else {
		stations = []uint{writeStationID}
	}

	for _, id := range stations {
		st, err := store.Station(ctx, id)
		if err != nil {
			return fmt.Errorf("station %d: %w", id, err)
		}

		if writeDryRun {
			art, err := writer.Generate(ctx, st)
			if err != nil {
				return fmt.Errorf("station %d: %w", id, err)
			}
			fmt.Print(art.Script)
			continue
		}

		art, err := writer.Install(ctx, st)
		if err != nil {
			return fmt.Errorf("station %d: %w", id, err)
		}
		fmt.Printf("station %d: installed %s (%d playlist files)\n", id, art.ScriptPath, len(art.PlaylistFiles))
	}
	return nil
}
