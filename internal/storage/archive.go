/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ConfigArchive keeps a revision history of generated configuration
// scripts in object storage, one object per write.
type ConfigArchive struct {
	store  ObjectStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewConfigArchive creates an archive on top of store.
func NewConfigArchive(store ObjectStore, logger zerolog.Logger) *ConfigArchive {
	return &ConfigArchive{
		store:  store,
		logger: logger.With().Str("component", "config_archive").Logger(),
		now:    time.Now,
	}
}

// Save stores one script revision for the station prefix and returns
// the object key.
func (a *ConfigArchive) Save(ctx context.Context, prefix, script string) (string, error) {
	key := fmt.Sprintf("configs/%s/%s.liq", prefix, a.now().UTC().Format("20060102T150405Z"))
	if err := a.store.Put(ctx, key, []byte(script)); err != nil {
		return "", fmt.Errorf("archive config for %s: %w", prefix, err)
	}
	a.logger.Debug().Str("key", key).Msg("config revision archived")
	return key, nil
}

// Revisions lists the archived revision keys for a station prefix,
// oldest first.
func (a *ConfigArchive) Revisions(ctx context.Context, prefix string) ([]string, error) {
	return a.store.List(ctx, "configs/"+prefix+"/")
}

// Fetch returns one archived revision by key.
func (a *ConfigArchive) Fetch(ctx context.Context, key string) (string, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
