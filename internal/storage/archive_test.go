/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Put(_ context.Context, key string, data []byte) error {
	m.objects[key] = data
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (m *memStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func TestConfigArchiveSaveAndFetch(t *testing.T) {
	store := newMemStore()
	archive := NewConfigArchive(store, zerolog.Nop())
	archive.now = func() time.Time {
		return time.Date(2026, 8, 25, 15, 4, 5, 0, time.UTC)
	}

	key, err := archive.Save(context.Background(), "test", "# script\n")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if key != "configs/test/20260825T150405Z.liq" {
		t.Errorf("key = %q", key)
	}

	script, err := archive.Fetch(context.Background(), key)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if script != "# script\n" {
		t.Errorf("script = %q", script)
	}

	keys, err := archive.Revisions(context.Background(), "test")
	if err != nil {
		t.Fatalf("Revisions: %v", err)
	}
	if len(keys) != 1 || keys[0] != key {
		t.Errorf("revisions = %v", keys)
	}
}
