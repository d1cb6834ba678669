/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package logbuffer provides an in-memory ring buffer for capturing logs.
package logbuffer

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Entry is one captured log line.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Buffer is a thread-safe ring buffer for log entries. It implements
// io.Writer so it can sit behind zerolog as an additional sink.
type Buffer struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	head     int
	count    int
}

// New creates a buffer holding up to capacity entries.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 10000
	}
	return &Buffer{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Write parses one zerolog JSON line into an entry. Lines that are not
// valid JSON are kept with the raw text as the message.
func (b *Buffer) Write(p []byte) (int, error) {
	entry := Entry{Timestamp: time.Now()}

	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		entry.Message = strings.TrimSpace(string(p))
	} else {
		fields := make(map[string]any)
		for key, value := range raw {
			switch key {
			case "level":
				entry.Level, _ = value.(string)
			case "message":
				entry.Message, _ = value.(string)
			case "component":
				entry.Component, _ = value.(string)
			case "time":
				if ts, ok := value.(float64); ok {
					entry.Timestamp = time.Unix(int64(ts), 0)
				}
			default:
				fields[key] = value
			}
		}
		if len(fields) > 0 {
			entry.Fields = fields
		}
	}

	b.add(entry)
	return len(p), nil
}

func (b *Buffer) add(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.capacity
	if b.count < b.capacity {
		b.count++
	}
}

// Query filters the captured entries.
type Query struct {
	Level     string
	Component string
	Limit     int
}

// Entries returns entries matching q in chronological order.
func (b *Buffer) Entries(q Query) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := 0
	if b.count == b.capacity {
		start = b.head
	}

	out := make([]Entry, 0, b.count)
	for i := 0; i < b.count; i++ {
		entry := b.entries[(start+i)%b.capacity]
		if q.Level != "" && entry.Level != q.Level {
			continue
		}
		if q.Component != "" && entry.Component != q.Component {
			continue
		}
		out = append(out, entry)
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out
}

// Len returns the number of captured entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}
