/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package liquidsoap

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald/internal/models"
)

// fakeEngine answers one telnet session per accepted connection using a
// canned command-to-response table.
type fakeEngine struct {
	listener  net.Listener
	responses map[string][]string

	mu       sync.Mutex
	commands []string
}

func newFakeEngine(t *testing.T, responses map[string][]string) *fakeEngine {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeEngine{listener: ln, responses: responses}
	t.Cleanup(func() { _ = ln.Close() })
	go f.serve()
	return f
}

func (f *fakeEngine) serve() {
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeEngine) handle(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		cmd := scanner.Text()
		if cmd == "quit" {
			_, _ = conn.Write([]byte("Bye!\r\n"))
			return
		}
		f.mu.Lock()
		f.commands = append(f.commands, cmd)
		f.mu.Unlock()
		for _, line := range f.responses[cmd] {
			_, _ = conn.Write([]byte(line + "\r\n"))
		}
		_, _ = conn.Write([]byte("END\r\n"))
	}
}

func (f *fakeEngine) port(t *testing.T) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(f.listener.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return port
}

func (f *fakeEngine) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func controlStation(port int) *models.Station {
	telnet := port
	return &models.Station{ID: 1, ShortName: "test", FrontendPort: 8000, TelnetPort: &telnet}
}

func TestCommandFiltersProtocolChatter(t *testing.T) {
	engine := newFakeEngine(t, map[string][]string{
		"test_requests.queue": {"12", "13"},
	})

	client := NewControlClient(2*time.Second, zerolog.Nop())
	lines, err := client.Command(context.Background(), "127.0.0.1", engine.port(t), "test_requests.queue")
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if len(lines) != 2 || lines[0] != "12" || lines[1] != "13" {
		t.Errorf("lines = %v, want [12 13]", lines)
	}
}

func TestCommandConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	_, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)

	client := NewControlClient(time.Second, zerolog.Nop())
	_, err = client.Command(context.Background(), "127.0.0.1", port, "version")
	if !errors.Is(err, ErrConnect) {
		t.Errorf("err = %v, want ErrConnect", err)
	}
}

func TestEnqueueRequest(t *testing.T) {
	engine := newFakeEngine(t, map[string][]string{
		"test_requests.queue":                {},
		"test_requests.push /media/song.mp3": {"20"},
	})
	client := NewControlClient(2*time.Second, zerolog.Nop())
	ctl := NewController(client, "127.0.0.1")

	st := controlStation(engine.port(t))
	ack, err := ctl.EnqueueRequest(context.Background(), st, "/media/song.mp3")
	if err != nil {
		t.Fatalf("EnqueueRequest: %v", err)
	}
	if len(ack) != 1 || ack[0] != "20" {
		t.Errorf("ack = %v, want the push acknowledgment line", ack)
	}

	got := engine.received()
	if len(got) != 2 || !strings.HasSuffix(got[1], "test_requests.push /media/song.mp3") {
		t.Errorf("commands = %v", got)
	}
}

func TestEnqueueRequestPending(t *testing.T) {
	engine := newFakeEngine(t, map[string][]string{
		"test_requests.queue": {"17"},
	})
	client := NewControlClient(2*time.Second, zerolog.Nop())
	ctl := NewController(client, "127.0.0.1")

	_, err := ctl.EnqueueRequest(context.Background(), controlStation(engine.port(t)), "/media/song.mp3")
	if !errors.Is(err, ErrRequestPending) {
		t.Errorf("err = %v, want ErrRequestPending", err)
	}
}

func TestSkipAndSetLive(t *testing.T) {
	engine := newFakeEngine(t, map[string][]string{
		"test_local_1.skip":                {"Done"},
		"var.set test_live_enabled = true": {"Variable test_live_enabled set"},
	})
	client := NewControlClient(2*time.Second, zerolog.Nop())
	ctl := NewController(client, "127.0.0.1")
	st := controlStation(engine.port(t))

	if err := ctl.Skip(context.Background(), st); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if err := ctl.SetLive(context.Background(), st, true); err != nil {
		t.Fatalf("SetLive: %v", err)
	}

	got := engine.received()
	if len(got) != 2 || got[0] != "test_local_1.skip" || got[1] != "var.set test_live_enabled = true" {
		t.Errorf("commands = %v", got)
	}
}

func TestCommandVerb(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"test_requests.push /media/a.mp3", "push"},
		{"test_local_1.skip", "skip"},
		{"var.set test_live_enabled = true", "set"},
		{"version", "version"},
	}
	for _, c := range cases {
		if got := commandVerb(c.in); got != c.want {
			t.Errorf("commandVerb(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
