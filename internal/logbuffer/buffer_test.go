package logbuffer

import (
	"fmt"
	"testing"
)

func TestBufferCapturesZerologLines(t *testing.T) {
	buf := New(10)

	_, err := buf.Write([]byte(`{"level":"info","component":"api","station_id":3,"message":"config installed","time":1756100000}`))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	entries := buf.Entries(Query{})
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	e := entries[0]
	if e.Level != "info" || e.Component != "api" || e.Message != "config installed" {
		t.Errorf("entry = %+v", e)
	}
	if e.Fields["station_id"] != float64(3) {
		t.Errorf("fields = %v", e.Fields)
	}
}

func TestBufferWrapsAtCapacity(t *testing.T) {
	buf := New(3)
	for i := 0; i < 5; i++ {
		_, _ = buf.Write([]byte(fmt.Sprintf(`{"level":"info","message":"m%d"}`, i)))
	}

	entries := buf.Entries(Query{})
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Message != "m2" || entries[2].Message != "m4" {
		t.Errorf("wrap order wrong: %v", entries)
	}
}

func TestBufferQueryFilters(t *testing.T) {
	buf := New(10)
	_, _ = buf.Write([]byte(`{"level":"info","component":"api","message":"a"}`))
	_, _ = buf.Write([]byte(`{"level":"error","component":"liquidsoap_writer","message":"b"}`))
	_, _ = buf.Write([]byte(`{"level":"error","component":"api","message":"c"}`))

	if got := buf.Entries(Query{Level: "error"}); len(got) != 2 {
		t.Errorf("level filter = %d entries", len(got))
	}
	if got := buf.Entries(Query{Component: "api", Limit: 1}); len(got) != 1 || got[0].Message != "c" {
		t.Errorf("component+limit filter = %v", got)
	}
}
