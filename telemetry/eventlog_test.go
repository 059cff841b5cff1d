package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestEventLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.jsonl.zst")

	log, err := NewEventLog(path)
	if err != nil {
		t.Fatalf("NewEventLog: %v", err)
	}
	want := []Event{
		{Type: EventOutpost, Tick: 12, X: 5, Y: 8},
		{Type: EventWire, Tick: 12, X: 5, Y: 7, Detail: "S-N", Amount: 0.3},
		{Type: EventExtinct, Tick: 40, X: 2, Y: 2, Identity: "Y"},
	}
	for _, e := range want {
		if err := log.Write(e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if log.Count() != 3 {
		t.Errorf("Count = %d, want 3", log.Count())
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := log.Write(want[0]); err == nil {
		t.Error("expected error writing to a closed log")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var got []Event
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("read %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestEventLogDisabled(t *testing.T) {
	log, err := NewEventLog("")
	if err != nil || log != nil {
		t.Fatalf("NewEventLog(\"\") = %v, %v; want nil, nil", log, err)
	}
	if err := log.Write(Event{}); err != nil {
		t.Errorf("nil log Write: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Errorf("nil log Close: %v", err)
	}
}
