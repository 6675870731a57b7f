package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/relabs-tech/beacon_tracker/internal/gps"
	"github.com/relabs-tech/beacon_tracker/internal/telemetry"
)

func TestFileStoreAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer s.Close()

	events := []telemetry.Event{
		{
			Kind:  telemetry.KindTransmit,
			Timer: 1000,
			Fix:   gps.Fix{Latitude: 40.17764, Longitude: 44.51255, Valid: true},
		},
		{
			Kind:    telemetry.KindReceive,
			Timer:   1532,
			Fix:     gps.Fix{Latitude: 40.18779, Longitude: 44.60947, Altitude: 10, Valid: true},
			RSSI:    -87,
			Payload: []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ012345"),
		},
	}
	for _, ev := range events {
		if err := s.Append(ev); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "T,1000,40.17764,44.51255,0,\n" +
		"R,1532,40.18779,44.60947,10,-87,ABCDEFGHIJKLMNOPQRSTUVWXYZ012345\n"
	if string(data) != want {
		t.Errorf("log contents:\n%q\nwant:\n%q", data, want)
	}
}

func TestFileStoreAppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")

	for i := 0; i < 2; i++ {
		s, err := OpenFile(path)
		if err != nil {
			t.Fatalf("OpenFile (run %d): %v", i, err)
		}
		ev := telemetry.Event{Kind: telemetry.KindTransmit, Timer: int64(1000 * (i + 1))}
		if err := s.Append(ev); err != nil {
			t.Fatalf("Append (run %d): %v", i, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close (run %d): %v", i, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// A power-cycled unit keeps extending the same log.
	want := "T,1000,,,,\nT,2000,,,,\n"
	if string(data) != want {
		t.Errorf("log contents %q, want %q", data, want)
	}
}
