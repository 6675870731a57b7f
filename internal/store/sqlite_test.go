package store

import (
	"path/filepath"
	"testing"

	"github.com/relabs-tech/beacon_tracker/internal/gps"
	"github.com/relabs-tech/beacon_tracker/internal/telemetry"
)

func openTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreCounts(t *testing.T) {
	s := openTestDB(t)

	fix := gps.Fix{Latitude: 40.17764, Longitude: 44.51255, Valid: true}
	for timer := int64(1000); timer <= 3000; timer += 1000 {
		ev := telemetry.Event{Kind: telemetry.KindTransmit, Timer: timer, Fix: fix}
		if err := s.Append(ev); err != nil {
			t.Fatalf("Append transmit: %v", err)
		}
	}
	rx := telemetry.Event{
		Kind:    telemetry.KindReceive,
		Timer:   1532,
		Fix:     fix,
		RSSI:    -87,
		Payload: []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ012345"),
	}
	if err := s.Append(rx); err != nil {
		t.Fatalf("Append receive: %v", err)
	}

	tx, err := s.CountByKind(telemetry.KindTransmit)
	if err != nil {
		t.Fatalf("CountByKind(T): %v", err)
	}
	if tx != 3 {
		t.Errorf("transmit count %d, want 3", tx)
	}
	n, err := s.CountByKind(telemetry.KindReceive)
	if err != nil {
		t.Fatalf("CountByKind(R): %v", err)
	}
	if n != 1 {
		t.Errorf("receive count %d, want 1", n)
	}
}

func TestSQLiteStoreNullsForInvalidFix(t *testing.T) {
	s := openTestDB(t)

	ev := telemetry.Event{Kind: telemetry.KindTransmit, Timer: 1000}
	if err := s.Append(ev); err != nil {
		t.Fatalf("Append: %v", err)
	}

	var lat, rssi *float64
	err := s.db.QueryRow(`SELECT lat, rssi FROM events WHERE timer_ms = 1000`).Scan(&lat, &rssi)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if lat != nil {
		t.Errorf("lat stored as %v for an invalid fix, want NULL", *lat)
	}
	if rssi != nil {
		t.Errorf("rssi stored as %v for a transmit event, want NULL", *rssi)
	}
}
