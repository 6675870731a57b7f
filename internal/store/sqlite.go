package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/relabs-tech/beacon_tracker/internal/telemetry"
)

const eventsSchema = `
CREATE TABLE IF NOT EXISTS events (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	kind     TEXT    NOT NULL,
	timer_ms INTEGER NOT NULL,
	lat      REAL,
	lon      REAL,
	alt      REAL,
	valid    INTEGER NOT NULL,
	rssi     INTEGER,
	payload  TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_timer ON events(timer_ms);
`

// SQLiteStore keeps the event history queryable after a field run. It sits
// beside the plain-text FileStore, never instead of it: the text log stays
// the format both units agree on.
type SQLiteStore struct {
	db     *sql.DB
	insert *sql.Stmt
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open event db: %w", err)
	}
	// One writer, modest rate; a single connection avoids lock contention.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(eventsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("event db schema: %w", err)
	}

	insert, err := db.Prepare(
		`INSERT INTO events (kind, timer_ms, lat, lon, alt, valid, rssi, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("event db prepare: %w", err)
	}

	return &SQLiteStore{db: db, insert: insert}, nil
}

func (s *SQLiteStore) Append(ev telemetry.Event) error {
	var rssi, payload any
	if ev.Kind == telemetry.KindReceive {
		rssi = ev.RSSI
		payload = string(ev.Payload)
	}

	var lat, lon, alt any
	if ev.Fix.Valid {
		lat, lon, alt = ev.Fix.Latitude, ev.Fix.Longitude, ev.Fix.Altitude
	}

	if _, err := s.insert.Exec(string(ev.Kind), ev.Timer, lat, lon, alt, ev.Fix.Valid, rssi, payload); err != nil {
		return fmt.Errorf("event db insert: %w", err)
	}
	return nil
}

// CountByKind reports how many events of the given kind have been stored.
// Used by bench tooling to sanity-check a run.
func (s *SQLiteStore) CountByKind(kind telemetry.Kind) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM events WHERE kind = ?`, string(kind)).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	_ = s.insert.Close()
	return s.db.Close()
}
