// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relabs-tech/beacon_tracker/internal/gps"
)

// Kind tags an event as a transmit or receive edge.
type Kind byte

const (
	KindTransmit Kind = 'T'
	KindReceive  Kind = 'R'
)

// Event is one transmit or receive edge produced by the scheduler. RSSI and
// Payload are meaningful only for receive events: the device cannot measure
// its own transmission strength, and the outgoing payload is constant.
type Event struct {
	Kind    Kind
	Timer   int64 // ms since boot, from the shared clock
	Fix     gps.Fix
	RSSI    int // dBm
	Payload []byte
}

// Render produces the log line for the event, without the trailing newline.
//
//	T,<timer_ms>,<lat>,<long>,<altitude>,
//	R,<timer_ms>,<lat>,<long>,<altitude>,<rssi>,<payload>
//
// An invalid fix renders empty position fields: "no fix yet" is explicit in
// the log rather than disguised as coordinates 0,0.
func (e Event) Render() string {
	lat, lon, alt := "", "", ""
	if e.Fix.Valid {
		lat = formatCoord(e.Fix.Latitude)
		lon = formatCoord(e.Fix.Longitude)
		alt = formatCoord(e.Fix.Altitude)
	}

	if e.Kind == KindReceive {
		return fmt.Sprintf("R,%d,%s,%s,%s,%d,%s", e.Timer, lat, lon, alt, e.RSSI, e.Payload)
	}
	return fmt.Sprintf("T,%d,%s,%s,%s,", e.Timer, lat, lon, alt)
}

// ParseLine is the inverse of Render. The firmware never re-reads its own
// log; this exists for tests and for the bench tooling that tails stores.
func ParseLine(line string) (Event, error) {
	fields := strings.Split(strings.TrimSuffix(line, "\n"), ",")
	if len(fields) < 2 {
		return Event{}, fmt.Errorf("log line too short: %q", line)
	}

	var ev Event
	switch fields[0] {
	case "T":
		if len(fields) != 6 {
			return Event{}, fmt.Errorf("transmit line has %d fields, want 6: %q", len(fields), line)
		}
		ev.Kind = KindTransmit
	case "R":
		if len(fields) != 7 {
			return Event{}, fmt.Errorf("receive line has %d fields, want 7: %q", len(fields), line)
		}
		ev.Kind = KindReceive
	default:
		return Event{}, fmt.Errorf("unknown event tag %q", fields[0])
	}

	timer, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("timer field: %w", err)
	}
	ev.Timer = timer

	if fields[2] != "" || fields[3] != "" || fields[4] != "" {
		lat, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return Event{}, fmt.Errorf("latitude field: %w", err)
		}
		lon, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return Event{}, fmt.Errorf("longitude field: %w", err)
		}
		alt, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return Event{}, fmt.Errorf("altitude field: %w", err)
		}
		ev.Fix = gps.Fix{Latitude: lat, Longitude: lon, Altitude: alt, Valid: true}
	}

	if ev.Kind == KindReceive {
		rssi, err := strconv.Atoi(fields[5])
		if err != nil {
			return Event{}, fmt.Errorf("rssi field: %w", err)
		}
		ev.RSSI = rssi
		ev.Payload = []byte(fields[6])
	}

	return ev, nil
}

// formatCoord renders a coordinate with the shortest representation that
// round-trips, matching what the peer logs for the same value.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
