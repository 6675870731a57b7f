// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/beacon_tracker/internal/clock"
)

// Provider consumes an NMEA sentence stream and keeps the most recent fix.
// Parsing is best-effort: a malformed or checksum-invalid sentence is dropped
// without touching the stored fix. A valid RMC with status Void only clears
// the Valid flag, so consumers see "no fix" explicitly rather than stale
// coordinates pretending to be current.
//
// There is a single writer (the Run goroutine); Latest may be called from any
// goroutine and returns the snapshot by value.
type Provider struct {
	mu  sync.RWMutex
	fix Fix

	clk clock.Clock
	log zerolog.Logger
}

func NewProvider(clk clock.Clock, log zerolog.Logger) *Provider {
	return &Provider{clk: clk, log: log}
}

// Latest returns the most recent fix. Before the first valid sentence it
// returns the zero Fix, whose Valid flag is false. It never blocks.
func (p *Provider) Latest() Fix {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fix
}

// Run reads newline-delimited NMEA sentences from r until EOF, read error,
// or context cancellation. RMC sentences carry position and validity, GGA
// carries altitude; both are folded into the same snapshot.
func (p *Provider) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// Noisy receivers emit partial sentences during startup.
			p.log.Debug().Err(err).Str("line", line).Msg("dropping unparseable sentence")
			continue
		}

		switch sentence.DataType() {
		case nmea.TypeRMC:
			m := sentence.(nmea.RMC)
			p.applyRMC(m)
		case nmea.TypeGGA:
			m := sentence.(nmea.GGA)
			p.applyGGA(m)
		}
	}
	return scanner.Err()
}

func (p *Provider) applyRMC(m nmea.RMC) {
	now := p.clk.Millis()

	p.mu.Lock()
	defer p.mu.Unlock()

	if m.Validity != nmea.ValidRMC {
		// Receiver lost the fix. Keep the last coordinates for reference but
		// mark the snapshot invalid so downstream renders "no fix".
		p.fix.Valid = false
		p.fix.ObservedAt = now
		return
	}

	p.fix.Latitude = m.Latitude
	p.fix.Longitude = m.Longitude
	p.fix.Valid = true
	p.fix.ObservedAt = now
}

func (p *Provider) applyGGA(m nmea.GGA) {
	if m.FixQuality == nmea.Invalid {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.fix.Altitude = m.Altitude
	p.fix.ObservedAt = p.clk.Millis()
}
