// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package beacon

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/beacon_tracker/internal/clock"
	"github.com/relabs-tech/beacon_tracker/internal/gps"
	"github.com/relabs-tech/beacon_tracker/internal/radio"
	"github.com/relabs-tech/beacon_tracker/internal/telemetry"
)

const (
	// Period is the fixed beacon cadence, measured from boot time.
	Period = 1000 * time.Millisecond

	// pollInterval is the receive-poll pitch while resting in Receiving.
	pollInterval = 5 * time.Millisecond

	// DefaultIndicatorPulse is how long the indicator stays lit per
	// received beacon.
	DefaultIndicatorPulse = 100 * time.Millisecond
)

// FixSource hands out the latest position snapshot. Never blocks.
type FixSource interface {
	Latest() gps.Fix
}

// Recorder accepts one event per transmit/receive edge.
type Recorder interface {
	Record(ev telemetry.Event) error
}

// Pulser triggers the receive indicator without blocking.
type Pulser interface {
	Pulse(d time.Duration)
}

// State of the scheduler. Receiving is the resting state; Transmitting is
// entered once per cadence window for the duration of one dwell.
type State int

const (
	StateReceiving State = iota
	StateTransmitting
)

// Scheduler alternates the single half-duplex radio between a once-per-window
// transmit dwell and continuous receive polling.
//
// Invariants it maintains:
//   - the radio is in at most one of {transmitting, receiving} at any instant;
//   - at most one transmit dwell begins per cadence window, independent of
//     receive activity;
//   - a dwell that somehow outlives its window defers the next transmit until
//     it completes, it is never interrupted, and the windows its overrun
//     swallowed are not replayed as a burst afterwards.
type Scheduler struct {
	clk   clock.Clock
	drv   radio.Driver
	fixes FixSource
	rec   Recorder
	ind   Pulser
	log   zerolog.Logger

	state  State
	nextTx int64 // ms since boot of the next window boundary

	payload []byte

	txCount  atomic.Uint64
	rxCount  atomic.Uint64
	lastRSSI atomic.Int64
}

func NewScheduler(clk clock.Clock, drv radio.Driver, fixes FixSource, rec Recorder, ind Pulser, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		clk:     clk,
		drv:     drv,
		fixes:   fixes,
		rec:     rec,
		ind:     ind,
		log:     log,
		state:   StateReceiving,
		payload: Payload(),
	}
}

// Run configures the radio and services the state machine until the context
// is cancelled. A configuration failure is the one unrecoverable error: the
// device cannot safely operate with an unconfigured radio.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.startUp(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.step()
		s.clk.Sleep(pollInterval)
	}
}

func (s *Scheduler) startUp() error {
	if err := s.drv.Configure(radio.DefaultParams()); err != nil {
		return fmt.Errorf("radio configure: %w", err)
	}
	if err := s.drv.EnterReceive(); err != nil {
		return fmt.Errorf("initial receive mode: %w", err)
	}
	s.state = StateReceiving
	s.nextTx = Period.Milliseconds()
	s.log.Info().Int64("first_tx_ms", s.nextTx).Msg("scheduler entering receive")
	return nil
}

// step services one scheduler iteration: the transmit path when a window
// boundary has passed, then at most one receive poll.
func (s *Scheduler) step() {
	if s.state == StateReceiving && s.clk.Millis() >= s.nextTx {
		s.transmit()

		// Re-align on window boundaries counted from boot. A dwell that ran
		// past further boundaries consumed those windows; replaying them as
		// an immediate burst would put two dwells in one window.
		now := s.clk.Millis()
		for s.nextTx <= now {
			s.nextTx += Period.Milliseconds()
		}
	}

	if s.state != StateReceiving {
		return
	}

	frame, err := s.drv.PollReceive()
	if err != nil {
		s.log.Warn().Err(err).Msg("receive poll failed")
		return
	}
	if frame == nil {
		return
	}

	s.rxCount.Add(1)
	s.lastRSSI.Store(int64(frame.RSSI))
	s.ind.Pulse(DefaultIndicatorPulse)

	ev := telemetry.Event{
		Kind:    telemetry.KindReceive,
		Timer:   s.clk.Millis(),
		Fix:     s.fixes.Latest(),
		RSSI:    frame.RSSI,
		Payload: frame.Payload,
	}
	if err := s.rec.Record(ev); err != nil {
		s.log.Error().Err(err).Msg("receive event not fully persisted")
	}
}

// transmit performs one dwell: switch to transmit mode, send the fixed
// payload, log the edge, and return to receive. Any radio failure along the
// way is logged and the state machine is forced back to Receiving, since a
// stuck transmit would blind the device to incoming beacons permanently.
func (s *Scheduler) transmit() {
	timer := s.clk.Millis()
	s.state = StateTransmitting

	if err := s.drv.EnterTransmit(); err != nil {
		s.log.Error().Err(err).Int64("timer_ms", timer).Msg("transmit mode switch failed")
		s.recover()
		return
	}

	if err := s.drv.Send(s.payload); err != nil {
		s.log.Error().Err(err).Int64("timer_ms", timer).Msg("beacon send failed")
		s.recover()
		return
	}

	s.txCount.Add(1)

	ev := telemetry.Event{
		Kind:  telemetry.KindTransmit,
		Timer: timer,
		Fix:   s.fixes.Latest(),
	}
	if err := s.rec.Record(ev); err != nil {
		s.log.Error().Err(err).Msg("transmit event not fully persisted")
	}

	s.recover()
}

// recover forces the radio and the state machine back to Receiving. The mode
// switch itself may fail; that is logged and retried on the next window's
// dwell, while polling stays inert in the meantime.
func (s *Scheduler) recover() {
	if err := s.drv.EnterReceive(); err != nil {
		s.log.Error().Err(err).Msg("return to receive failed")
	}
	s.state = StateReceiving
}

// Stats reports counters for the status display and the web page.
func (s *Scheduler) Stats() (tx, rx uint64, lastRSSI int) {
	return s.txCount.Load(), s.rxCount.Load(), int(s.lastRSSI.Load())
}
