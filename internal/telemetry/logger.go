package telemetry

import (
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Store is a durable append-only event sink. An Append error is recoverable:
// the caller logs a diagnostic and keeps the beacon cadence going.
type Store interface {
	Append(ev Event) error
}

// Observer is notified of every recorded event, after the sinks. Observers
// must not block; the MQTT publisher and the status display subscribe here.
type Observer func(Event)

// Logger renders each event once and fans it out to an interactive serial
// sink (best-effort, failures ignored) and one or more durable stores
// (failures surfaced to the caller).
type Logger struct {
	mu        sync.Mutex
	serial    io.Writer
	stores    []Store
	observers []Observer
	log       zerolog.Logger
}

func NewLogger(serial io.Writer, log zerolog.Logger, stores ...Store) *Logger {
	return &Logger{serial: serial, stores: stores, log: log}
}

// Observe registers an observer. Not safe to call after Record is in use
// concurrently from the scheduler; wire observers during startup.
func (l *Logger) Observe(obs Observer) {
	l.observers = append(l.observers, obs)
}

// Record writes the event to every sink. A serial write failure is dropped
// after a diagnostic; store failures are joined and returned so the caller
// can decide (the scheduler logs and continues, it never halts the cadence).
func (l *Logger) Record(ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := ev.Render()

	if l.serial != nil {
		if _, err := io.WriteString(l.serial, line+"\n"); err != nil {
			l.log.Warn().Err(err).Msg("serial sink write failed")
		}
	}

	var errs []error
	for _, s := range l.stores {
		if err := s.Append(ev); err != nil {
			errs = append(errs, err)
		}
	}

	for _, obs := range l.observers {
		obs(ev)
	}

	return errors.Join(errs...)
}
