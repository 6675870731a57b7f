package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/relabs-tech/beacon_tracker/internal/beacon"
	"github.com/relabs-tech/beacon_tracker/internal/clock"
	"github.com/relabs-tech/beacon_tracker/internal/gps"
	"github.com/relabs-tech/beacon_tracker/internal/logging"
	"github.com/relabs-tech/beacon_tracker/internal/radio"
	"github.com/relabs-tech/beacon_tracker/internal/telemetry"
)

// RunSimulate cross-wires two schedulers over an in-memory radio pair and
// runs them for the given duration. This is the desk rehearsal of the field
// procedure: starting the units at an offset interleaves their transmit
// windows, exactly as staggered power-on does with real hardware.
func RunSimulate(duration, offset time.Duration) error {
	log := logging.Component("simulate")

	radioA, radioB := radio.NewLoopbackPair()
	radioA.SimulatedRSSI = -72
	radioB.SimulatedRSSI = -75

	unitA := simUnit("A", radioA, gps.Fix{Latitude: 40.17764, Longitude: 44.51255, Valid: true})
	unitB := simUnit("B", radioB, gps.Fix{Latitude: 40.18779, Longitude: 44.60947, Altitude: 10, Valid: true})

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	errs := make(chan error, 2)
	go func() { errs <- unitA.Run(ctx) }()

	time.Sleep(offset)
	go func() { errs <- unitB.Run(ctx) }()

	log.Info().Dur("duration", duration).Dur("offset", offset).Msg("simulation running")

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil && ctx.Err() == nil {
			return err
		}
	}

	txA, rxA, _ := unitA.Stats()
	txB, rxB, _ := unitB.Stats()
	fmt.Printf("unit A: %d sent, %d received\nunit B: %d sent, %d received\n", txA, rxA, txB, rxB)
	return nil
}

func simUnit(name string, drv radio.Driver, fix gps.Fix) *beacon.Scheduler {
	events := telemetry.NewLogger(
		prefixWriter{prefix: name + " ", w: os.Stdout},
		logging.Component("events-"+name),
	)
	return beacon.NewScheduler(
		clock.NewMonotonic(),
		drv,
		staticFixSource{fix},
		events,
		noopPulser{},
		logging.Component("scheduler-"+name),
	)
}

type staticFixSource struct{ fix gps.Fix }

func (s staticFixSource) Latest() gps.Fix { return s.fix }

type noopPulser struct{}

func (noopPulser) Pulse(time.Duration) {}

type prefixWriter struct {
	prefix string
	w      io.Writer
}

func (p prefixWriter) Write(b []byte) (int, error) {
	if _, err := io.WriteString(p.w, p.prefix); err != nil {
		return 0, err
	}
	return p.w.Write(b)
}
