package indicator

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Output is the slice of gpio.PinIO the LED actually needs, which keeps the
// test double small.
type Output interface {
	Out(l gpio.Level) error
}

// LED pulses an indicator pin without ever blocking the caller. The turn-off
// is deferred to a timer, so the scheduler's receive-poll loop is never
// stalled by the pulse. Overlapping pulses extend the on period.
type LED struct {
	mu    sync.Mutex
	pin   Output
	timer *time.Timer
}

func NewLED(pin Output) *LED {
	return &LED{pin: pin}
}

// Pulse turns the LED on and schedules the turn-off after d.
func (l *LED) Pulse(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.pin.Out(gpio.High)
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(d, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		_ = l.pin.Out(gpio.Low)
	})
}

// Off cancels any pending pulse and forces the LED dark.
func (l *LED) Off() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timer != nil {
		l.timer.Stop()
	}
	_ = l.pin.Out(gpio.Low)
}
