package indicator

import (
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
)

type fakePin struct {
	mu     sync.Mutex
	levels []gpio.Level
}

func (p *fakePin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels = append(p.levels, l)
	return nil
}

func (p *fakePin) snapshot() []gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]gpio.Level, len(p.levels))
	copy(out, p.levels)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached within a second")
}

func TestPulseTurnsOnThenOff(t *testing.T) {
	pin := &fakePin{}
	led := NewLED(pin)

	led.Pulse(5 * time.Millisecond)

	levels := pin.snapshot()
	if len(levels) != 1 || levels[0] != gpio.High {
		t.Fatalf("after Pulse, pin saw %v, want [High]", levels)
	}

	waitFor(t, func() bool {
		s := pin.snapshot()
		return len(s) == 2 && s[1] == gpio.Low
	})
}

func TestOverlappingPulsesExtend(t *testing.T) {
	pin := &fakePin{}
	led := NewLED(pin)

	led.Pulse(50 * time.Millisecond)
	led.Pulse(50 * time.Millisecond)

	// The first turn-off is cancelled, so only one Low follows the two Highs.
	waitFor(t, func() bool {
		s := pin.snapshot()
		return len(s) >= 3
	})
	time.Sleep(20 * time.Millisecond)

	levels := pin.snapshot()
	want := []gpio.Level{gpio.High, gpio.High, gpio.Low}
	if len(levels) != len(want) {
		t.Fatalf("pin saw %v, want %v", levels, want)
	}
	for i := range want {
		if levels[i] != want[i] {
			t.Fatalf("pin saw %v, want %v", levels, want)
		}
	}
}

func TestOffCancelsPendingPulse(t *testing.T) {
	pin := &fakePin{}
	led := NewLED(pin)

	led.Pulse(time.Hour)
	led.Off()

	levels := pin.snapshot()
	if len(levels) != 2 || levels[1] != gpio.Low {
		t.Fatalf("pin saw %v, want [High Low]", levels)
	}
}
