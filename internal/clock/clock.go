package clock

import (
	"sync"
	"time"
)

// Clock is the single arbiter of "now" for the beacon cadence and for every
// logged event timestamp. Millis is monotonic and never decreases.
type Clock interface {
	// Millis returns milliseconds elapsed since boot.
	Millis() int64
	// Sleep blocks the calling goroutine for at least d.
	Sleep(d time.Duration)
}

type monotonic struct {
	start time.Time
}

// NewMonotonic returns a Clock counting from the moment of the call.
// It is backed by the runtime monotonic clock, so wall-clock jumps
// (NTP, GPS time injection) do not affect it.
func NewMonotonic() Clock {
	return &monotonic{start: time.Now()}
}

func (m *monotonic) Millis() int64 {
	return time.Since(m.start).Milliseconds()
}

func (m *monotonic) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Manual is a hand-driven Clock for tests and host-side simulation.
// Sleep advances the clock instead of blocking, which keeps scheduler
// tests deterministic and fast.
type Manual struct {
	mu sync.Mutex
	ms int64
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Millis() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ms
}

func (m *Manual) Sleep(d time.Duration) {
	m.Advance(d)
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ms += d.Milliseconds()
}

// Set jumps the clock to an absolute millisecond value. It refuses to go
// backwards so the non-decreasing guarantee holds even in tests.
func (m *Manual) Set(ms int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms > m.ms {
		m.ms = ms
	}
}
