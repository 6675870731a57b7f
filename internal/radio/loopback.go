package radio

import "sync"

// Loopback is an in-memory Driver for host-side runs and tests. Two endpoints
// created by NewLoopbackPair are cross-wired: what one sends, the other can
// poll. Half-duplex loss is modeled faithfully: a frame sent while the peer
// is not in receive mode is dropped, exactly as on air.
type Loopback struct {
	mu         sync.Mutex
	peer       *Loopback
	configured bool
	mode       Mode
	inbox      [][]byte

	// RSSI reported for every delivered frame.
	SimulatedRSSI int
}

// NewLoopbackPair returns two cross-connected loopback radios.
func NewLoopbackPair() (*Loopback, *Loopback) {
	a := &Loopback{mode: Receiving, SimulatedRSSI: -60}
	b := &Loopback{mode: Receiving, SimulatedRSSI: -60}
	a.peer = b
	b.peer = a
	return a, b
}

func (l *Loopback) Configure(p Params) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !p.valid() {
		return ErrConfigRejected
	}
	l.configured = true
	return nil
}

func (l *Loopback) EnterTransmit() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.configured {
		return ErrNotConfigured
	}
	l.mode = Transmitting
	return nil
}

func (l *Loopback) EnterReceive() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.configured {
		return ErrNotConfigured
	}
	l.mode = Receiving
	return nil
}

func (l *Loopback) Send(payload []byte) error {
	l.mu.Lock()
	if !l.configured {
		l.mu.Unlock()
		return ErrNotConfigured
	}
	if l.mode != Transmitting {
		l.mu.Unlock()
		return ErrNotTransmitting
	}
	l.mu.Unlock()

	l.peer.deliver(payload)
	return nil
}

func (l *Loopback) PollReceive() (*Frame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.configured {
		return nil, ErrNotConfigured
	}
	if l.mode != Receiving || len(l.inbox) == 0 {
		return nil, nil
	}
	payload := l.inbox[0]
	l.inbox = l.inbox[1:]
	return &Frame{Payload: payload, RSSI: l.SimulatedRSSI}, nil
}

func (l *Loopback) deliver(payload []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mode != Receiving {
		// Peer was mid-transmit: the frame is lost on air.
		return
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	l.inbox = append(l.inbox, cp)
}
