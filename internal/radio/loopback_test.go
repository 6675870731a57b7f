package radio

import (
	"bytes"
	"errors"
	"testing"
)

func configuredPair(t *testing.T) (*Loopback, *Loopback) {
	t.Helper()
	a, b := NewLoopbackPair()
	if err := a.Configure(DefaultParams()); err != nil {
		t.Fatalf("configure a: %v", err)
	}
	if err := b.Configure(DefaultParams()); err != nil {
		t.Fatalf("configure b: %v", err)
	}
	return a, b
}

func TestLoopbackDelivery(t *testing.T) {
	a, b := configuredPair(t)
	b.SimulatedRSSI = -87

	payload := []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ012345")
	if err := a.EnterTransmit(); err != nil {
		t.Fatalf("EnterTransmit: %v", err)
	}
	if err := a.Send(payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	frame, err := b.PollReceive()
	if err != nil {
		t.Fatalf("PollReceive: %v", err)
	}
	if frame == nil {
		t.Fatal("frame not delivered")
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Errorf("payload %q", frame.Payload)
	}
	if frame.RSSI != -87 {
		t.Errorf("rssi %d, want -87", frame.RSSI)
	}

	// A second poll returns nothing.
	frame, err = b.PollReceive()
	if err != nil || frame != nil {
		t.Fatalf("second poll returned (%+v, %v), want (nil, nil)", frame, err)
	}
}

func TestLoopbackDropsFrameWhenPeerTransmitting(t *testing.T) {
	a, b := configuredPair(t)

	if err := a.EnterTransmit(); err != nil {
		t.Fatalf("a EnterTransmit: %v", err)
	}
	if err := b.EnterTransmit(); err != nil {
		t.Fatalf("b EnterTransmit: %v", err)
	}
	// Both units mid-dwell: the frame vanishes on air, Send still succeeds.
	if err := a.Send([]byte("lost")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if err := b.EnterReceive(); err != nil {
		t.Fatalf("b EnterReceive: %v", err)
	}
	frame, err := b.PollReceive()
	if err != nil {
		t.Fatalf("PollReceive: %v", err)
	}
	if frame != nil {
		t.Fatalf("dropped frame resurfaced: %q", frame.Payload)
	}
}

func TestLoopbackModeDiscipline(t *testing.T) {
	a, _ := configuredPair(t)

	// Resting state is receive; sending there is a driver misuse.
	if err := a.Send([]byte("x")); !errors.Is(err, ErrNotTransmitting) {
		t.Fatalf("Send in receive mode returned %v, want ErrNotTransmitting", err)
	}

	if err := a.EnterTransmit(); err != nil {
		t.Fatalf("EnterTransmit: %v", err)
	}
	if frame, err := a.PollReceive(); err != nil || frame != nil {
		t.Fatalf("poll in transmit mode returned (%+v, %v), want (nil, nil)", frame, err)
	}
}

func TestLoopbackRequiresConfigure(t *testing.T) {
	a, _ := NewLoopbackPair()

	if err := a.EnterTransmit(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("EnterTransmit returned %v, want ErrNotConfigured", err)
	}
	if _, err := a.PollReceive(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("PollReceive returned %v, want ErrNotConfigured", err)
	}
}

func TestConfigureRejectsBadParams(t *testing.T) {
	a, _ := NewLoopbackPair()

	cases := []struct {
		name  string
		tweak func(*Params)
	}{
		{"zero frequency", func(p *Params) { p.FrequencyHz = 0 }},
		{"sf too high", func(p *Params) { p.SpreadingFactor = 13 }},
		{"coding rate out of range", func(p *Params) { p.CodingRateDenom = 4 }},
		{"power too high", func(p *Params) { p.TxPowerDBm = 30 }},
		{"oversized payload", func(p *Params) { p.PayloadLength = 300 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.tweak(&p)
			if err := a.Configure(p); !errors.Is(err, ErrConfigRejected) {
				t.Errorf("Configure returned %v, want ErrConfigRejected", err)
			}
		})
	}
}

func TestDefaultParamsMatchLinkContract(t *testing.T) {
	p := DefaultParams()
	if p.SpreadingFactor != 12 || p.BandwidthHz != 125000 || p.CodingRateDenom != 8 {
		t.Errorf("modulation %+v, want SF12 BW125k CR4/8", p)
	}
	if p.TxPowerDBm != 20 {
		t.Errorf("tx power %d, want 20", p.TxPowerDBm)
	}
	if p.PayloadLength != MaxPayload {
		t.Errorf("payload length %d, want %d", p.PayloadLength, MaxPayload)
	}
	if !p.valid() {
		t.Error("default params fail their own validation")
	}
}
