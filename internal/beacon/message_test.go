package beacon

import (
	"bytes"
	"testing"
)

func TestPayloadIsFixedWidth(t *testing.T) {
	p := Payload()
	if len(p) != PayloadSize {
		t.Fatalf("payload length %d, want %d", len(p), PayloadSize)
	}
	if !bytes.HasPrefix(p, []byte(marker)) {
		t.Errorf("payload %q does not start with the marker", p)
	}
	for _, b := range p[len(marker):] {
		if b != ' ' {
			t.Fatalf("padding byte %q, want space", b)
		}
	}
}

func TestPayloadReturnsFreshSlice(t *testing.T) {
	a := Payload()
	a[0] = '!'
	if b := Payload(); b[0] != 'R' {
		t.Error("mutating one payload slice leaked into the next")
	}
}
