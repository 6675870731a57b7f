package radio

import "errors"

var (
	// ErrNotConfigured is returned when an operation is attempted before
	// Configure has completed.
	ErrNotConfigured = errors.New("radio not configured")
	// ErrConfigRejected means the hardware refused the link parameters.
	// This is not recoverable: the device cannot operate unconfigured.
	ErrConfigRejected = errors.New("radio rejected configuration")
	// ErrNotTransmitting is returned by Send when the driver is not in
	// transmit mode. The scheduler's discipline makes this a programming
	// defect, not an operational condition.
	ErrNotTransmitting = errors.New("send while not in transmit mode")
	// ErrBusyTimeout means the chip did not acknowledge a mode switch or
	// finish a send within the bounded window.
	ErrBusyTimeout = errors.New("radio busy timeout")
)

// Mode is the current direction of the half-duplex radio. The hardware is in
// exactly one mode at any instant outside the bounded transition performed by
// EnterTransmit/EnterReceive.
type Mode int

const (
	Receiving Mode = iota
	Transmitting
)

func (m Mode) String() string {
	if m == Transmitting {
		return "transmitting"
	}
	return "receiving"
}

// Frame is one received payload together with its measured signal strength.
// Frames are consumed immediately by the scheduler and never retained.
type Frame struct {
	Payload []byte
	RSSI    int // dBm
}

// Driver abstracts the physical half-duplex radio. The scheduler depends
// only on this contract, never on chip detail.
//
// Configure must be called exactly once before any other method. Mode
// switches and Send are fast bounded operations; PollReceive never blocks.
type Driver interface {
	Configure(p Params) error
	EnterTransmit() error
	EnterReceive() error
	Send(payload []byte) error
	// PollReceive returns the next pending frame, or nil when nothing has
	// arrived since the last call.
	PollReceive() (*Frame, error)
}
