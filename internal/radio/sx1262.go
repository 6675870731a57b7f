// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package radio

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// SX1262 command opcodes (Semtech DS.SX1261-2 v2.1, table 11-1).
const (
	opSetStandby          = 0x80
	opSetRx               = 0x82
	opSetTx               = 0x83
	opSetRfFrequency      = 0x86
	opSetPacketType       = 0x8A
	opSetModulationParams = 0x8B
	opSetPacketParams     = 0x8C
	opSetTxParams         = 0x8E
	opSetBufferBase       = 0x8F
	opSetPaConfig         = 0x95
	opSetRegulatorMode    = 0x96
	opSetDIO3AsTcxoCtrl   = 0x97
	opWriteBuffer         = 0x0E
	opReadBuffer          = 0x1E
	opGetIrqStatus        = 0x12
	opClearIrqStatus      = 0x02
	opGetRxBufferStatus   = 0x13
	opGetPacketStatus     = 0x14
	opGetDeviceErrors     = 0x17
	opClearDeviceErrors   = 0x07
)

const (
	packetTypeLoRa = 0x01

	irqTxDone = 0x0001
	irqRxDone = 0x0002

	// rxContinuous keeps the chip in RX until the next mode change.
	rxContinuous = 0xFFFFFF

	// busyTimeout bounds every BUSY-pin wait. A chip that holds BUSY longer
	// than this is treated as failed rather than hanging the scheduler.
	busyTimeout = 100 * time.Millisecond

	// txDoneTimeout bounds the Send dwell. SF12/125 kHz airtime for a
	// 32-byte packet is on the order of seconds, so this is generous but
	// still finite.
	txDoneTimeout = 5 * time.Second

	xtalHz = 32_000_000
)

// SX1262 drives a Semtech SX1262 over SPI with the three usual control pins.
// It implements Driver. All methods are serialized by an internal mutex; the
// scheduler is the only caller in practice.
type SX1262 struct {
	mu   sync.Mutex
	conn spi.Conn

	reset gpio.PinIO
	busy  gpio.PinIO
	dio1  gpio.PinIO

	configured bool
	mode       Mode
	payloadLen int

	log zerolog.Logger
}

func NewSX1262(conn spi.Conn, reset, busy, dio1 gpio.PinIO, log zerolog.Logger) *SX1262 {
	return &SX1262{
		conn:  conn,
		reset: reset,
		busy:  busy,
		dio1:  dio1,
		mode:  Receiving,
		log:   log,
	}
}

// Configure resets the chip and programs the fixed link parameters. Must be
// called exactly once before any other method.
func (r *SX1262) Configure(p Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !p.valid() {
		return fmt.Errorf("%w: %+v", ErrConfigRejected, p)
	}

	if err := r.hardReset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	frf := uint32(uint64(p.FrequencyHz) << 25 / xtalHz)

	steps := []struct {
		name string
		data []byte
	}{
		{"standby", []byte{opSetStandby, 0x00}},
		// DIO3 powers the TCXO at 1.7 V, 5 ms startup.
		{"tcxo", []byte{opSetDIO3AsTcxoCtrl, 0x01, 0x00, 0x01, 0x40}},
		{"regulator", []byte{opSetRegulatorMode, 0x01}},
		{"packet type", []byte{opSetPacketType, packetTypeLoRa}},
		{"frequency", []byte{opSetRfFrequency,
			byte(frf >> 24), byte(frf >> 16), byte(frf >> 8), byte(frf)}},
		// PA config for +22 dBm capable SX1262 front end.
		{"pa config", []byte{opSetPaConfig, 0x04, 0x07, 0x00, 0x01}},
		{"tx params", []byte{opSetTxParams, byte(int8(p.TxPowerDBm)), 0x04}},
		{"modulation", []byte{opSetModulationParams,
			byte(p.SpreadingFactor),
			bandwidthCode(p.BandwidthHz),
			codingRateCode(p.CodingRateDenom),
			lowDataRateOptimize(p.SpreadingFactor, p.BandwidthHz)}},
		// 8-symbol preamble, explicit header, CRC on, standard IQ.
		{"packet params", []byte{opSetPacketParams,
			0x00, 0x08, 0x00, byte(p.PayloadLength), 0x01, 0x00}},
		{"buffer base", []byte{opSetBufferBase, 0x00, 0x00}},
		{"clear errors", []byte{opClearDeviceErrors, 0x00, 0x00}},
	}

	for _, s := range steps {
		if err := r.command(s.data); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	// The chip latches parameter problems into its device error register.
	buf := make([]byte, 4)
	if err := r.transfer([]byte{opGetDeviceErrors, 0x00, 0x00, 0x00}, buf); err != nil {
		return fmt.Errorf("read device errors: %w", err)
	}
	if errBits := uint16(buf[2])<<8 | uint16(buf[3]); errBits != 0 {
		return fmt.Errorf("%w: device errors 0x%04X", ErrConfigRejected, errBits)
	}

	r.payloadLen = p.PayloadLength
	r.configured = true
	r.mode = Receiving

	r.log.Info().
		Uint32("frequency_hz", p.FrequencyHz).
		Int("sf", p.SpreadingFactor).
		Int("bw_hz", p.BandwidthHz).
		Int("tx_dbm", p.TxPowerDBm).
		Msg("radio configured")
	return nil
}

// EnterTransmit parks the chip in standby ready for Send. The actual RF dwell
// begins inside Send; keeping standby here minimizes the window in which the
// receiver path is dark.
func (r *SX1262) EnterTransmit() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.configured {
		return ErrNotConfigured
	}
	if err := r.command([]byte{opSetStandby, 0x00}); err != nil {
		return err
	}
	r.mode = Transmitting
	return nil
}

// EnterReceive puts the chip into continuous receive.
func (r *SX1262) EnterReceive() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.configured {
		return ErrNotConfigured
	}
	if err := r.command([]byte{opClearIrqStatus, 0xFF, 0xFF}); err != nil {
		return err
	}
	if err := r.command([]byte{opSetRx,
		byte(rxContinuous >> 16), byte(rxContinuous >> 8 & 0xFF), byte(rxContinuous & 0xFF)}); err != nil {
		return err
	}
	r.mode = Receiving
	return nil
}

// Send transmits one payload and blocks until the chip reports TxDone or the
// bounded dwell expires.
func (r *SX1262) Send(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.configured {
		return ErrNotConfigured
	}
	if r.mode != Transmitting {
		return ErrNotTransmitting
	}

	buf := make([]byte, 0, 2+len(payload))
	buf = append(buf, opWriteBuffer, 0x00)
	buf = append(buf, payload...)
	if err := r.command(buf); err != nil {
		return fmt.Errorf("write buffer: %w", err)
	}
	if err := r.command([]byte{opClearIrqStatus, 0xFF, 0xFF}); err != nil {
		return err
	}
	// SetTx with zero timeout: the chip returns to standby on TxDone.
	if err := r.command([]byte{opSetTx, 0x00, 0x00, 0x00}); err != nil {
		return err
	}

	deadline := time.Now().Add(txDoneTimeout)
	for time.Now().Before(deadline) {
		irq, err := r.irqStatus()
		if err != nil {
			return err
		}
		if irq&irqTxDone != 0 {
			return r.command([]byte{opClearIrqStatus, 0xFF, 0xFF})
		}
		time.Sleep(time.Millisecond)
	}
	return fmt.Errorf("tx done: %w", ErrBusyTimeout)
}

// PollReceive returns a pending frame, or nil when none has arrived. It
// never blocks beyond the SPI round trips.
func (r *SX1262) PollReceive() (*Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.configured {
		return nil, ErrNotConfigured
	}
	if r.mode != Receiving {
		return nil, nil
	}

	// DIO1 is wired to RxDone; a low pin means no traffic and saves the
	// SPI round trip on the vast majority of polls.
	if r.dio1.Read() == gpio.Low {
		return nil, nil
	}

	irq, err := r.irqStatus()
	if err != nil {
		return nil, err
	}
	if irq&irqRxDone == 0 {
		return nil, nil
	}

	status := make([]byte, 4)
	if err := r.transfer([]byte{opGetRxBufferStatus, 0x00, 0x00, 0x00}, status); err != nil {
		return nil, err
	}
	length := int(status[2])
	offset := status[3]
	if length == 0 || length > 255 {
		length = r.payloadLen
	}

	rx := make([]byte, 3+length)
	if err := r.transfer(append([]byte{opReadBuffer, offset, 0x00}, make([]byte, length)...), rx); err != nil {
		return nil, err
	}

	pkt := make([]byte, 5)
	if err := r.transfer([]byte{opGetPacketStatus, 0x00, 0x00, 0x00, 0x00}, pkt); err != nil {
		return nil, err
	}
	rssi := -int(pkt[2]) / 2

	if err := r.command([]byte{opClearIrqStatus, 0xFF, 0xFF}); err != nil {
		return nil, err
	}

	payload := make([]byte, length)
	copy(payload, rx[3:])
	return &Frame{Payload: payload, RSSI: rssi}, nil
}

func (r *SX1262) hardReset() error {
	if err := r.reset.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(2 * time.Millisecond)
	if err := r.reset.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	return r.waitBusy()
}

// waitBusy blocks until the BUSY pin drops, bounded by busyTimeout.
func (r *SX1262) waitBusy() error {
	deadline := time.Now().Add(busyTimeout)
	for r.busy.Read() == gpio.High {
		if time.Now().After(deadline) {
			return ErrBusyTimeout
		}
		time.Sleep(100 * time.Microsecond)
	}
	return nil
}

// command sends a write-only opcode sequence.
func (r *SX1262) command(data []byte) error {
	if err := r.waitBusy(); err != nil {
		return err
	}
	return r.conn.Tx(data, nil)
}

// transfer runs a full-duplex exchange for read opcodes.
func (r *SX1262) transfer(w, read []byte) error {
	if err := r.waitBusy(); err != nil {
		return err
	}
	return r.conn.Tx(w, read)
}

func (r *SX1262) irqStatus() (uint16, error) {
	buf := make([]byte, 4)
	if err := r.transfer([]byte{opGetIrqStatus, 0x00, 0x00, 0x00}, buf); err != nil {
		return 0, err
	}
	return uint16(buf[2])<<8 | uint16(buf[3]), nil
}

func bandwidthCode(hz int) byte {
	switch hz {
	case 7800:
		return 0x00
	case 15600:
		return 0x01
	case 31250:
		return 0x02
	case 62500:
		return 0x03
	case 125000:
		return 0x04
	case 250000:
		return 0x05
	case 500000:
		return 0x06
	default:
		return 0x04
	}
}

func codingRateCode(denom int) byte {
	// 4/5..4/8 map to 0x01..0x04.
	if denom < 5 || denom > 8 {
		return 0x04
	}
	return byte(denom - 4)
}

// lowDataRateOptimize is mandatory when the symbol time exceeds 16 ms,
// which covers SF11 and SF12 at 125 kHz.
func lowDataRateOptimize(sf, bwHz int) byte {
	if bwHz <= 125000 && sf >= 11 {
		return 0x01
	}
	return 0x00
}
