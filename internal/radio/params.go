package radio

// Fixed link parameters. Both units must be flashed with the same set; the
// link is not runtime-negotiated.
const (
	SpreadingFactor = 12
	BandwidthHz     = 125000
	// CodingRateDenom is the denominator of the 4/x coding rate.
	CodingRateDenom = 8
	TxPowerDBm      = 20

	// MaxPayload is the LoRa packet length both units send and expect.
	MaxPayload = 32
)

// Params carries the full link configuration handed to Configure.
type Params struct {
	FrequencyHz     uint32
	SpreadingFactor int
	BandwidthHz     int
	CodingRateDenom int
	TxPowerDBm      int
	PayloadLength   int
}

// DefaultParams returns the fixed link configuration. The carrier frequency
// is one of two candidates selected at build time (see freq_*.go).
func DefaultParams() Params {
	return Params{
		FrequencyHz:     carrierFrequencyHz,
		SpreadingFactor: SpreadingFactor,
		BandwidthHz:     BandwidthHz,
		CodingRateDenom: CodingRateDenom,
		TxPowerDBm:      TxPowerDBm,
		PayloadLength:   MaxPayload,
	}
}

func (p Params) valid() bool {
	return p.FrequencyHz > 0 &&
		p.SpreadingFactor >= 5 && p.SpreadingFactor <= 12 &&
		p.BandwidthHz > 0 &&
		p.CodingRateDenom >= 5 && p.CodingRateDenom <= 8 &&
		p.TxPowerDBm >= -9 && p.TxPowerDBm <= 22 &&
		p.PayloadLength > 0 && p.PayloadLength <= 255
}
