//go:build !us_band

package radio

// EU868 candidate carrier.
const carrierFrequencyHz uint32 = 868_100_000
