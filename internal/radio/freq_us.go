//go:build us_band

package radio

// US915 candidate carrier.
const carrierFrequencyHz uint32 = 915_000_000
