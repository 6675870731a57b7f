package beacon

// PayloadSize is the fixed length of every beacon frame on air.
const PayloadSize = 32

// marker identifies our beacons in the peer's log.
const marker = "RELABS BEACON TRACKER V1"

// Payload returns the fixed 32-byte application payload. The content is
// identical on every transmission: the marker padded, or truncated, to
// exactly PayloadSize bytes.
func Payload() []byte {
	return pad([]byte(marker), PayloadSize)
}

func pad(b []byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}
	copy(out, b)
	return out
}
