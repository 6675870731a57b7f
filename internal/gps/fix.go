package gps

// Fix is a snapshot of the most recent position estimate. It is handed to
// callers by value; nobody outside the provider mutates one in place.
type Fix struct {
	Latitude   float64 `json:"lat"`  // decimal degrees, signed
	Longitude  float64 `json:"lon"`  // decimal degrees, signed
	Altitude   float64 `json:"alt"`  // meters above mean sea level
	Valid      bool    `json:"valid"`
	ObservedAt int64   `json:"observed_at"` // ms since boot when the sentence arrived
}
