// valuetable.go - the two-row materialized-value snapshot spanning a grain
// reset within one sub-block (§3 "Value table").
package granular

// ValueTable holds the minimum set of materialized values needed to render a
// sub-block that straddles a grain boundary.
type ValueTable struct {
	Delay             float64
	Rate              float64
	Glisson           float64
	Window            float64
	Amplitude         float64
	Space             float64
	EnvelopePosition  float64
	Direction         float64
	Density           float64
}
