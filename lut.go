// lut.go - compile-time lookup tables shared by every grain voice and panner.
package granular

import "math"

// Hann window and quarter-sine pan table sizes (fixed per §5/§9: process-wide
// state limited to these two compile-time constants).
const (
	hannLUTSize  = 1024
	quarterLUTSize = 4096
)

// hannLUT holds one period of a Hann window sampled at hannLUTSize points,
// indexed by grain progress in [0,1).
var hannLUT [hannLUTSize]float64

// quarterLUT holds a quarter period of a sine (0 to π/2), used by the panner
// for equal-power crossfades: Q[0]=0, Q[len-1]=1.
var quarterLUT [quarterLUTSize]float64

func init() {
	for i := 0; i < hannLUTSize; i++ {
		hannLUT[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(hannLUTSize)))
	}
	for i := 0; i < quarterLUTSize; i++ {
		quarterLUT[i] = math.Sin(math.Pi / 2 * float64(i) / float64(quarterLUTSize-1))
	}
}

// sampleHann reads the Hann window at normalized position pos in [0,1) with
// linear interpolation between adjacent table entries.
func sampleHann(pos float64) float64 {
	pos = mod(pos, 1.0)
	idxF := pos * float64(hannLUTSize)
	idx := int(idxF)
	frac := idxF - float64(idx)
	idx %= hannLUTSize
	next := (idx + 1) % hannLUTSize
	return hannLUT[idx] + frac*(hannLUT[next]-hannLUT[idx])
}

// sampleQuarterSine reads the quarter-sine pan table at fractional index in
// [0, quarterLUTSize-1], clamping out-of-range input.
func sampleQuarterSine(index float64) float64 {
	if index <= 0 {
		return quarterLUT[0]
	}
	if index >= float64(quarterLUTSize-1) {
		return quarterLUT[quarterLUTSize-1]
	}
	idx := int(index)
	frac := index - float64(idx)
	return quarterLUT[idx] + frac*(quarterLUT[idx+1]-quarterLUT[idx])
}
