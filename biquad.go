// biquad.go - an RBJ band-pass biquad filter bank used by the recorder's
// band-split overdub path (§4.5.2).
package granular

import "math"

// Biquad is one direct-form-II-transposed second-order filter section with
// its own delay memory.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

// SetRBJBandPass computes RBJ band-pass (constant 0 dB peak gain)
// coefficients for center frequency, Q, at sampleRate, and resets delay
// memory.
func (b *Biquad) SetRBJBandPass(center, q, sampleRate float64) {
	if sampleRate <= 0 || center <= 0 || q <= 0 {
		return
	}
	w0 := 2 * math.Pi * center / sampleRate
	alpha := math.Sin(w0) / (2 * q)
	cosW0 := math.Cos(w0)

	a0 := 1 + alpha
	b.b0 = alpha / a0
	b.b1 = 0
	b.b2 = -alpha / a0
	b.a1 = (-2 * cosW0) / a0
	b.a2 = (1 - alpha) / a0
	b.z1 = 0
	b.z2 = 0
}

// Process runs one sample through the filter (direct form II transposed).
func (b *Biquad) Process(x float64) float64 {
	y := b.b0*x + b.z1
	b.z1 = b.b1*x - b.a1*y + b.z2
	b.z2 = b.b2*x - b.a2*y
	return y
}

// BandFilter is one band of the recorder's band-split overdub bank: a
// center/Q/overdub-mix triple with independent per-channel, per-side delay
// memory (§4.5.2: "a copy of the filter dedicated to the buffer side holds
// its own delay memory").
type BandFilter struct {
	Center  float64
	Q       float64
	Overdub float64

	bufferSide []Biquad
	inputSide  []Biquad
}

// Configure sets this band's RBJ parameters and (re)sizes its per-channel
// state for nChannels, at the recorder's current sample rate.
func (f *BandFilter) Configure(center, q, overdub, sampleRate float64, nChannels int) {
	f.Center = center
	f.Q = q
	f.Overdub = overdub
	if len(f.bufferSide) != nChannels {
		f.bufferSide = make([]Biquad, nChannels)
		f.inputSide = make([]Biquad, nChannels)
	}
	for ch := range f.bufferSide {
		f.bufferSide[ch].SetRBJBandPass(center, q, sampleRate)
		f.inputSide[ch].SetRBJBandPass(center, q, sampleRate)
	}
}
