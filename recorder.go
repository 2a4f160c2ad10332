// recorder.go - live-input sample writer with simple and band-split overdub
// (§4.5).
package granular

import (
	"math"
	"sort"
	"sync/atomic"
)

// RecRange is the atomically-published [lo, hi] record window, normalized
// to [0,1) buffer fractions (§4.5: "two atomically-loaded floats").
type RecRange struct {
	lo, hi atomic.Uint64 // float64 bits
}

// Set publishes a new [lo, hi] window.
func (r *RecRange) Set(lo, hi float64) {
	r.lo.Store(math.Float64bits(lo))
	r.hi.Store(math.Float64bits(hi))
}

// Get reads the current [lo, hi] window.
func (r *RecRange) Get() (float64, float64) {
	return math.Float64frombits(r.lo.Load()), math.Float64frombits(r.hi.Load())
}

// Recorder is a live-input sample writer into a shared SourceBuffer with a
// monotone integer write head (§4.5).
type Recorder struct {
	buf *SourceBuffer

	W int

	state  bool // recording on/off
	sync   bool
	freeze bool

	Range RecRange

	Overdub float64
	bands   []*BandFilter

	lastNorm float64

	RecordedHeadOut  []float64
	WritePositionSamps float64
	WritePositionNorm  float64
	WritePositionMs    float64
}

// NewRecorder builds a stopped recorder targeting buf.
func NewRecorder(buf *SourceBuffer) *Recorder {
	r := &Recorder{buf: buf}
	r.Range.Set(0, 1)
	return r
}

// SetBuffer rebinds the target buffer.
func (r *Recorder) SetBuffer(buf *SourceBuffer) { r.buf = buf }

// Start/Stop toggle the recording state.
func (r *Recorder) Start() { r.state = true }
func (r *Recorder) Stop()  { r.state = false }

// SetSync toggles time_override-driven head positioning.
func (r *Recorder) SetSync(on bool) { r.sync = on }

// SetFreeze toggles freeze mode.
func (r *Recorder) SetFreeze(on bool) { r.freeze = on }

// SetBands installs the band-split overdub filter bank, sorted by Q
// descending as §4.5.2 requires ("prioritize narrow bands").
func (r *Recorder) SetBands(bands []*BandFilter) {
	sorted := make([]*BandFilter, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Q > sorted[j].Q })
	r.bands = sorted
}

// Process renders one sub-block of input into the buffer, or into telemetry
// only while stopped (§4.5).
func (r *Recorder) Process(input [][]float64, timeOverride float64, sampleRate float64) {
	B := SubBlockSize
	if cap(r.RecordedHeadOut) < B {
		r.RecordedHeadOut = make([]float64, B)
	}
	r.RecordedHeadOut = r.RecordedHeadOut[:B]

	if !r.state {
		norm := r.lastNorm
		if !r.freeze {
			norm = normalizedHead(r.W, r.buf)
		}
		for i := range r.RecordedHeadOut {
			r.RecordedHeadOut[i] = norm
		}
		return
	}

	info := RefreshBufferInfo(r.buf, sampleRate)
	if info.BufferFrames == 0 {
		r.W = 0
		r.lastNorm = 0
		for i := range r.RecordedHeadOut {
			r.RecordedHeadOut[i] = 0
		}
		r.WritePositionSamps, r.WritePositionNorm, r.WritePositionMs = 0, 0, 0
		return
	}

	lock := TryLock(r.buf)
	defer lock.Unlock()
	if !lock.Valid() {
		return
	}

	if r.sync {
		r.W = int(info.BufferFrames * mod(timeOverride, 1.0))
	}

	lo, hi := r.Range.Get()
	base := int(math.Floor(lo * info.BufferFrames))
	rng := int(math.Floor(math.Abs(hi-lo) * info.BufferFrames))
	sign := 1
	if hi-lo < 0 {
		sign = -1
	}
	increment := sign * B

	if len(r.bands) > 0 {
		r.writeBandSplit(input, B)
	} else {
		r.writeSimple(input, B)
	}

	if !r.freeze {
		frames := int(info.BufferFrames)
		for i := 0; i < B; i++ {
			r.RecordedHeadOut[i] = float64(mod2(r.W+i, frames)) / info.BufferFrames
		}
		if rng > 0 {
			r.W = mod2(r.W+increment, rng) + base
		} else {
			r.W = (r.W + increment)
		}
		r.WritePositionSamps = float64(r.W)
		r.WritePositionNorm = normalizedHead(r.W, r.buf)
		if sampleRate > 0 {
			r.WritePositionMs = float64(r.W) / sampleRate * 1000
		}
		r.lastNorm = r.WritePositionNorm
	} else {
		norm := normalizedHead(r.W, r.buf)
		for i := range r.RecordedHeadOut {
			r.RecordedHeadOut[i] = norm
		}
		if rng > 0 {
			r.W = mod2(r.W+increment, rng) + base
		} else {
			r.W += increment
		}
		r.lastNorm = norm
	}
}

// writeSimple implements §4.5.1.
func (r *Recorder) writeSimple(input [][]float64, n int) {
	for ch, row := range r.buf.Channels {
		var in []float64
		if ch < len(input) {
			in = input[ch]
		}
		for i := 0; i < n; i++ {
			pos := wrapIndex(r.W+i, 0, float64(len(row)), len(row))
			x := 0.0
			if i < len(in) {
				x = in[i]
			}
			if r.Overdub <= 0 {
				row[pos] = x
			} else {
				mix := r.Overdub
				row[pos] = x*(1-mix) + row[pos]*mix
			}
		}
	}
}

// writeBandSplit implements §4.5.2.
func (r *Recorder) writeBandSplit(input [][]float64, n int) {
	for ch, row := range r.buf.Channels {
		var in []float64
		if ch < len(input) {
			in = input[ch]
		}
		frames := len(row)
		for i := 0; i < n; i++ {
			pos := wrapIndex(r.W+i, 0, float64(frames), frames)
			existing := row[pos]
			x := 0.0
			if i < len(in) {
				x = in[i]
			}

			bandSum := 0.0
			residual := existing
			for _, f := range r.bands {
				if ch >= len(f.bufferSide) {
					continue
				}
				b := f.bufferSide[ch].Process(residual)
				bandSum += b * f.Overdub
				residual -= b
			}
			bufferTail := residual * r.Overdub

			residual = x
			for _, f := range r.bands {
				if ch >= len(f.inputSide) {
					continue
				}
				bp := f.inputSide[ch].Process(residual)
				bandSum += bp * (1 - f.Overdub)
				residual -= bp
			}
			inputTail := residual * (1 - r.Overdub)

			row[pos] = bandSum + bufferTail + inputTail
		}
	}
}

func normalizedHead(w int, buf *SourceBuffer) float64 {
	frames := buf.Frames()
	if frames == 0 {
		return 0
	}
	return float64(((w % frames) + frames) % frames) / float64(frames)
}

func mod2(x, m int) int {
	if m == 0 {
		return 0
	}
	r := x % m
	if r < 0 {
		r += m
	}
	return r
}

