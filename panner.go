// panner.go - equal-power pan from grain voices to output channels (§4.3).
package granular

import "sync"

// PanMode selects the distribution new pan positions are drawn from.
type PanMode int

const (
	PanBipolar PanMode = iota
	PanUnipolar
	PanStereo
)

// PanChannelConfig is the per-input-channel (per-voice) pan configuration.
type PanChannelConfig struct {
	Center       float64
	Spread       float64
	Quantization float64
	Mode         PanMode
}

// PannerIO is the per-callback binding for Panner.Process: Input/GrainState
// have one row per grain voice (§4.1's grain_output / grain_state), Output
// has one row per output channel.
type PannerIO struct {
	Input      [][]float64
	GrainState [][]float64
	Output     [][]float64
	BlockSize  int
}

// Panner pans each grain voice's mono output across OutChans output
// channels, changing pan position only at grain-reset boundaries (§4.3).
type Panner struct {
	mu        sync.Mutex
	OutChans  int
	configs   []PanChannelConfig
	lastPan   []float64
	rng       *xorshift64star
}

// NewPanner builds a panner for nVoices input channels and outChans output
// channels.
func NewPanner(nVoices, outChans int, seed uint64) *Panner {
	return &Panner{
		OutChans: outChans,
		configs:  make([]PanChannelConfig, nVoices),
		lastPan:  make([]float64, nVoices),
		rng:      newXorshift64star(seed),
	}
}

// Configure replaces channel c's pan configuration (a reconfiguration,
// serialized against Process by the shared mutex per §5).
func (p *Panner) Configure(c int, cfg PanChannelConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c < 0 || c >= len(p.configs) {
		return
	}
	p.configs[c] = cfg
}

// SetOutChans changes the output channel count.
func (p *Panner) SetOutChans(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.OutChans = n
}

func (p *Panner) newPanPosition(cfg PanChannelConfig) float64 {
	var pos float64
	switch cfg.Mode {
	case PanUnipolar:
		pos = cfg.Center + cfg.Spread*p.rng.unitUniform()
	case PanStereo:
		dev := cfg.Center + cfg.Spread/2*p.rng.bipolarUniform()
		pos = clamp(dev, 0, 1)
	default: // PanBipolar
		pos = cfg.Center + cfg.Spread*p.rng.bipolarUniform()
	}
	if cfg.Quantization > 0 {
		pos = float64(int(pos/cfg.Quantization+0.5)) * cfg.Quantization
	}
	return pos
}

// Process pans every input channel's sub-block into io.Output (§4.3).
func (p *Panner) Process(io *PannerIO) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if io.BlockSize < SubBlockSize || p.OutChans < 1 {
		return
	}
	for c := 0; c < len(p.configs) && c < len(io.Input); c++ {
		in := io.Input[c]
		state := io.GrainState[c]
		if in == nil {
			continue
		}

		if sumAbsZero(state, io.BlockSize) {
			continue // fast path: no active grain this sub-block
		}
		idx := io.BlockSize
		for j := 0; j < io.BlockSize && j < len(state); j++ {
			if state[j] == 0 {
				idx = j
				break
			}
		}

		newPos := p.lastPan[c]
		if idx < io.BlockSize {
			newPos = p.newPanPosition(p.configs[c])
		}

		for j := 0; j < io.BlockSize; j++ {
			pos := p.lastPan[c]
			if j >= idx {
				pos = newPos
			}
			pos = mod(pos, float64(p.OutChans))
			low := int(pos)
			high := (low + 1) % p.OutChans
			mix := pos - float64(low)

			val := 0.0
			if j < len(in) {
				val = in[j]
			}
			addAt(io.Output, low, j, val*sampleQuarterSine((1-mix)*float64(quarterLUTSize-1)))
			addAt(io.Output, high, j, val*sampleQuarterSine(mix*float64(quarterLUTSize-1)))
		}
		p.lastPan[c] = newPos
	}
}

// sumAbsZero reports whether grain_state is zero for the whole sub-block
// (no active grain at all), per §4.3's fast-path skip condition.
func sumAbsZero(state []float64, n int) bool {
	if len(state) == 0 {
		return false
	}
	for j := 0; j < n && j < len(state); j++ {
		if state[j] != 0 {
			return false
		}
	}
	return true
}

func addAt(rows [][]float64, r, idx int, v float64) {
	if r < 0 || r >= len(rows) {
		return
	}
	row := rows[r]
	if idx < 0 || idx >= len(row) {
		return
	}
	row[idx] += v
}
