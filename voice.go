// voice.go - the grain voice: per-voice state machine and signal pipeline
// that turns a driving phasor into one rendered grain-stream (§4.1).
package granular

import (
	"math"
	"sync/atomic"
)

// SubBlockSize (B) is the fixed sub-block length grains are processed in.
const SubBlockSize = 16

const resetEpsilon = 1e-7

// Grain is one voice of a GrainCollection: a per-voice state machine and
// signal pipeline (§3 "Grain voice").
type Grain struct {
	index    int
	streamID int

	enabled         bool
	enabledInternal bool
	windowChanged   bool

	sourceSample   float64
	lastGrainClock float64

	v [2]ValueTable // v[0]=pre-reset, v[1]=post-reset (§3 invariants)

	// Non-owning buffer handles (§3 "Buffer abstraction", §9 "capability record").
	sourceBuf    *SourceBuffer
	envelopeBuf  *SourceBuffer
	rateCtlBuf   *SourceBuffer
	delayCtlBuf  *SourceBuffer
	windowCtlBuf *SourceBuffer
	glissonCtlBuf *SourceBuffer

	vibratoPhase float64

	// Parameters (§3 ParamName, minus the three virtual names which never
	// live on a voice directly).
	delay             Param
	rate              Param
	glisson           Param
	glissonRows       Param
	glissonPosition   Param
	window            Param
	amplitude         Param
	space             Param
	envelopePosition  Param
	nEnvelopes        Param
	direction         Param
	startPoint        Param
	stopPoint         Param
	rateQuantizeSemi  Param
	loopMode          Param
	channel           Param
	density           Param
	vibratoRate       Param
	vibratoDepth      Param

	rng *xorshift64star

	// busy is set by the control thread around a parameter write and
	// checked (non-blocking) inside the reset step (§5 "Parameter writes").
	busy atomic.Bool

	delaySeqPos  int
	rateSeqPos   int
	windowSeqPos int
	glissonSeqPos int
}

// NewGrain constructs a voice with sane defaults: rate/amplitude at unity,
// direction forward, density and n_envelopes at 1, stop_point at 1.0 (the
// whole buffer is in range by default), everything else at zero.
func NewGrain(index int, seed uint64) *Grain {
	g := &Grain{index: index, rng: newXorshift64star(seed)}
	g.rate.base = 1
	g.amplitude.base = 1
	g.direction.base = 1
	g.stopPoint.base = 1
	g.density.base = 1
	g.nEnvelopes.base = 1
	g.enabled = true
	g.enabledInternal = true
	return g
}

// SetEnabled toggles the external enable flag. A disabled voice finishes its
// current grain before enabledInternal follows (§3 invariants).
func (g *Grain) SetEnabled(on bool) { g.enabled = on }

// Enabled reports the external enable flag.
func (g *Grain) Enabled() bool { return g.enabled }

// paramByName returns a pointer to the named field, for collection-level
// addressing. ok is false for virtual names (transpose/glissonSt/stream),
// which the collection resolves before ever calling this.
func (g *Grain) paramByName(name ParamName) (*Param, bool) {
	switch name {
	case ParamDelay:
		return &g.delay, true
	case ParamRate:
		return &g.rate, true
	case ParamGlisson:
		return &g.glisson, true
	case ParamGlissonRows:
		return &g.glissonRows, true
	case ParamGlissonPosition:
		return &g.glissonPosition, true
	case ParamWindow:
		return &g.window, true
	case ParamAmplitude:
		return &g.amplitude, true
	case ParamSpace:
		return &g.space, true
	case ParamEnvelopePosition:
		return &g.envelopePosition, true
	case ParamNEnvelopes:
		return &g.nEnvelopes, true
	case ParamDirection:
		return &g.direction, true
	case ParamStartPoint:
		return &g.startPoint, true
	case ParamStopPoint:
		return &g.stopPoint, true
	case ParamRateQuantizeSemi:
		return &g.rateQuantizeSemi, true
	case ParamLoopMode:
		return &g.loopMode, true
	case ParamChannel:
		return &g.channel, true
	case ParamDensity:
		return &g.density, true
	case ParamVibratoRate:
		return &g.vibratoRate, true
	case ParamVibratoDepth:
		return &g.vibratoDepth, true
	default:
		return nil, false
	}
}

// SetParam writes one field of the named parameter. The write is wrapped in
// the busy guard described in §5: set, write, clear, all non-blocking.
func (g *Grain) SetParam(name ParamName, typ ParamType, value float64) bool {
	p, ok := g.paramByName(name)
	if !ok {
		return false
	}
	g.busy.Store(true)
	p.Set(typ, value)
	g.busy.Store(false)
	return true
}

// GetParam reads the base field of the named parameter.
func (g *Grain) GetParam(name ParamName) (float64, bool) {
	p, ok := g.paramByName(name)
	if !ok {
		return 0, false
	}
	return p.Get(ParamBase), true
}

// SetBuffer binds a buffer role to this voice.
func (g *Grain) SetBuffer(role BufferRole, buf *SourceBuffer) {
	switch role {
	case BufferRoleSource:
		g.sourceBuf = buf
	case BufferRoleEnvelope:
		g.envelopeBuf = buf
	case BufferRoleRate:
		g.rateCtlBuf = buf
	case BufferRoleDelay:
		g.delayCtlBuf = buf
	case BufferRoleWindow:
		g.windowCtlBuf = buf
	case BufferRoleGlisson:
		g.glissonCtlBuf = buf
	}
}

// BufferRole enumerates the six buffer roles a voice can bind (§4.2
// "Buffer binding").
type BufferRole int

const (
	BufferRoleSource BufferRole = iota
	BufferRoleEnvelope
	BufferRoleRate
	BufferRoleDelay
	BufferRoleWindow
	BufferRoleGlisson
)

func isReset(prev, curr float64) bool {
	descent := prev >= resetEpsilon && curr < resetEpsilon && curr < prev
	rising := prev <= resetEpsilon && curr > resetEpsilon
	return descent || rising
}

// sampleControlBuffer draws a [0,1) control value from buf's first channel
// according to mode: BufferSequence advances a per-parameter cursor one step
// per reset; BufferRandom draws a uniformly random position each reset.
func sampleControlBuffer(buf *SourceBuffer, mode BufferMode, seqPos *int, rng *xorshift64star) (float64, bool) {
	if buf == nil || mode == BufferNormal || buf.NumChannels() == 0 {
		return 0, false
	}
	data := buf.Channels[0]
	if len(data) == 0 {
		return 0, false
	}
	var idx int
	switch mode {
	case BufferSequence:
		idx = *seqPos % len(data)
		*seqPos++
	case BufferRandom:
		idx = int(rng.unitUniform() * float64(len(data)))
		if idx >= len(data) {
			idx = len(data) - 1
		}
	}
	return data[idx], true
}

// Process renders one sub-block of SubBlockSize samples for this voice into
// io's output rows at column offset, reading inputs from the same offset.
func (g *Grain) Process(io *IOConfig, offset int) {
	B := SubBlockSize
	if io.BlockSize < B || offset+B > io.BlockSize {
		return
	}

	clock := sliceAt(inputRow(io.GrainClock, g.index), offset, B)
	traversal := sliceAt(inputRow(io.TraversalPhasor, g.index), offset, B)
	fm := sliceAt(inputRow(io.FM, g.index), offset, B)
	am := sliceAt(inputRow(io.AM, g.index), offset, B)

	if len(clock) < 2 || clock[0] == clock[1] {
		return
	}

	info := RefreshBufferInfo(g.sourceBuf, io.SampleRate)

	// Step 1: window-shape the grain clock.
	windowPortion := 1.0 / clamp(1-g.space.value, 1e-4, 1)
	var progress [SubBlockSize]float64
	for j := 0; j < B; j++ {
		p := mod(clock[j]+g.window.value, 1.0) * windowPortion
		if p > 1.0 {
			p = 1.0
		}
		progress[j] = p
	}

	// Step 2: detect reset + emit grain state.
	var grainState [SubBlockSize]float64
	for j := range grainState {
		grainState[j] = 1
	}
	resetPos := -1
	if isReset(g.lastGrainClock, progress[0]) {
		resetPos = 0
	}
	for j := 1; j < B; j++ {
		if resetPos >= 0 {
			break
		}
		if isReset(progress[j-1], progress[j]) {
			resetPos = j
		}
	}
	if resetPos >= 0 {
		grainState[resetPos] = 0
	}
	g.lastGrainClock = progress[B-1]

	// v[0] mirrors the state carried into this sub-block.
	g.v[0] = g.v[1]

	if resetPos >= 0 {
		g.enabledInternal = g.enabled // enabled_internal only follows at a zero crossing
		if !g.busy.Load() {
			g.onReset(resetPos, traversal, info)
		}
	}

	if g.windowChanged {
		g.windowChanged = false
		g.zeroOutputs(io, offset, B, &grainState)
		return
	}

	if info.BufferFrames == 0 {
		g.zeroOutputs(io, offset, B, &grainState)
		return
	}

	start := info.BufferFrames * g.startPoint.value
	end := info.BufferFrames * g.stopPoint.value
	if start > end {
		start, end = end, start
	}
	foldReflect := g.loopMode.base > 1.1

	var samplePositions [SubBlockSize]float64

	if start == end {
		// Degenerate window: skip the position-advance step only. Positions
		// hold at the last value and the rest of the pipeline (envelope,
		// buffer read, value-table mix, output) still runs (§7;
		// gfGrain.h:354-355/483-497).
		for j := 0; j < B; j++ {
			samplePositions[j] = g.sourceSample
		}
	} else {
		var delta [SubBlockSize]float64
		var glissonEnv [SubBlockSize]float64

		if g.glisson.mode != BufferNormal {
			for j := 0; j < B; j++ {
				glissonEnv[j] = sampleEnvelope(g.glissonCtlBuf, g.glissonPosition.value, g.nEnvelopes.value, progress[j])
			}
		}

		for j := 0; j < B; j++ {
			fmVal := fmAt(fm, j)
			if g.vibratoRate.value > 0 && g.vibratoDepth.value > 0 {
				g.vibratoPhase = mod(g.vibratoPhase+g.vibratoRate.value/maxFloat(io.SampleRate, 1), 1.0)
				sine := math.Sin(2 * math.Pi * g.vibratoPhase)
				fmVal += sine * g.vibratoDepth.value * 0.5
			}

			var glissonTerm float64
			if g.glisson.mode == BufferNormal {
				glissonTerm = 1 + g.glisson.value*progress[j]
			} else {
				glissonTerm = 1 + glissonEnv[j]*g.glisson.value*progress[j]
			}

			delta[j] = centsToRatio(fmVal) * info.SampleRateAdjustment * g.rate.value * g.direction.value * glissonTerm

			if j == 0 {
				samplePositions[0] = g.sourceSample
			} else {
				samplePositions[j] = samplePositions[j-1] + delta[j-1]
			}
		}
		g.sourceSample = mod(samplePositions[B-1]+delta[B-1], 2*info.BufferFrames)
	}

	lock := TryLock(g.sourceBuf)
	defer lock.Unlock()

	for j := 0; j < B; j++ {
		folded := pong(samplePositions[j], start, end, foldReflect)

		// Step 5: envelope.
		envelope := sampleEnvelope(g.envelopeBuf, g.envelopePosition.value, g.nEnvelopes.value, progress[j])

		// Step 6: source buffer.
		var raw float64
		if lock.Valid() && !math.IsNaN(folded) {
			raw = linearSample(g.sourceBuf, int(math.Floor(g.channel.value)), folded, start, end)
		}

		// Step 7: value-table selection.
		vt := g.v[int(grainState[j])]

		// Step 8: output mix.
		playhead := folded * info.InvBufferFrames * vt.Density
		amAt := 0.0
		if am != nil && j < len(am) {
			amAt = am[j]
		}
		ampEnv := (1 - amAt) * vt.Amplitude * vt.Density
		envFinal := envelope * vt.Density
		output := raw * ampEnv * 0.5 * envFinal
		if !g.enabledInternal {
			output = 0
		}

		setAt(io.GrainOutput, g.index, offset+j, output)
		setAt(io.GrainState, g.index, offset+j, grainState[j])
		setAt(io.GrainProgress, g.index, offset+j, progress[j])
		setAt(io.GrainPlayhead, g.index, offset+j, playhead)
		setAt(io.GrainAmp, g.index, offset+j, ampEnv)
		setAt(io.GrainEnvelope, g.index, offset+j, envFinal)
		setAt(io.GrainBufferChan, g.index, offset+j, math.Floor(g.channel.value)+1)
		setAt(io.GrainStreamChan, g.index, offset+j, float64(g.streamID+1))
	}
}

// onReset performs step 3 (a)-(h): the per-boundary stochastic sampling.
func (g *Grain) onReset(pos int, traversal []float64, info BufferInfo) {
	// (a) delay.
	if g.delay.mode != BufferNormal {
		if v, ok := sampleControlBuffer(g.delayCtlBuf, g.delay.mode, &g.delaySeqPos, g.rng); ok {
			g.delay.value = v
		} else {
			g.delay.Sample(g.index, g.rng)
		}
	} else {
		g.delay.Sample(g.index, g.rng)
	}

	// (b) source position.
	if info.BufferFrames > 0 {
		delaySamples := g.delay.value * info.BufferFrames
		pos0 := 0.0
		if pos < len(traversal) {
			pos0 = traversal[pos]
		}
		g.sourceSample = mod(pos0*info.BufferFrames-delaySamples-1, info.BufferFrames)
	}

	// (c) rate, quantized.
	if g.rate.mode != BufferNormal {
		if v, ok := sampleControlBuffer(g.rateCtlBuf, g.rate.mode, &g.rateSeqPos, g.rng); ok {
			g.rate.value = v
		} else {
			g.rate.Sample(g.index, g.rng)
		}
	} else {
		g.rate.Sample(g.index, g.rng)
	}
	step := 1 - g.rateQuantizeSemi.value
	if step > 1e-6 {
		g.rate.value = math.Round((g.rate.value-1)/step)*step + 1
	}

	// (d) window, guarded by the change latch.
	preWindow := g.window.value
	var newWindow float64
	if g.window.mode != BufferNormal {
		if v, ok := sampleControlBuffer(g.windowCtlBuf, g.window.mode, &g.windowSeqPos, g.rng); ok {
			newWindow = v
		} else {
			newWindow = g.window.Sample(g.index, g.rng)
		}
	} else {
		newWindow = g.window.Sample(g.index, g.rng)
	}
	g.window.value = newWindow
	g.windowChanged = math.Abs(newWindow-preWindow) > 1e-8

	// (e) stochastic parameters.
	g.space.Sample(g.index, g.rng)
	if g.glisson.mode != BufferNormal {
		if v, ok := sampleControlBuffer(g.glissonCtlBuf, g.glisson.mode, &g.glissonSeqPos, g.rng); ok {
			g.glisson.value = v
		} else {
			g.glisson.Sample(g.index, g.rng)
		}
	} else {
		g.glisson.Sample(g.index, g.rng)
	}
	g.envelopePosition.Sample(g.index, g.rng)
	g.amplitude.Sample(g.index, g.rng)
	g.startPoint.Sample(g.index, g.rng)
	g.stopPoint.Sample(g.index, g.rng)
	g.glissonPosition.Sample(g.index, g.rng)
	g.vibratoRate.Sample(g.index, g.rng)
	g.vibratoDepth.Sample(g.index, g.rng)

	// (f) channel.
	nch := info.NumChannels
	if nch < 1 {
		nch = 1
	}
	g.channel.SampleNormalized(g.index, nch, g.rng)

	// (g) grain enable gate -> becomes the value-table density gate.
	enabledGrain := g.density.base > g.rng.unitUniform()
	densityGate := 0.0
	if enabledGrain {
		densityGate = 1.0
	}

	// (h) direction.
	switch {
	case g.direction.base >= 1:
		g.direction.value = 1
	case g.direction.base <= -1:
		g.direction.value = -1
	default:
		if g.rng.unitUniform() < g.direction.base {
			g.direction.value = 1
		} else {
			g.direction.value = -1
		}
	}

	g.v[1] = ValueTable{
		Delay:            g.delay.value,
		Rate:             g.rate.value,
		Glisson:          g.glisson.value,
		Window:           g.window.value,
		Amplitude:        g.amplitude.value,
		Space:            g.space.value,
		EnvelopePosition: g.envelopePosition.value,
		Direction:        g.direction.value,
		Density:          densityGate,
	}
}

// sampleEnvelope reads the default Hann window when buf is nil or empty or
// nEnvelopes <= 1 (a bound buffer is then not read), otherwise treats buf as
// nEnvelopes concatenated envelopes and crossfades between the
// two nearest at fractional position progress (§4.1 step 5).
func sampleEnvelope(buf *SourceBuffer, position, nEnvelopes, progress float64) float64 {
	if buf == nil || buf.NumChannels() == 0 || nEnvelopes <= 1 {
		return sampleHann(progress)
	}
	data := buf.Channels[0]
	frames := len(data)
	if frames == 0 {
		return sampleHann(progress)
	}
	scaled := position * nEnvelopes
	idx0 := int(math.Floor(scaled))
	fade := scaled - float64(idx0)
	n := int(nEnvelopes)
	if n < 1 {
		n = 1
	}
	idx0 = ((idx0 % n) + n) % n
	idx1 := (idx0 + 1) % n
	perEnv := frames / n
	if perEnv < 1 {
		return sampleHann(progress)
	}
	e0 := readEnvelopeSlot(data, idx0, perEnv, progress)
	e1 := readEnvelopeSlot(data, idx1, perEnv, progress)
	return e0 + fade*(e1-e0)
}

func readEnvelopeSlot(data []float64, slot, perEnv int, progress float64) float64 {
	base := slot * perEnv
	posF := progress * float64(perEnv)
	i0 := int(posF)
	frac := posF - float64(i0)
	if i0 >= perEnv-1 {
		return data[base+perEnv-1]
	}
	return data[base+i0] + frac*(data[base+i0+1]-data[base+i0])
}

// zeroOutputs silences a sub-block's output/amp/envelope rows while leaving
// grain_state at the value already computed from the real reset detection
// (a voice that both resets and silences in the same sub-block must still
// report the reset at its actual sample, not a uniform non-reset row).
func (g *Grain) zeroOutputs(io *IOConfig, offset, n int, grainState *[SubBlockSize]float64) {
	for j := 0; j < n; j++ {
		setAt(io.GrainOutput, g.index, offset+j, 0)
		setAt(io.GrainState, g.index, offset+j, grainState[j])
		setAt(io.GrainAmp, g.index, offset+j, 0)
		setAt(io.GrainEnvelope, g.index, offset+j, 0)
	}
}

func sliceAt(row []float64, offset, n int) []float64 {
	if row == nil || offset+n > len(row) {
		return nil
	}
	return row[offset : offset+n]
}

func fmAt(fm []float64, j int) float64 {
	if fm == nil || j >= len(fm) {
		return 0
	}
	return fm[j]
}

func setAt(rows [][]float64, voice, idx int, v float64) {
	row := outputRow(rows, voice)
	if row == nil || idx >= len(row) {
		return
	}
	row[idx] = v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
