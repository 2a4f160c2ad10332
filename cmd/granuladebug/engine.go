// engine.go - wires a GrainCollection and Panner into something an
// AudioSink can pull interleaved samples from, one block at a time.
package main

import (
	"sync"

	"github.com/grainforge/granular"
)

const blockFrames = granular.SubBlockSize * 64

// Engine drives one collection + panner pair at a fixed sample rate and
// keeps a rendered block ready for the audio sink to drain.
type Engine struct {
	mu         sync.Mutex
	collection *granular.GrainCollection
	panner     *granular.Panner
	io         *granular.IOConfig
	pannerIO   *granular.PannerIO

	clockHz    float64
	sampleRate float64
	phase      []float64

	block    [][]float64 // [outChans][blockFrames]
	readPos  int
	outChans int
}

// NewEngine builds an engine for nVoices grains panned across outChans
// output channels, driven by a clockHz grain-reset rate.
func NewEngine(nVoices, outChans int, sampleRate, clockHz float64, seed uint64) *Engine {
	col := granular.NewGrainCollection(nVoices, seed)
	pan := granular.NewPanner(nVoices, outChans, seed^0xABCD1234)
	col.SetAutoOverlap(true)
	for c := 0; c < outChans; c++ {
		pan.Configure(c%nVoices, granular.PanChannelConfig{
			Center: float64(c), Spread: 0.5, Mode: granular.PanUnipolar,
		})
	}
	col.SetActiveGrains(nVoices)
	col.StreamAssign(granular.StreamAutomatic, outChans)

	mk := func(rows int) [][]float64 {
		out := make([][]float64, rows)
		for i := range out {
			out[i] = make([]float64, blockFrames)
		}
		return out
	}
	io := &granular.IOConfig{
		GrainClock:      mk(nVoices),
		TraversalPhasor: mk(nVoices),
		FM:              mk(nVoices),
		AM:              mk(nVoices),
		GrainOutput:     mk(nVoices),
		GrainState:      mk(nVoices),
		GrainProgress:   mk(nVoices),
		GrainPlayhead:   mk(nVoices),
		GrainAmp:        mk(nVoices),
		GrainEnvelope:   mk(nVoices),
		GrainBufferChan: mk(nVoices),
		GrainStreamChan: mk(nVoices),
		BlockSize:       blockFrames,
		SampleRate:      sampleRate,
	}

	e := &Engine{
		collection: col,
		panner:     pan,
		io:         io,
		pannerIO: &granular.PannerIO{
			Input:      io.GrainOutput,
			GrainState: io.GrainState,
			BlockSize:  blockFrames,
		},
		clockHz:    clockHz,
		sampleRate: sampleRate,
		phase:      make([]float64, nVoices),
		block:      mk(outChans),
		outChans:   outChans,
		readPos:    blockFrames,
	}
	return e
}

// SetBuffer binds the shared source buffer to every voice.
func (e *Engine) SetBuffer(buf *granular.SourceBuffer) {
	e.collection.SetBuffer(granular.BufferRoleSource, buf, 0)
}

// SetRate broadcasts a new playback rate to every voice.
func (e *Engine) SetRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.collection.Set(0, granular.ParamRate, granular.ParamBase, rate)
}

// SetAmplitude broadcasts a new amplitude to every voice.
func (e *Engine) SetAmplitude(amp float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.collection.Set(0, granular.ParamAmplitude, granular.ParamBase, amp)
}

// renderBlock advances the per-voice grain clocks, runs the collection and
// panner, and clears the output rows ready for the next block.
func (e *Engine) renderBlock() {
	for v := range e.io.GrainClock {
		row := e.io.GrainClock[v]
		phase := e.phase[v]
		inc := e.clockHz / e.sampleRate
		for i := range row {
			row[i] = phase
			phase += inc
			if phase >= 1 {
				phase -= 1
			}
		}
		e.phase[v] = phase
	}
	for _, row := range e.io.GrainOutput {
		for i := range row {
			row[i] = 0
		}
	}
	for _, row := range e.block {
		for i := range row {
			row[i] = 0
		}
	}
	e.pannerIO.Output = e.block

	e.collection.Process(e.io)
	e.panner.Process(e.pannerIO)
}

// ReadInto writes one interleaved frame (outChans samples) into dst, which
// must have length >= outChans. No allocation on the steady-state path.
func (e *Engine) ReadInto(dst []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.readPos >= blockFrames {
		e.renderBlock()
		e.readPos = 0
	}
	for c := 0; c < e.outChans && c < len(dst); c++ {
		dst[c] = float32(e.block[c][e.readPos])
	}
	e.readPos++
}
