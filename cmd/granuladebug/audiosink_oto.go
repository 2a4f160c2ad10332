//go:build !headless

// audiosink_oto.go - oto/v3-backed audio output for the granuladebug demo.
package main

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// OtoSink plays an Engine's output through the system's default audio
// device. The engine pointer is atomic so Read (the oto callback thread)
// never blocks behind setup/control operations.
type OtoSink struct {
	ctx     *oto.Context
	player  *oto.Player
	engine  atomic.Pointer[Engine]
	frame   []float32
	started bool
	mutex   sync.Mutex
}

// NewOtoSink opens the default output device at sampleRate with outChans
// channels of 32-bit float samples.
func NewOtoSink(sampleRate, outChans int) (*OtoSink, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: outChans,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4096,
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, err
	}
	<-ready
	return &OtoSink{ctx: ctx, frame: make([]float32, outChans)}, nil
}

// SetupPlayer binds the engine this sink reads from.
func (s *OtoSink) SetupPlayer(e *Engine) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.engine.Store(e)
	s.player = s.ctx.NewPlayer(s)
}

// Read implements io.Reader for oto: fills p with interleaved float32LE
// samples pulled from the bound engine.
func (s *OtoSink) Read(p []byte) (int, error) {
	e := s.engine.Load()
	if e == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	outChans := len(s.frame)
	bytesPerFrame := 4 * outChans
	frames := len(p) / bytesPerFrame
	for f := 0; f < frames; f++ {
		e.ReadInto(s.frame)
		for c := 0; c < outChans; c++ {
			putFloat32LE(p[(f*outChans+c)*4:], s.frame[c])
		}
	}
	return frames * bytesPerFrame, nil
}

func putFloat32LE(b []byte, v float32) {
	bits := math.Float32bits(v)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}

// Start begins playback.
func (s *OtoSink) Start() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.started && s.player != nil {
		s.player.Play()
		s.started = true
	}
}

// Stop halts playback.
func (s *OtoSink) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.started && s.player != nil {
		s.player.Pause()
		s.started = false
	}
}

// Close releases the sink's resources.
func (s *OtoSink) Close() {
	s.Stop()
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.player != nil {
		s.player.Close()
		s.player = nil
	}
}
