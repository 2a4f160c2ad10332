//go:build headless

// audiosink_headless.go - a no-op sink for headless test/CI runs.
package main

// OtoSink (headless stub) drains the engine without touching real audio
// hardware, mirroring the default build's interface.
type OtoSink struct {
	engine *Engine
}

func NewOtoSink(sampleRate, outChans int) (*OtoSink, error) {
	return &OtoSink{}, nil
}

func (s *OtoSink) SetupPlayer(e *Engine) { s.engine = e }
func (s *OtoSink) Start()                {}
func (s *OtoSink) Stop()                 {}
func (s *OtoSink) Close()                {}
