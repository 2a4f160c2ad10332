// granuladebug is an interactive demo host for the granular engine: it
// synthesizes a few source buffers, drives a small voice collection off a
// fixed grain clock, and plays the panned result through the default audio
// device while [ ] and -/= retune rate and amplitude from the keyboard.
package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grainforge/granular"
)

const (
	sampleRate = 48000.0
	outChans   = 2
	numVoices  = 8
	clockHz    = 6.0
)

// buildSourceBuffers synthesizes the demo's source buffer (a tone mixed with
// noise) and an envelope bank, concurrently (promotes golang.org/x/sync/errgroup
// from an indirect to a direct dependency).
func buildSourceBuffers() (*granular.SourceBuffer, *granular.SourceBuffer, error) {
	const frames = int(sampleRate * 2) // 2 seconds

	source := granular.NewSourceBuffer(1, frames, sampleRate)
	envelopes := granular.NewSourceBuffer(1, frames, sampleRate)

	var g errgroup.Group
	g.Go(func() error {
		synthesizeTonePlusNoise(source.Channels[0])
		return nil
	})
	g.Go(func() error {
		synthesizeEnvelopeBank(envelopes.Channels[0], 4)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return source, envelopes, nil
}

func synthesizeTonePlusNoise(buf []float64) {
	rngState := uint64(0x2545F4914F6CDD1D)
	nextRand := func() float64 {
		rngState ^= rngState >> 12
		rngState ^= rngState << 25
		rngState ^= rngState >> 27
		return float64(rngState>>11) / (1 << 53)
	}
	for i := range buf {
		tone := math.Sin(2 * math.Pi * 220 * float64(i) / sampleRate)
		noise := 2*nextRand() - 1
		buf[i] = 0.8*tone + 0.2*noise
	}
}

func synthesizeEnvelopeBank(buf []float64, nEnvelopes int) {
	perEnv := len(buf) / nEnvelopes
	for e := 0; e < nEnvelopes; e++ {
		shape := float64(e+1) / float64(nEnvelopes)
		for i := 0; i < perEnv; i++ {
			t := float64(i) / float64(perEnv)
			buf[e*perEnv+i] = math.Pow(math.Sin(math.Pi*t), 1+3*shape)
		}
	}
}

func main() {
	source, envelopes, err := buildSourceBuffers()
	if err != nil {
		fmt.Fprintf(os.Stderr, "granuladebug: failed to build source buffers: %v\n", err)
		os.Exit(1)
	}

	engine := NewEngine(numVoices, outChans, sampleRate, clockHz, 1)
	engine.SetBuffer(source)
	engine.collection.SetBuffer(granular.BufferRoleEnvelope, envelopes, 0)

	sink, err := NewOtoSink(int(sampleRate), outChans)
	if err != nil {
		fmt.Fprintf(os.Stderr, "granuladebug: failed to open audio output: %v\n", err)
		os.Exit(1)
	}
	defer sink.Close()

	sink.SetupPlayer(engine)
	sink.Start()
	defer sink.Stop()

	kc := NewKeyController(engine)
	kc.Start()
	defer kc.Stop()

	fmt.Println("granuladebug: [ ] adjust rate, -/= adjust amplitude, q to quit")
	<-kc.done
	time.Sleep(50 * time.Millisecond)
}
