package granular

import (
	"math"
	"testing"
)

func TestPannerExactChannelGetsAllEnergy(t *testing.T) {
	p := NewPanner(1, 4, 1)
	p.Configure(0, PanChannelConfig{Center: 1, Spread: 0, Mode: PanUnipolar})
	p.lastPan[0] = 1 // pretend we've already settled on channel 1

	in := make([]float64, SubBlockSize)
	for i := range in {
		in[i] = 1.0
	}
	state := make([]float64, SubBlockSize)
	for i := range state {
		state[i] = 1 // no reset this sub-block, so pan position carries over
	}
	out := make([][]float64, 4)
	for i := range out {
		out[i] = make([]float64, SubBlockSize)
	}

	p.Process(&PannerIO{
		Input:      [][]float64{in},
		GrainState: [][]float64{state},
		Output:     out,
		BlockSize:  SubBlockSize,
	})

	for j := 0; j < SubBlockSize; j++ {
		if math.Abs(out[1][j]-1.0) > 1e-9 {
			t.Fatalf("channel 1 sample %d = %v want 1.0", j, out[1][j])
		}
		for c := 0; c < 4; c++ {
			if c == 1 {
				continue
			}
			if math.Abs(out[c][j]) > 1e-9 {
				t.Fatalf("channel %d sample %d = %v want 0", c, j, out[c][j])
			}
		}
	}
}

func TestPannerEqualPowerAtHalf(t *testing.T) {
	p := NewPanner(1, 4, 1)
	p.Configure(0, PanChannelConfig{Center: 1.5, Spread: 0, Mode: PanUnipolar})
	p.lastPan[0] = 1.5

	in := make([]float64, SubBlockSize)
	for i := range in {
		in[i] = 1.0
	}
	state := make([]float64, SubBlockSize)
	for i := range state {
		state[i] = 1
	}
	out := make([][]float64, 4)
	for i := range out {
		out[i] = make([]float64, SubBlockSize)
	}

	p.Process(&PannerIO{
		Input:      [][]float64{in},
		GrainState: [][]float64{state},
		Output:     out,
		BlockSize:  SubBlockSize,
	})

	// At exactly the midpoint between channels 1 and 2, equal-power split
	// means both get sampleQuarterSine at the 0.5 mix point -> equal energy.
	e1 := out[1][0] * out[1][0]
	e2 := out[2][0] * out[2][0]
	if math.Abs(e1-e2) > 1e-6 {
		t.Fatalf("energy mismatch at half pan: %v vs %v", e1, e2)
	}
}

func TestPannerFastPathSkipsSilentChannel(t *testing.T) {
	p := NewPanner(1, 2, 1)
	p.Configure(0, PanChannelConfig{Center: 0, Spread: 0, Mode: PanUnipolar})

	in := make([]float64, SubBlockSize)
	state := make([]float64, SubBlockSize)
	for i := range state {
		state[i] = 0 // all-zero state: fast path should skip entirely
	}
	out := [][]float64{make([]float64, SubBlockSize), make([]float64, SubBlockSize)}

	p.Process(&PannerIO{
		Input:      [][]float64{in},
		GrainState: [][]float64{state},
		Output:     out,
		BlockSize:  SubBlockSize,
	})
	for c := range out {
		for _, v := range out[c] {
			if v != 0 {
				t.Fatal("fast path should have skipped this channel")
			}
		}
	}
}
