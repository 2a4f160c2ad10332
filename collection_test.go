package granular

import (
	"math"
	"testing"
)

func TestCollectionSetBroadcastAndTarget(t *testing.T) {
	c := NewGrainCollection(4, 1)
	if rc := c.Set(0, ParamAmplitude, ParamBase, 0.5); rc != Success {
		t.Fatalf("broadcast set failed: %v", rc)
	}
	for i := 0; i < 4; i++ {
		if v, _ := c.Voice(i).GetParam(ParamAmplitude); v != 0.5 {
			t.Fatalf("voice %d amplitude=%v want 0.5", i, v)
		}
	}
	if rc := c.Set(2, ParamAmplitude, ParamBase, 0.9); rc != Success {
		t.Fatalf("targeted set failed: %v", rc)
	}
	if v, _ := c.Voice(1).GetParam(ParamAmplitude); v != 0.9 {
		t.Fatalf("voice 1 (target=2) amplitude=%v want 0.9", v)
	}
	if v, _ := c.Voice(0).GetParam(ParamAmplitude); v != 0.5 {
		t.Fatalf("voice 0 amplitude should be untouched: %v", v)
	}
}

func TestCollectionSetInfiniteTargetIsError(t *testing.T) {
	c := NewGrainCollection(2, 1)
	if rc := c.Set(math.Inf(1), ParamRate, ParamBase, 1); rc != Error {
		t.Fatalf("expected Error for infinite target, got %v", rc)
	}
}

func TestCollectionTransposeTransform(t *testing.T) {
	c := NewGrainCollection(1, 1)
	c.Set(1, ParamTranspose, ParamBase, 12) // one octave up
	v, _ := c.Voice(0).GetParam(ParamRate)
	if math.Abs(v-2.0) > 1e-9 {
		t.Fatalf("transpose(12) -> rate.base=%v want 2.0", v)
	}
}

func TestCollectionAmplitudeModDepthClamp(t *testing.T) {
	c := NewGrainCollection(1, 1)
	c.Set(1, ParamAmplitude, ParamRandom, 2.0) // -> clamp(-2,-1,0) = -1
	got := c.Voice(0).amplitude.random
	if got != -1 {
		t.Fatalf("amplitudeRandom transform = %v want -1", got)
	}
	c.Set(1, ParamAmplitude, ParamRandom, -0.3) // -> clamp(0.3,-1,0) = 0
	got = c.Voice(0).amplitude.random
	if got != 0 {
		t.Fatalf("amplitudeRandom transform = %v want 0", got)
	}
}

func TestCollectionReflectDispatch(t *testing.T) {
	c := NewGrainCollection(2, 1)
	if rc := c.SetByName(0, "rate", 1.5); rc != Success {
		t.Fatalf("SetByName failed: %v", rc)
	}
	if v, _ := c.Voice(0).GetParam(ParamRate); v != 1.5 {
		t.Fatalf("rate=%v want 1.5", v)
	}
	if rc := c.SetByName(0, "bogus", 1); rc != ParamNotFound {
		t.Fatalf("expected ParamNotFound, got %v", rc)
	}
}

func TestStreamAssignAutomatic(t *testing.T) {
	c := NewGrainCollection(6, 1)
	c.StreamAssign(StreamAutomatic, 3)
	for g, v := range c.voices {
		if v.streamID != g%3 {
			t.Fatalf("voice %d streamID=%d want %d", g, v.streamID, g%3)
		}
	}
}

func TestStreamSetOneBased(t *testing.T) {
	c := NewGrainCollection(4, 1)
	c.StreamAssign(StreamAutomatic, 2) // streamID 0,1,0,1
	c.StreamSet(1, ParamRate, ParamBase, 9)
	for g, v := range c.voices {
		want := 1.0
		if g%2 == 0 {
			want = 9.0
		}
		if got, _ := v.GetParam(ParamRate); got != want {
			t.Fatalf("voice %d rate=%v want %v", g, got, want)
		}
	}
}

func TestChannelsSetInterleaved(t *testing.T) {
	c := NewGrainCollection(5, 1)
	c.ChannelsSetInterleaved(2)
	want := []float64{0, 1, 0, 1, 0}
	for g, v := range c.voices {
		if v.channel.base != want[g] {
			t.Fatalf("voice %d channel.base=%v want %v", g, v.channel.base, want[g])
		}
	}
}

func TestSetActiveGrainsAutoOverlap(t *testing.T) {
	c := NewGrainCollection(4, 1)
	c.SetAutoOverlap(true)
	c.SetActiveGrains(2)
	if !c.Voice(0).Enabled() || !c.Voice(1).Enabled() {
		t.Fatal("first 2 voices should be enabled")
	}
	if c.Voice(2).Enabled() || c.Voice(3).Enabled() {
		t.Fatal("remaining voices should be disabled")
	}
	if c.Voice(0).window.offset != 0.5 || c.Voice(1).window.offset != 0.5 {
		t.Fatal("active voices should have window.offset=1/n staggering")
	}
}

func TestGrainParamFunc(t *testing.T) {
	c := NewGrainCollection(4, 1)
	c.GrainParamFunc(ParamAmplitude, ParamBase, func(a, b, t float64) float64 {
		return a + b*t
	}, 0, 1)
	for g, v := range c.voices {
		want := float64(g) / 4.0
		if got, _ := v.GetParam(ParamAmplitude); math.Abs(got-want) > 1e-9 {
			t.Fatalf("voice %d amplitude=%v want %v", g, got, want)
		}
	}
}

func TestSetBufferBroadcastAndTarget(t *testing.T) {
	c := NewGrainCollection(3, 1)
	buf := NewSourceBuffer(1, 100, 48000)
	if rc := c.SetBufferByName("buf", buf, 0); rc != Success {
		t.Fatalf("SetBufferByName failed: %v", rc)
	}
	for _, v := range c.voices {
		if v.sourceBuf != buf {
			t.Fatal("broadcast buffer bind failed")
		}
	}
	if rc := c.SetBufferByName("bogus", buf, 0); rc != ParamNotFound {
		t.Fatalf("expected ParamNotFound, got %v", rc)
	}
}
