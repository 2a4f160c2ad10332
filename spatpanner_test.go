package granular

import (
	"math"
	"testing"
)

func TestDBAPGainProportional(t *testing.T) {
	s := NewSpatPanner()
	s.Method = MethodDBAP
	s.NSpeakers = 8
	s.DistanceThresh = 5
	s.Exponent = 1

	s.SetSpeakerPosition(0, Vec3{1, 0, 0})
	s.SetSpeakerPosition(1, Vec3{2, 0, 0})
	s.SetSpeakerPosition(2, Vec3{4, 0, 0})
	s.SetSpeakerPosition(3, Vec3{10, 0, 0}) // beyond distance_thresh
	s.SetSourcePosition(0, Vec3{0, 0, 0})

	st := s.sources[0]
	want := map[int]float64{0: 4.0 / 5, 1: 3.0 / 5, 2: 1.0 / 5}
	for id, w := range want {
		got, ok := st.gain[id]
		if !ok {
			t.Fatalf("missing gain for speaker %d", id)
		}
		if math.Abs(got-w) > 1e-9 {
			t.Fatalf("speaker %d gain=%v want %v", id, got, w)
		}
	}
	if _, ok := st.gain[3]; ok {
		t.Fatal("speaker beyond distance_thresh should be excluded")
	}
}

func TestVBAPGainNormalization(t *testing.T) {
	s := NewSpatPanner()
	s.Method = MethodVBAP
	s.NSpeakers = 2
	s.DistanceThresh = 10
	s.Exponent = 1

	s.SetSpeakerPosition(0, Vec3{1, 0, 0})
	s.SetSpeakerPosition(1, Vec3{3, 0, 0})
	s.SetSourcePosition(0, Vec3{0, 0, 0})

	st := s.sources[0]
	total := 4.0
	want0 := 1 - 1.0/total
	want1 := 1 - 3.0/total
	if math.Abs(st.gain[0]-want0) > 1e-9 || math.Abs(st.gain[1]-want1) > 1e-9 {
		t.Fatalf("VBAP gains = %v want {0:%v,1:%v}", st.gain, want0, want1)
	}
}

func TestSpatPannerProcessAppliesGain(t *testing.T) {
	s := NewSpatPanner()
	s.Method = MethodDBAP
	s.NSpeakers = 1
	s.DistanceThresh = 10
	s.Exponent = 1
	s.SetSpeakerPosition(0, Vec3{1, 0, 0})
	s.SetSourcePosition(0, Vec3{0, 0, 0})
	// mark clean (not dirty) to apply a flat gain across the block
	s.sources[0].dirty = false

	in := make([]float64, SubBlockSize)
	for i := range in {
		in[i] = 1.0
	}
	out := make([]float64, SubBlockSize)

	s.Process(&SpatIO{
		Input:     map[int][]float64{0: in},
		Output:    map[int][]float64{0: out},
		BlockSize: SubBlockSize,
	})

	want := 1 - 1.0/10.0
	for j, v := range out {
		if math.Abs(v-want) > 1e-9 {
			t.Fatalf("out[%d]=%v want %v", j, v, want)
		}
	}
	if s.PeakIn[0] != 1.0 {
		t.Fatalf("PeakIn=%v want 1.0", s.PeakIn[0])
	}
}

func TestSpatPannerEmptyGainMapSkipped(t *testing.T) {
	s := NewSpatPanner()
	in := make([]float64, SubBlockSize)
	out := make([]float64, SubBlockSize)
	s.Process(&SpatIO{
		Input:     map[int][]float64{5: in},
		Output:    map[int][]float64{0: out},
		BlockSize: SubBlockSize,
	})
	for _, v := range out {
		if v != 0 {
			t.Fatal("source with no gain map should not contribute")
		}
	}
}
