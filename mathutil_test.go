package granular

import (
	"math"
	"testing"
)

func TestModRange(t *testing.T) {
	cases := []struct{ x, m float64 }{
		{5.5, 2}, {-5.5, 2}, {0, 1}, {-0.0001, 1}, {100, 7},
	}
	for _, c := range cases {
		r := mod(c.x, c.m)
		if r < 0 || r >= c.m {
			t.Fatalf("mod(%v,%v)=%v out of [0,%v)", c.x, c.m, r, c.m)
		}
		r2 := mod(r, c.m)
		if math.Abs(r2-r) > 1e-12 {
			t.Fatalf("mod not idempotent: mod(mod(x,m),m)=%v want %v", r2, r)
		}
	}
}

func TestPongIdempotent(t *testing.T) {
	for _, fold := range []bool{true, false} {
		for _, x := range []float64{-5, -0.5, 0, 0.3, 1.2, 10.7} {
			p1 := pong(x, 0, 1, fold)
			p2 := pong(p1, 0, 1, fold)
			if math.Abs(p1-p2) > 1e-9 {
				t.Fatalf("pong not idempotent for x=%v fold=%v: %v vs %v", x, fold, p1, p2)
			}
			if p1 < 0 || p1 > 1 {
				t.Fatalf("pong(%v) out of [0,1]: %v", x, p1)
			}
		}
	}
}

func TestPitchRateRoundTrip(t *testing.T) {
	for _, r := range []float64{0.01, 0.5, 1, 2, 10, 100} {
		got := pitchToRate(rateToPitch(r))
		if math.Abs(got-r) > 1e-6 {
			t.Fatalf("pitchToRate(rateToPitch(%v))=%v, want %v", r, got, r)
		}
	}
}

func TestPitchOffsetRoundTrip(t *testing.T) {
	for _, x := range []float64{-0.5, -0.1, 0, 0.3, 2.0} {
		got := pitchOffsetToRateOffset(rateOffsetToPitchOffset(x))
		if math.Abs(got-x) > 1e-6 {
			t.Fatalf("round trip mismatch for %v: got %v", x, got)
		}
	}
}

func TestClamp(t *testing.T) {
	if clamp(5, 0, 1) != 1 {
		t.Fatal("clamp upper bound failed")
	}
	if clamp(-5, 0, 1) != 0 {
		t.Fatal("clamp lower bound failed")
	}
	if clamp(0.5, 0, 1) != 0.5 {
		t.Fatal("clamp passthrough failed")
	}
}
