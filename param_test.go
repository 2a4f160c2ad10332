package granular

import "testing"

func TestReflectInjective(t *testing.T) {
	seen := map[ParamName]map[ParamType]string{}
	names := []string{
		"delay", "delayRandom", "delayOffset", "delayMode",
		"rate", "rateRandom", "rateOffset", "rateMode",
		"rateQuantizeSemi",
		"glisson", "glissonRandom", "glissonRows", "glissonPosition",
		"window", "windowRandom",
		// "amplitude" is an alias of "amp" (see TestReflectPrefixCollision),
		// so only "amp" takes part in the injectivity check.
		"amp",
		"space", "envelopePosition", "direction",
		"startPoint", "stopPoint", "loopMode", "channel",
		"density", "vibratoRate", "vibratoDepth",
		"transpose", "glissonSt",
		"nEnvelopes", "stream",
	}
	for _, n := range names {
		pn, typ, ok := Reflect(n)
		if !ok {
			t.Fatalf("Reflect(%q) not found", n)
		}
		if seen[pn] == nil {
			seen[pn] = map[ParamType]string{}
		}
		if other, dup := seen[pn][typ]; dup && other != n {
			t.Fatalf("name %q collides with %q for pair (%v,%v)", n, other, pn, typ)
		}
		seen[pn][typ] = n
	}
}

func TestReflectNotFound(t *testing.T) {
	if _, _, ok := Reflect("nonexistentParam"); ok {
		t.Fatal("expected not found")
	}
}

func TestReflectPrefixCollision(t *testing.T) {
	pn, typ, ok := Reflect("rateQuantizeSemi")
	if !ok || pn != ParamRateQuantizeSemi || typ != ParamBase {
		t.Fatalf("rateQuantizeSemi resolved incorrectly: %v %v %v", pn, typ, ok)
	}
	pn, typ, ok = Reflect("amplitude")
	if !ok || pn != ParamAmplitude || typ != ParamBase {
		t.Fatalf("amplitude resolved incorrectly: %v %v %v", pn, typ, ok)
	}
	pn, typ, ok = Reflect("amp")
	if !ok || pn != ParamAmplitude || typ != ParamBase {
		t.Fatalf("amp resolved incorrectly: %v %v %v", pn, typ, ok)
	}
}

func TestParamSample(t *testing.T) {
	rng := newXorshift64star(42)
	p := Param{base: 1, offset: 0.1, random: 0}
	v := p.Sample(3, rng)
	want := 1 + 0.1*3
	if v != want {
		t.Fatalf("Sample()=%v want %v", v, want)
	}
}

func TestParamSetGet(t *testing.T) {
	var p Param
	p.Set(ParamBase, 2)
	p.Set(ParamRandom, 0.5)
	p.Set(ParamOffset, 0.25)
	p.Set(ParamMode, float64(BufferSequence))
	if p.Get(ParamBase) != 2 || p.Get(ParamRandom) != 0.5 || p.Get(ParamOffset) != 0.25 {
		t.Fatal("Set/Get round trip failed")
	}
	if BufferMode(p.Get(ParamMode)) != BufferSequence {
		t.Fatal("mode round trip failed")
	}
}
