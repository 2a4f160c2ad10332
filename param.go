// param.go - the Param record, its closed name/type enumerations, and the
// by-name reflection table used for control-thread addressing (§3, §4.2, §6).
package granular

import "strings"

// ParamName is the closed enumeration of per-voice parameters, plus the three
// virtual names that are resolved by GrainCollection before dispatch.
type ParamName int

const (
	ParamDelay ParamName = iota
	ParamRate
	ParamGlisson
	ParamGlissonRows
	ParamGlissonPosition
	ParamWindow
	ParamAmplitude
	ParamSpace
	ParamEnvelopePosition
	ParamNEnvelopes
	ParamDirection
	ParamStartPoint
	ParamStopPoint
	ParamRateQuantizeSemi
	ParamLoopMode
	ParamChannel
	ParamDensity
	ParamVibratoRate
	ParamVibratoDepth

	// Virtual names: resolved by GrainCollection.Set before touching a Param.
	ParamTranspose
	ParamGlissonSt
	ParamStream

	paramNameCount
)

// ParamType selects which field of a Param a write or read targets.
type ParamType int

const (
	ParamBase ParamType = iota
	ParamRandom
	ParamOffset
	ParamMode
	ParamValue
)

// BufferMode controls how a named auxiliary control buffer drives a
// parameter at grain reset, instead of the stochastic base/random/offset
// formula.
type BufferMode int

const (
	BufferNormal BufferMode = iota
	BufferSequence
	BufferRandom
)

// RandomMode selects the distribution of a Param's random term. The base
// sampling formula in §3 draws an unsigned uniform; RandomMode lets a
// parameter opt into a signed (bipolar) or sign-flipped (negative) draw
// instead, without changing base/offset semantics.
type RandomMode int

const (
	RandomPositive RandomMode = iota // unsigned_uniform[0,1) * random (the default formula)
	RandomBipolar                    // uniform[-1,1) * random
	RandomNegative                   // -unsigned_uniform[0,1) * random
)

// Param is {base, random, offset, value, mode} from §3, plus the RandomMode
// selecting the random term's distribution and a cached BufferMode target
// buffer role (set_buffer/name-reflected overload binds a role; BufferMode
// just says whether that role is consulted at all, and how).
type Param struct {
	base   float64
	random float64
	offset float64
	value  float64
	mode   BufferMode
	rmode  RandomMode
}

// Sample materializes a value for voice index g:
//
//	value = base + offset*g + draw(random)
//
// where draw depends on rmode. It does not consult any buffer; callers that
// need BufferMode-aware sampling (a control-buffer override) do so at the
// voice level, where the buffer handle is available (see voice.go).
func (p *Param) Sample(g int, rng *xorshift64star) float64 {
	var draw float64
	switch p.rmode {
	case RandomBipolar:
		draw = rng.bipolarUniform() * p.random
	case RandomNegative:
		draw = -rng.unitUniform() * p.random
	default:
		draw = rng.unitUniform() * p.random
	}
	v := p.base + p.offset*float64(g) + draw
	p.value = v
	return v
}

// SampleNormalized wraps Sample's result modulo rangeV (e.g. channel selection
// modulo channel count).
func (p *Param) SampleNormalized(g int, rangeV float64, rng *xorshift64star) float64 {
	v := mod(p.Sample(g, rng), rangeV)
	p.value = v
	return v
}

// Set writes one field of the param, selected by typ.
func (p *Param) Set(typ ParamType, v float64) {
	switch typ {
	case ParamBase:
		p.base = v
	case ParamRandom:
		p.random = v
	case ParamOffset:
		p.offset = v
	case ParamMode:
		p.mode = BufferMode(v)
	case ParamValue:
		p.value = v
	}
}

// Get reads one field of the param, selected by typ.
func (p *Param) Get(typ ParamType) float64 {
	switch typ {
	case ParamBase:
		return p.base
	case ParamRandom:
		return p.random
	case ParamOffset:
		return p.offset
	case ParamMode:
		return float64(p.mode)
	default:
		return p.value
	}
}

// reflectEntry is one row of the name -> (ParamName, valueOnly) table.
type reflectEntry struct {
	name       string
	param      ParamName
	valueOnly  bool // nEnvelopes, stream: always ParamType=value, no Random/Offset/Mode suffix
}

// reflectTable is the closed set of base parameter name strings from §6.
var reflectTable = []reflectEntry{
	{"delay", ParamDelay, false},
	{"rate", ParamRate, false},
	{"glisson", ParamGlisson, false},
	{"glissonRows", ParamGlissonRows, false},
	{"glissonPosition", ParamGlissonPosition, false},
	{"window", ParamWindow, false},
	{"amp", ParamAmplitude, false},
	{"amplitude", ParamAmplitude, false},
	{"space", ParamSpace, false},
	{"envelopePosition", ParamEnvelopePosition, false},
	{"direction", ParamDirection, false},
	{"startPoint", ParamStartPoint, false},
	{"stopPoint", ParamStopPoint, false},
	{"rateQuantizeSemi", ParamRateQuantizeSemi, false},
	{"loopMode", ParamLoopMode, false},
	{"channel", ParamChannel, false},
	{"density", ParamDensity, false},
	{"vibratoRate", ParamVibratoRate, false},
	{"vibratoDepth", ParamVibratoDepth, false},
	{"transpose", ParamTranspose, false},
	{"glissonSt", ParamGlissonSt, false},
	{"nEnvelopes", ParamNEnvelopes, true},
	{"stream", ParamStream, true},
}

var suffixByType = map[string]ParamType{
	"Random": ParamRandom,
	"Offset": ParamOffset,
	"Mode":   ParamMode,
}

// Reflect parses a name string of the form "<param>[Random|Offset|Mode]"
// into a (ParamName, ParamType) pair, per §4.2/§6. Returns ok=false
// (ParamNotFound at the caller) when the name isn't recognized.
func Reflect(name string) (ParamName, ParamType, bool) {
	for _, e := range reflectTable {
		if !strings.HasPrefix(name, e.name) {
			continue
		}
		suffix := name[len(e.name):]
		if suffix == "" {
			if e.valueOnly {
				return e.param, ParamValue, true
			}
			return e.param, ParamBase, true
		}
		if e.valueOnly {
			continue // nEnvelopes/stream never take a suffix
		}
		if typ, ok := suffixByType[suffix]; ok {
			return e.param, typ, true
		}
	}
	return 0, 0, false
}
