// collection.go - GrainCollection: the fixed-capacity voice vector and its
// parameter-routing surface (§4.2).
package granular

import "math"

// StreamAssignMode selects how stream_set(mode, n) assigns stream ids.
type StreamAssignMode int

const (
	StreamAutomatic StreamAssignMode = iota
	StreamPerStreams
	StreamRandom
	StreamManual
)

// GrainCollection is a fixed-capacity ordered vector of voices (§4.2).
type GrainCollection struct {
	voices      []*Grain
	autoOverlap bool
	rng         *xorshift64star
}

// NewGrainCollection builds n voices, seeding each voice's PRNG
// deterministically from a collection-wide base seed: no shared global
// entropy source.
func NewGrainCollection(n int, baseSeed uint64) *GrainCollection {
	c := &GrainCollection{
		voices: make([]*Grain, n),
		rng:    newXorshift64star(baseSeed ^ 0xD1B54A32D192ED03),
	}
	for g := 0; g < n; g++ {
		c.voices[g] = NewGrain(g, baseSeed+uint64(g)*0x9E3779B97F4A7C15+1)
	}
	return c
}

// Len returns the number of voices.
func (c *GrainCollection) Len() int { return len(c.voices) }

// Voice returns voice g, or nil if out of range.
func (c *GrainCollection) Voice(g int) *Grain {
	if g < 0 || g >= len(c.voices) {
		return nil
	}
	return c.voices[g]
}

// transformTarget applies the §4.2 transpose/glissonSt/amplitude rewrites
// before dispatch, returning the (possibly rewritten) name/type/value.
func transformTarget(name ParamName, typ ParamType, value float64) (ParamName, ParamType, float64) {
	switch name {
	case ParamTranspose:
		if typ == ParamBase {
			return ParamRate, ParamBase, pitchToRate(value)
		}
		return ParamRate, typ, pitchOffsetToRateOffset(value)
	case ParamGlissonSt:
		return ParamGlisson, typ, pitchOffsetToRateOffset(value) // ratio-offset from semitone-offset
	case ParamAmplitude:
		if typ != ParamBase {
			// max(min(-value, 0), -1): a mod-depth interpretation for
			// random/offset positions, distinct from the base value (§9).
			return name, typ, clamp(-value, -1, 0)
		}
	}
	return name, typ, value
}

// Set implements set(target, name, type, value): target=0 broadcasts,
// target>=1 addresses voice target-1. An infinite target (either sign,
// math.IsInf(target, 0)) is the error case.
func (c *GrainCollection) Set(target float64, name ParamName, typ ParamType, value float64) ReturnCode {
	if math.IsInf(target, 0) {
		return Error
	}
	name, typ, value = transformTarget(name, typ, value)
	if target == 0 {
		for _, v := range c.voices {
			if v == nil {
				continue
			}
			v.SetParam(name, typ, value)
		}
		return Success
	}
	idx := int(target) - 1
	v := c.Voice(idx)
	if v == nil {
		return Error
	}
	v.SetParam(name, typ, value)
	return Success
}

// SetByName resolves name via Reflect then dispatches through Set.
func (c *GrainCollection) SetByName(target float64, name string, value float64) ReturnCode {
	pn, typ, ok := Reflect(name)
	if !ok {
		return ParamNotFound
	}
	return c.Set(target, pn, typ, value)
}

// StreamSet iterates voices whose stream id equals s-1 (1-based stream
// addressing, per §9's explicit resolution of the two conflicting historical
// conventions).
func (c *GrainCollection) StreamSet(s float64, name ParamName, typ ParamType, value float64) ReturnCode {
	name, typ, value = transformTarget(name, typ, value)
	target := int(s) - 1
	found := false
	for _, v := range c.voices {
		if v.streamID == target {
			v.SetParam(name, typ, value)
			found = true
		}
	}
	if !found {
		return Error
	}
	return Success
}

// StreamAssign assigns stream ids to all voices per mode, given n streams.
func (c *GrainCollection) StreamAssign(mode StreamAssignMode, n int) {
	if n < 1 {
		n = 1
	}
	for g, v := range c.voices {
		switch mode {
		case StreamAutomatic:
			v.streamID = g % n
		case StreamPerStreams:
			v.streamID = g / n
		case StreamRandom:
			v.streamID = int(c.rng.unitUniform() * float64(n))
			if v.streamID >= n {
				v.streamID = n - 1
			}
		case StreamManual:
			// Manual assignment targets a single voice; callers use
			// StreamAssignOne instead of this bulk form.
		}
	}
}

// StreamAssignOne assigns a single voice's stream id (the "manual" mode of
// stream_set(mode, n)).
func (c *GrainCollection) StreamAssignOne(g, id int) ReturnCode {
	v := c.Voice(g)
	if v == nil {
		return Error
	}
	v.streamID = id
	return Success
}

// ChannelSet targets voices whose channel.base == ch.
func (c *GrainCollection) ChannelSet(ch float64, name ParamName, typ ParamType, value float64) ReturnCode {
	name, typ, value = transformTarget(name, typ, value)
	found := false
	for _, v := range c.voices {
		if v.channel.base == ch {
			v.SetParam(name, typ, value)
			found = true
		}
	}
	if !found {
		return Error
	}
	return Success
}

// ChannelsSetInterleaved sets channel.base = g mod k for all voices.
func (c *GrainCollection) ChannelsSetInterleaved(k int) {
	if k < 1 {
		k = 1
	}
	for g, v := range c.voices {
		v.channel.base = float64(g % k)
	}
}

// SetAutoOverlap toggles the auto-overlap staggering behavior of
// SetActiveGrains.
func (c *GrainCollection) SetAutoOverlap(on bool) { c.autoOverlap = on }

// SetActiveGrains enables the first n voices, disables the rest, and (if
// auto-overlap is on) staggers each active voice's window offset evenly.
func (c *GrainCollection) SetActiveGrains(n int) {
	for g, v := range c.voices {
		v.SetEnabled(g < n)
	}
	if c.autoOverlap && n > 0 {
		step := 1.0 / float64(n)
		for g := 0; g < n && g < len(c.voices); g++ {
			c.voices[g].window.offset = step
		}
	}
}

// GrainParamFunc evaluates f(a, b, g/G) per voice and assigns it to name/type.
func (c *GrainCollection) GrainParamFunc(name ParamName, typ ParamType, f func(a, b, t float64) float64, a, b float64) {
	g := len(c.voices)
	if g == 0 {
		return
	}
	for idx, v := range c.voices {
		t := float64(idx) / float64(g)
		v.SetParam(name, typ, f(a, b, t))
	}
}

// StreamParamFunc is the per-stream symmetric form of GrainParamFunc: t is
// computed over the voice's position (in voice order) among the members of
// stream s, since stream membership isn't contiguous. density is a
// valid target here (§12 supplemented density-as-stream-function feature).
func (c *GrainCollection) StreamParamFunc(s float64, name ParamName, typ ParamType, f func(a, b, t float64) float64, a, b float64) ReturnCode {
	target := int(s) - 1
	var members []*Grain
	for _, v := range c.voices {
		if v.streamID == target {
			members = append(members, v)
		}
	}
	if len(members) == 0 {
		return Error
	}
	for i, v := range members {
		t := float64(i) / float64(len(members))
		v.SetParam(name, typ, f(a, b, t))
	}
	return Success
}

// bufferRoleByName lets set_buffer address a role either directly (by
// BufferRole) or by its §4.2 name string.
var bufferRoleByName = map[string]BufferRole{
	"buf":           BufferRoleSource,
	"buffer":        BufferRoleSource,
	"env":           BufferRoleEnvelope,
	"envelope":      BufferRoleEnvelope,
	"delay":         BufferRoleDelay,
	"delays":        BufferRoleDelay,
	"delayBuffer":   BufferRoleDelay,
	"window":        BufferRoleWindow,
	"windows":       BufferRoleWindow,
	"windowBuffer":  BufferRoleWindow,
	"glisson":       BufferRoleGlisson,
	"glissonBuffer": BufferRoleGlisson,
	"rate":          BufferRoleRate,
	"rates":         BufferRoleRate,
	"rateBuffer":    BufferRoleRate,
}

// SetBuffer implements set_buffer(role, buf, target): target=0 broadcasts.
func (c *GrainCollection) SetBuffer(role BufferRole, buf *SourceBuffer, target int) ReturnCode {
	if target == 0 {
		for _, v := range c.voices {
			v.SetBuffer(role, buf)
		}
		return Success
	}
	v := c.Voice(target - 1)
	if v == nil {
		return Error
	}
	v.SetBuffer(role, buf)
	return Success
}

// SetBufferByName resolves a role name then dispatches through SetBuffer.
func (c *GrainCollection) SetBufferByName(roleName string, buf *SourceBuffer, target int) ReturnCode {
	role, ok := bufferRoleByName[roleName]
	if !ok {
		return ParamNotFound
	}
	return c.SetBuffer(role, buf, target)
}

// Process renders one callback's worth of sub-blocks for every voice, in
// order; voices are independent of one another (§4.2).
func (c *GrainCollection) Process(io *IOConfig) {
	for offset := 0; offset+SubBlockSize <= io.BlockSize; offset += SubBlockSize {
		for _, v := range c.voices {
			v.Process(io, offset)
		}
	}
}
