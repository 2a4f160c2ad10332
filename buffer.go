// buffer.go - the shared source-buffer abstraction (§3 "Buffer abstraction").
//
// Voices, the recorder, and the host all share SourceBuffers. Every read or
// write acquires a scoped BufferLock; on contention the lock is invalid and
// the caller must no-op rather than block (§5 "Shared resources").
package granular

import (
	"math"
	"sync"
)

// SourceBuffer is a container of samples [channels][frames] with a
// samplerate and a non-blocking reader-side lock.
type SourceBuffer struct {
	mu         sync.Mutex
	Channels   [][]float64
	SampleRate float64
}

// NewSourceBuffer allocates a buffer with the given channel count and frame
// count, zero-filled.
func NewSourceBuffer(channels, frames int, sampleRate float64) *SourceBuffer {
	b := &SourceBuffer{SampleRate: sampleRate}
	b.Channels = make([][]float64, channels)
	for c := range b.Channels {
		b.Channels[c] = make([]float64, frames)
	}
	return b
}

// Frames returns the per-channel frame count, or 0 for a nil buffer.
func (b *SourceBuffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// NumChannels returns the channel count, or 0 for a nil buffer.
func (b *SourceBuffer) NumChannels() int {
	if b == nil {
		return 0
	}
	return len(b.Channels)
}

// BufferLock is a scoped, non-blocking guard. Acquire with TryLock; if the
// buffer is already locked, Valid() is false and the caller must skip the
// operation rather than wait.
type BufferLock struct {
	buf   *SourceBuffer
	valid bool
}

// TryLock attempts to acquire buf's lock without blocking.
func TryLock(buf *SourceBuffer) BufferLock {
	if buf == nil {
		return BufferLock{}
	}
	if !buf.mu.TryLock() {
		return BufferLock{}
	}
	return BufferLock{buf: buf, valid: true}
}

// Valid reports whether the lock was actually acquired.
func (l BufferLock) Valid() bool { return l.valid }

// Unlock releases the lock. Safe to call on an invalid lock (no-op).
func (l BufferLock) Unlock() {
	if l.valid {
		l.buf.mu.Unlock()
	}
}

// BufferInfo is the per-callback refreshed metadata described in §3.
type BufferInfo struct {
	BufferFrames         float64
	InvBufferFrames      float64
	SampleRateAdjustment float64
	NumChannels          float64
	SampleRate           float64
	InvSampleRate        float64
}

// RefreshBufferInfo recomputes a BufferInfo from buf against the engine's
// running sample rate, as done at the start of every process call.
func RefreshBufferInfo(buf *SourceBuffer, engineSampleRate float64) BufferInfo {
	if buf == nil || buf.Frames() == 0 {
		return BufferInfo{}
	}
	frames := float64(buf.Frames())
	adjustment := 1.0
	if engineSampleRate > 0 && buf.SampleRate > 0 {
		adjustment = buf.SampleRate / engineSampleRate
	}
	sr := buf.SampleRate
	invSR := 0.0
	if sr > 0 {
		invSR = 1.0 / sr
	}
	return BufferInfo{
		BufferFrames:         frames,
		InvBufferFrames:      1.0 / frames,
		SampleRateAdjustment: adjustment,
		NumChannels:          float64(buf.NumChannels()),
		SampleRate:           sr,
		InvSampleRate:        invSR,
	}
}

// linearSample reads channel ch of buf at fractional position pos with
// linear interpolation, wrapping reads from end back to start (per §4.1.6).
// NaN positions are rejected by the caller before this is invoked (§7).
func linearSample(buf *SourceBuffer, ch int, pos, start, end float64) float64 {
	if buf == nil || math.IsNaN(pos) {
		return 0
	}
	nch := buf.NumChannels()
	if nch == 0 {
		return 0
	}
	ch = ch % nch
	if ch < 0 {
		ch += nch
	}
	data := buf.Channels[ch]
	frames := len(data)
	if frames == 0 {
		return 0
	}
	width := end - start
	if width <= 0 {
		width = float64(frames)
		start = 0
		end = width
	}
	p := mod(pos-start, width) + start
	i0 := int(math.Floor(p))
	frac := p - float64(i0)
	i0 = wrapIndex(i0, start, end, frames)
	i1 := wrapIndex(i0+1, start, end, frames)
	return data[i0] + frac*(data[i1]-data[i0])
}

func wrapIndex(i int, start, end float64, frames int) int {
	lo := int(math.Floor(start))
	hi := int(math.Ceil(end))
	if hi <= lo {
		hi = frames
		lo = 0
	}
	width := hi - lo
	if width <= 0 {
		return 0
	}
	i = ((i-lo)%width + width) % width
	i += lo
	if i < 0 {
		i = 0
	}
	if i >= frames {
		i = frames - 1
	}
	return i
}
