package spectrum

import (
	"sync"

	"github.com/faiface/beep"
)

// ring records the last N mono samples so the analyser can read recent audio
// while the capture side keeps writing.
type ring struct {
	buffer    []float64
	nextIndex int
	written   int
	mu        sync.RWMutex
}

func newRing(size int) *ring {
	return &ring{buffer: make([]float64, size)}
}

func (r *ring) write(samples []float64) {
	r.mu.Lock()
	for _, s := range samples {
		r.buffer[r.nextIndex] = s
		r.nextIndex++
		if r.nextIndex >= len(r.buffer) {
			r.nextIndex = 0
		}
	}
	r.written += len(samples)
	r.mu.Unlock()
}

// snapshot copies the last len(dst) samples into dst (most recent last) and
// reports whether that many samples have been written yet.
func (r *ring) snapshot(dst []float64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(dst)
	if n > len(r.buffer) {
		n = len(r.buffer)
	}
	if r.written < n {
		return false
	}
	start := r.nextIndex - n
	if start < 0 {
		start += len(r.buffer)
	}
	for i := range dst[:n] {
		dst[i] = r.buffer[(start+i)%len(r.buffer)]
	}
	return true
}

// visualTap wraps a beep.Streamer and records the mono mix of everything it
// streams into a ring buffer.
type visualTap struct {
	Source beep.Streamer
	ring   *ring
	mono   []float64
}

func newVisualTap(src beep.Streamer, r *ring) *visualTap {
	return &visualTap{Source: src, ring: r}
}

func (t *visualTap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.Source.Stream(samples)
	if n > 0 {
		if cap(t.mono) < n {
			t.mono = make([]float64, n)
		}
		mono := t.mono[:n]
		for i := 0; i < n; i++ {
			mono[i] = (samples[i][0] + samples[i][1]) * 0.5
		}
		t.ring.write(mono)
	}
	return n, ok
}

func (t *visualTap) Err() error { return t.Source.Err() }
