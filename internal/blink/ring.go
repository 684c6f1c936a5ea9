package blink

import "gonum.org/v1/gonum/stat"

// ring is a fixed-capacity FIFO of float64 samples. Pushing onto a full
// ring evicts the oldest sample.
type ring struct {
	buf   []float64
	start int
	n     int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{buf: make([]float64, capacity)}
}

func (r *ring) Len() int { return r.n }
func (r *ring) Cap() int { return len(r.buf) }

func (r *ring) Push(v float64) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Values returns the samples oldest first.
func (r *ring) Values() []float64 {
	out := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Mean returns the arithmetic mean, or 0 for an empty ring.
func (r *ring) Mean() float64 {
	if r.n == 0 {
		return 0
	}
	if r.start == 0 {
		return stat.Mean(r.buf[:r.n], nil)
	}
	return stat.Mean(r.Values(), nil)
}

func (r *ring) Clear() {
	r.start = 0
	r.n = 0
}

// Resize changes the capacity, keeping the newest samples.
func (r *ring) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if capacity == len(r.buf) {
		return
	}
	vals := r.Values()
	if len(vals) > capacity {
		vals = vals[len(vals)-capacity:]
	}
	r.buf = make([]float64, capacity)
	copy(r.buf, vals)
	r.start = 0
	r.n = len(vals)
}
