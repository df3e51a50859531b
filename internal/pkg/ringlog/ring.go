// Package ringlog implements a fixed-capacity circular buffer that evicts
// its oldest element once full. It serializes to JSON so a whole ring can be
// stored under a single key and updated with compare-and-swap.
package ringlog

import (
	"encoding/json"
	"errors"
)

// Ring is a fixed-capacity FIFO buffer. The zero value is unusable; create
// rings with New. A Ring is not safe for concurrent use; callers that share
// one across processes serialize access at the storage layer.
type Ring[T any] struct {
	buf   []T
	start int // index of the oldest element
	size  int
}

// New returns an empty ring holding at most capacity elements.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int { return r.size }

// Push appends v, evicting the oldest element if the ring is full. It
// reports whether an element was evicted.
func (r *Ring[T]) Push(v T) (evicted bool) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return false
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
	return true
}

// Items returns the elements oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Newest returns the elements newest first.
func (r *Ring[T]) Newest() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+r.size-1-i)%len(r.buf)]
	}
	return out
}

// Clear drops every element, keeping the capacity.
func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.start, r.size = 0, 0
}

type wire[T any] struct {
	Capacity int `json:"capacity"`
	Items    []T `json:"items"`
}

// MarshalJSON encodes the ring as its capacity plus items oldest first.
func (r *Ring[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire[T]{Capacity: len(r.buf), Items: r.Items()})
}

// UnmarshalJSON restores a ring. If the stored capacity differs from the
// receiver's (for example after a configuration change) the receiver's
// capacity wins and only the newest elements are kept.
func (r *Ring[T]) UnmarshalJSON(data []byte) error {
	var w wire[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	capacity := len(r.buf)
	if capacity == 0 {
		capacity = w.Capacity
	}
	if capacity < 1 {
		return errors.New("ringlog: stored ring has no capacity")
	}
	*r = Ring[T]{buf: make([]T, capacity)}
	for _, v := range w.Items {
		r.Push(v)
	}
	return nil
}
