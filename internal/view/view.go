// Package view implements the tri-state page lifecycle every page of
// the old frontend re-implemented by hand: loading, then exactly one
// transition to ready or failed per load.
package view

import (
	"context"
	"sync"
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Snapshot is an immutable render-time view of a lifecycle. Ready with
// an empty collection is a distinct state from failed; the render
// layer owes each its own treatment.
type Snapshot[T any] struct {
	Status Status `json:"status"`
	Data   T      `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Lifecycle tracks one async slice of page state. Begin starts a new
// load and invalidates any in-flight one; a settle carrying a stale
// generation is discarded, so a slow response can never overwrite the
// result of a newer load.
type Lifecycle[T any] struct {
	mu      sync.Mutex
	gen     uint64
	settled bool
	status  Status
	data    T
	err     string
}

func NewLifecycle[T any]() *Lifecycle[T] {
	return &Lifecycle[T]{status: StatusLoading}
}

// Begin transitions to loading and returns the generation token the
// eventual settle must present.
func (l *Lifecycle[T]) Begin() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.settled = false
	l.status = StatusLoading
	var zero T
	l.data = zero
	l.err = ""
	return l.gen
}

// Ready settles the load with data. Returns false when the settle was
// discarded as stale or duplicate.
func (l *Lifecycle[T]) Ready(gen uint64, data T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.settleable(gen) {
		return false
	}
	l.settled = true
	l.status = StatusReady
	l.data = data
	return true
}

// Fail settles the load with an error message, dropping any previous
// data so stale results are never rendered beside an error.
func (l *Lifecycle[T]) Fail(gen uint64, message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.settleable(gen) {
		return false
	}
	l.settled = true
	l.status = StatusFailed
	var zero T
	l.data = zero
	l.err = message
	return true
}

func (l *Lifecycle[T]) Snapshot() Snapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot[T]{Status: l.status, Data: l.data, Error: l.err}
}

func (l *Lifecycle[T]) settleable(gen uint64) bool {
	return gen == l.gen && !l.settled
}

// Load runs one fetch through a fresh lifecycle and returns its final
// snapshot. errMessage translates the failure for display; the fetch
// error itself is returned for logging.
func Load[T any](ctx context.Context, fetch func(context.Context) (T, error), errMessage func(error) string) (Snapshot[T], error) {
	l := NewLifecycle[T]()
	gen := l.Begin()
	data, err := fetch(ctx)
	if err != nil {
		l.Fail(gen, errMessage(err))
		return l.Snapshot(), err
	}
	l.Ready(gen, data)
	return l.Snapshot(), nil
}
