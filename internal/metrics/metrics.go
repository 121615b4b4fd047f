// Package metrics is a minimal facade over a pluggable metrics backend.
// The pipeline code depends only on this package; concrete backends
// (Datadog) live in subpackages and are wired from main.
package metrics

import "sync"

// Labels are free-form metric dimensions (e.g. {"kind": "skipped"}).
type Labels map[string]string

// Backend is the sink interface concrete backends implement.
//
// Edge cases:
//   - Implementations must tolerate nil or missing labels.
//   - IncCounter with delta <= 0 is a no-op.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend swaps the process-wide backend. Call once from main before the
// pipeline starts; the default is a nop backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter increments a counter on the active backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records a sample on the active backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush forces the active backend to submit buffered metrics.
func Flush() error {
	return current().Flush()
}
