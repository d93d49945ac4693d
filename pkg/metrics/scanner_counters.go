package metrics

import (
	"sync"
)

// =============================================================================
// Verdict Counters
// =============================================================================

// VerdictCounters counts scan outcomes by final label, overrides and failures.
type VerdictCounters struct {
	mu         sync.Mutex
	labels     map[string]int64
	overridden int64
	failures   map[string]int64
}

// NewVerdictCounters creates empty counters.
func NewVerdictCounters() *VerdictCounters {
	return &VerdictCounters{
		labels:   make(map[string]int64),
		failures: make(map[string]int64),
	}
}

// Verdict counts one successful scan.
func (c *VerdictCounters) Verdict(label string, overridden bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.labels[label]++
	if overridden {
		c.overridden++
	}
}

// Failure counts one failed scan by failure kind.
func (c *VerdictCounters) Failure(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures[kind]++
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Scans      int64            `json:"scans"`
	Labels     map[string]int64 `json:"labels"`
	Overridden int64            `json:"overridden"`
	Failures   map[string]int64 `json:"failures"`
}

// Snapshot copies the current counts.
func (c *VerdictCounters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Labels:     make(map[string]int64, len(c.labels)),
		Failures:   make(map[string]int64, len(c.failures)),
		Overridden: c.overridden,
	}
	for k, v := range c.labels {
		s.Labels[k] = v
		s.Scans += v
	}
	for k, v := range c.failures {
		s.Failures[k] = v
		s.Scans += v
	}
	return s
}
