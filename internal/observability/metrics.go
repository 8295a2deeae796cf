package observability

import (
	"sort"
	"sync"
	"sync/atomic"
)

// JobCounters tracks the outcome of one kind of background job.
type JobCounters struct {
	Started   atomic.Int64
	Succeeded atomic.Int64
	Failed    atomic.Int64
	Dropped   atomic.Int64
}

// JobStats is a plain copy of JobCounters.
type JobStats struct {
	Started   int64 `json:"started"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Metrics groups job counters by job name.
type Metrics struct {
	mu   sync.Mutex
	jobs map[string]*JobCounters
}

func NewMetrics() *Metrics {
	return &Metrics{jobs: make(map[string]*JobCounters)}
}

// Job returns the counters for name, creating them on first use.
func (m *Metrics) Job(name string) *JobCounters {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.jobs[name]
	if !ok {
		c = &JobCounters{}
		m.jobs[name] = c
	}
	return c
}

// RecordRun records a finished job run.
func (m *Metrics) RecordRun(name string, success bool) {
	c := m.Job(name)
	if success {
		c.Succeeded.Add(1)
		return
	}
	c.Failed.Add(1)
}

// Snapshot copies all counters.
func (m *Metrics) Snapshot() map[string]JobStats {
	m.mu.Lock()
	names := make([]string, 0, len(m.jobs))
	for name := range m.jobs {
		names = append(names, name)
	}
	m.mu.Unlock()
	sort.Strings(names)

	out := make(map[string]JobStats, len(names))
	for _, name := range names {
		c := m.Job(name)
		out[name] = JobStats{
			Started:   c.Started.Load(),
			Succeeded: c.Succeeded.Load(),
			Failed:    c.Failed.Load(),
			Dropped:   c.Dropped.Load(),
		}
	}
	return out
}
