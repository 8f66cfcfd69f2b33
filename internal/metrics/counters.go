package metrics

import "sync/atomic"

// Metrics holds the live counters. A nil *Metrics is valid and inert, so
// callers never branch on whether metrics are enabled.
type Metrics struct {
	enabled  bool
	counters [IDCount]atomic.Uint64
}

func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= IDCount {
		return
	}
	m.counters[id].Add(1)
}

func (m *Metrics) Get(id ID) uint64 {
	if m == nil || !m.enabled || id >= IDCount {
		return 0
	}
	return m.counters[id].Load()
}

func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Counters: make(map[ID]uint64, IDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := ID(0); id < IDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
