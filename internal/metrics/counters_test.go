package metrics

import (
	"sync"
	"testing"
)

func TestIncAndGet(t *testing.T) {
	m := New(Config{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricAutoLogout)

	if got := m.Get(MetricLoginSuccess); got != 2 {
		t.Fatalf("login success = %d, want 2", got)
	}
	if got := m.Get(MetricAutoLogout); got != 1 {
		t.Fatalf("auto logout = %d, want 1", got)
	}
	if got := m.Get(MetricLogout); got != 0 {
		t.Fatalf("untouched counter = %d, want 0", got)
	}
}

func TestNilMetricsIsInert(t *testing.T) {
	var m *Metrics
	m.Inc(MetricHydrate)
	if got := m.Get(MetricHydrate); got != 0 {
		t.Fatalf("nil metrics returned %d", got)
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 {
		t.Fatalf("nil snapshot has %d counters", len(snap.Counters))
	}
}

func TestDisabledMetricsIsInert(t *testing.T) {
	m := New(Config{Enabled: false})
	m.Inc(MetricLogout)
	if got := m.Get(MetricLogout); got != 0 {
		t.Fatalf("disabled metrics counted: %d", got)
	}
}

func TestOutOfRangeID(t *testing.T) {
	m := New(Config{Enabled: true})
	m.Inc(IDCount)
	m.Inc(IDCount + 7)
	if got := m.Get(IDCount); got != 0 {
		t.Fatalf("out-of-range Get = %d", got)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	m := New(Config{Enabled: true})
	m.Inc(MetricWatchApplied)

	snap := m.Snapshot()
	m.Inc(MetricWatchApplied)

	if snap.Counters[MetricWatchApplied] != 1 {
		t.Fatalf("snapshot drifted: %d", snap.Counters[MetricWatchApplied])
	}
	if got := m.Get(MetricWatchApplied); got != 2 {
		t.Fatalf("live counter = %d, want 2", got)
	}
	if len(snap.Counters) != int(IDCount) {
		t.Fatalf("snapshot covers %d counters, want %d", len(snap.Counters), IDCount)
	}
}

func TestConcurrentInc(t *testing.T) {
	m := New(Config{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricRemoteLogin)
			}
		}()
	}
	wg.Wait()

	if got := m.Get(MetricRemoteLogin); got != 8000 {
		t.Fatalf("concurrent count = %d, want 8000", got)
	}
}
