package otel

import (
	"context"
	"errors"
	"testing"

	authstate "github.com/variel/authstate"
	"github.com/variel/authstate/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/embedded"
	"go.opentelemetry.io/otel/metric/noop"
)

type stubSource struct {
	snapshot authstate.MetricsSnapshot
	dropped  uint64
}

func (s *stubSource) MetricsSnapshot() authstate.MetricsSnapshot { return s.snapshot }
func (s *stubSource) AuditDropped() uint64                       { return s.dropped }

func newStubSource() *stubSource {
	counters := make(map[authstate.MetricID]uint64)
	for i, def := range internaldefs.CounterDefs {
		counters[def.ID] = uint64(i + 1)
	}
	return &stubSource{
		snapshot: authstate.MetricsSnapshot{Counters: counters},
		dropped:  7,
	}
}

func TestNewExporterValidation(t *testing.T) {
	if _, err := NewExporterFromSource(nil, newStubSource()); !errors.Is(err, ErrNilMeter) {
		t.Fatalf("err = %v, want ErrNilMeter", err)
	}
	meter := noop.NewMeterProvider().Meter("test")
	if _, err := NewExporterFromSource(meter, nil); !errors.Is(err, ErrNilSource) {
		t.Fatalf("err = %v, want ErrNilSource", err)
	}
}

func TestNewExporterRegistersAllCounters(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	e, err := NewExporterFromSource(meter, newStubSource())
	if err != nil {
		t.Fatalf("NewExporterFromSource: %v", err)
	}
	if len(e.counters) != len(internaldefs.CounterDefs) {
		t.Fatalf("registered %d counters, want %d", len(e.counters), len(internaldefs.CounterDefs))
	}
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

type recordingObserver struct {
	embedded.Observer
	values []int64
}

func (o *recordingObserver) ObserveFloat64(metric.Float64Observable, float64, ...metric.ObserveOption) {
}

func (o *recordingObserver) ObserveInt64(_ metric.Int64Observable, v int64, _ ...metric.ObserveOption) {
	o.values = append(o.values, v)
}

func TestCollectObservesEveryCounter(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	source := newStubSource()
	e, err := NewExporterFromSource(meter, source)
	if err != nil {
		t.Fatalf("NewExporterFromSource: %v", err)
	}
	defer func() { _ = e.Shutdown() }()

	obs := &recordingObserver{}
	if err := e.collect(context.Background(), obs); err != nil {
		t.Fatalf("collect: %v", err)
	}

	want := len(internaldefs.CounterDefs) + 1
	if len(obs.values) != want {
		t.Fatalf("observed %d values, want %d", len(obs.values), want)
	}
	if last := obs.values[len(obs.values)-1]; last != 7 {
		t.Fatalf("audit dropped observed as %d", last)
	}
}

func TestShutdownOnNilExporter(t *testing.T) {
	var e *Exporter
	if err := e.Shutdown(); err != nil {
		t.Fatalf("nil exporter Shutdown: %v", err)
	}
}
