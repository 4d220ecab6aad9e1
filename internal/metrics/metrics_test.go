package metrics_test

import (
	"testing"
	"time"

	"github.com/treefrog-dev/frogup/internal/metrics"
	"github.com/treefrog-dev/frogup/internal/probe"
)

func TestNew_RegistersInstruments(t *testing.T) {
	m := metrics.New()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	if !names["frogup_build_info"] {
		t.Error("expected frogup_build_info to be registered")
	}
}

func TestObserve_SetsUpGauge(t *testing.T) {
	m := metrics.New()

	m.Observe("postgres", probe.Result{Healthy: true, ResponseTime: 10 * time.Millisecond})
	m.Observe("redis", probe.Result{ResponseTime: 5 * time.Millisecond, Error: "refused"})

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}

	values := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "frogup_dependency_up" {
			continue
		}
		for _, metric := range f.GetMetric() {
			var dep string
			for _, l := range metric.GetLabel() {
				if l.GetName() == "dependency" {
					dep = l.GetValue()
				}
			}
			values[dep] = metric.GetGauge().GetValue()
		}
	}

	if values["postgres"] != 1 {
		t.Errorf("expected postgres up=1, got %v", values["postgres"])
	}
	if values["redis"] != 0 {
		t.Errorf("expected redis up=0, got %v", values["redis"])
	}
}

func TestObserve_CountsOutcomes(t *testing.T) {
	m := metrics.New()

	m.Observe("api", probe.Result{Healthy: true})
	m.Observe("api", probe.Result{Healthy: true})
	m.Observe("api", probe.Result{Error: "refused"})

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}

	counts := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "frogup_probe_outcomes_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			var status string
			for _, l := range metric.GetLabel() {
				if l.GetName() == "status" {
					status = l.GetValue()
				}
			}
			counts[status] = metric.GetCounter().GetValue()
		}
	}

	if counts["ready"] != 2 {
		t.Errorf("expected 2 ready outcomes, got %v", counts["ready"])
	}
	if counts["unready"] != 1 {
		t.Errorf("expected 1 unready outcome, got %v", counts["unready"])
	}
}
