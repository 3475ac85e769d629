package authcore

import (
	"testing"
	"time"

	"github.com/pagespace/authcore/internal/stores/memory"
)

func TestBuild_RequiresBackend(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error for missing backend")
	}
}

func TestBuild_RejectsInvalidConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Lockout.Threshold = 0
	if _, err := New().WithConfig(cfg).WithBackend(memory.New()).Build(); err == nil {
		t.Fatal("expected config validation error")
	}
}

func TestBuild_SingleUse(t *testing.T) {
	b := New().WithBackend(memory.New())
	eng, err := b.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	defer eng.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second Build")
	}
}

func TestConfig_DefaultsAreValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Lockout.Threshold != 10 || cfg.Lockout.Duration != 15*time.Minute {
		t.Fatalf("unexpected lockout defaults: %+v", cfg.Lockout)
	}
	if cfg.Refresh.GracePeriod != 30*time.Second {
		t.Fatalf("unexpected grace period: %v", cfg.Refresh.GracePeriod)
	}
}

func TestConfig_CloneIsolatesSlices(t *testing.T) {
	cfg := defaultConfig()
	cfg.OAuth.GoogleAudiences = []string{"web-client"}

	cloned := cloneConfig(cfg)
	cloned.OAuth.GoogleAudiences[0] = "mutated"

	if cfg.OAuth.GoogleAudiences[0] != "web-client" {
		t.Fatal("clone shares audience slice with source")
	}
}

func TestMetrics_CountersAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricValidateLatency, 3*time.Millisecond)
	m.Observe(MetricValidateLatency, 700*time.Millisecond)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("counter = %d, want 2", got)
	}

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 2 {
		t.Fatalf("snapshot counter = %d, want 2", snap.Counters[MetricLoginSuccess])
	}
	buckets := snap.Histograms[MetricValidateLatency]
	if len(buckets) != 8 || buckets[0] != 1 || buckets[7] != 1 {
		t.Fatalf("unexpected histogram buckets: %v", buckets)
	}
}

func TestMetrics_DisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.Inc(MetricLoginSuccess)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics recorded a count")
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled snapshot not empty")
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess)
	_ = nilMetrics.Snapshot()
}
