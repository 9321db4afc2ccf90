package health

import (
	"context"
	"testing"
	"time"
)

type staticChecker struct {
	result CheckResult
}

func (c staticChecker) Check(context.Context) CheckResult {
	return c.result
}

func TestProbeRunnerReadyWhenAllHealthy(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 0,
		staticChecker{result: CheckResult{Name: "db", Healthy: true}},
		staticChecker{result: CheckResult{Name: "redis", Healthy: true}},
	)
	ready, results := runner.Ready(context.Background())
	if !ready {
		t.Fatal("expected ready")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestProbeRunnerUnreadyOnAnyFailure(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 0,
		staticChecker{result: CheckResult{Name: "db", Healthy: true}},
		staticChecker{result: CheckResult{Name: "redis", Healthy: false, Error: "connection refused"}},
	)
	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected unready")
	}
	if results[1].Error != "connection refused" {
		t.Fatalf("expected failure detail preserved, got %+v", results[1])
	}
}

func TestProbeRunnerHoldsDuringStartupGrace(t *testing.T) {
	runner := NewProbeRunner(200*time.Millisecond, 2*time.Second,
		staticChecker{result: CheckResult{Name: "db", Healthy: true}},
	)
	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected unready during grace period")
	}
	if len(results) != 1 || results[0].Name != "startup_grace" {
		t.Fatalf("unexpected grace results: %+v", results)
	}
}

func TestNilProbeRunnerIsAlwaysReady(t *testing.T) {
	var runner *ProbeRunner
	ready, results := runner.Ready(context.Background())
	if !ready || results != nil {
		t.Fatalf("nil runner should report ready, got %v %v", ready, results)
	}
}

func TestDependencyCheckersNilSafety(t *testing.T) {
	if c := NewDBChecker(nil); c != nil {
		t.Fatal("expected nil checker without database handle")
	}
	if c := NewRedisChecker(nil); c != nil {
		t.Fatal("expected nil checker without redis client")
	}
}
