package provider

import (
	"sync"
	"testing"
)

func TestHealthTrackerCircuitOpens(t *testing.T) {
	tracker := NewHealthTracker(3)

	if !tracker.Eligible("q") {
		t.Fatal("fresh provider must be eligible")
	}

	tracker.RecordFailure("q")
	if got := tracker.Snapshot()["q"]; got.Status != StatusDegraded || got.ConsecutiveFailures != 1 {
		t.Errorf("after 1 failure: %+v", got)
	}
	if !tracker.Eligible("q") {
		t.Error("degraded provider must stay eligible")
	}

	tracker.RecordFailure("q")
	tracker.RecordFailure("q")

	got := tracker.Snapshot()["q"]
	if got.Status != StatusDown || got.ConsecutiveFailures != 3 {
		t.Errorf("after 3 failures: %+v", got)
	}
	if tracker.Eligible("q") {
		t.Error("down provider must not be eligible")
	}
	if got.LastFailure == nil {
		t.Error("last failure not recorded")
	}
}

func TestHealthTrackerResetsOnSuccess(t *testing.T) {
	tracker := NewHealthTracker(3)

	for i := 0; i < 5; i++ {
		tracker.RecordFailure("q")
	}
	tracker.RecordSuccess("q")

	got := tracker.Snapshot()["q"]
	if got.Status != StatusHealthy {
		t.Errorf("status after success: %s", got.Status)
	}
	if got.ConsecutiveFailures != 0 {
		t.Errorf("failures after success: %d", got.ConsecutiveFailures)
	}
	if got.LastSuccess == nil {
		t.Error("last success not recorded")
	}
	if !tracker.Eligible("q") {
		t.Error("recovered provider must be eligible")
	}
}

func TestHealthTrackerDefaultThreshold(t *testing.T) {
	tracker := NewHealthTracker(0)

	tracker.RecordFailure("q")
	tracker.RecordFailure("q")
	if !tracker.Eligible("q") {
		t.Error("2 failures should not open the default circuit")
	}
	tracker.RecordFailure("q")
	if tracker.Eligible("q") {
		t.Error("3 failures should open the default circuit")
	}
}

func TestHealthTrackerProvidersAreIndependent(t *testing.T) {
	tracker := NewHealthTracker(1)

	tracker.RecordFailure("bad")
	if tracker.Eligible("bad") {
		t.Error("bad provider should be down")
	}
	if !tracker.Eligible("good") {
		t.Error("untouched provider must stay eligible")
	}
}

func TestHealthTrackerConcurrentUpdates(t *testing.T) {
	tracker := NewHealthTracker(3)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tracker.RecordFailure("a")
			tracker.Eligible("a")
		}()
		go func() {
			defer wg.Done()
			tracker.RecordSuccess("b")
			tracker.Snapshot()
		}()
	}
	wg.Wait()

	if got := tracker.Snapshot()["b"]; got.Status != StatusHealthy {
		t.Errorf("provider b: %+v", got)
	}
}
