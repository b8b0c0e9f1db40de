package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	timer := NewTimer()
	idx := timer.Begin("load")
	time.Sleep(2 * time.Millisecond)
	timer.End(idx, "3 files")
	timer.End(42, "ignored")

	report := timer.Report()
	if len(report.Phases) != 1 {
		t.Fatalf("expected 1 phase, got %d", len(report.Phases))
	}
	if report.Phases[0].DurationMS < 2 || report.TotalMS != report.Phases[0].DurationMS {
		t.Fatalf("unexpected durations: %+v", report)
	}
	summary := timer.Summary()
	if !strings.Contains(summary, "load") || !strings.Contains(summary, "// 3 files") || !strings.Contains(summary, "total") {
		t.Fatalf("unexpected summary:\n%s", summary)
	}
}

func TestTimerEmpty(t *testing.T) {
	if r := NewTimer().Report(); len(r.Phases) != 0 || r.TotalMS != 0 {
		t.Fatalf("expected empty report, got %+v", r)
	}
}

func TestTimerConcurrent(t *testing.T) {
	timer := NewTimer()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			timer.End(timer.Begin("file"), "")
		}()
	}
	wg.Wait()
	if got := len(timer.Report().Phases); got != 16 {
		t.Fatalf("expected 16 phases, got %d", got)
	}
}
