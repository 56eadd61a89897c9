package observ

import (
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("analyze")
	tm.End(idx, "3 files")
	tm.End(42, "ignored")
	tm.Count("traits", 2)
	tm.Count("traits", 1)

	rep := tm.Report()
	if len(rep.Phases) != 1 || rep.Phases[0].Note != "3 files" {
		t.Fatalf("phases = %+v", rep.Phases)
	}
	if len(rep.Counters) != 1 || rep.Counters[0].Value != 3 {
		t.Fatalf("counters = %+v", rep.Counters)
	}
	if !strings.Contains(tm.Summary(), "traits") {
		t.Fatalf("summary lacks counters:\n%s", tm.Summary())
	}
}

func TestNilTimerIsInert(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	tm.Count("y", 1)
	if tm.Counter("y") != 0 || len(tm.Report().Phases) != 0 {
		t.Fatalf("nil timer recorded data")
	}
}
