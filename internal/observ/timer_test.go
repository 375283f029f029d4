package observ

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fakeClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	tm.now = fakeClock(2 * time.Millisecond)

	decode := tm.Begin("decode")
	tm.End(decode, "")
	err := tm.Time("bundle_elim", func() error { return errors.New("boom") })
	if err == nil {
		t.Fatal("Time must return fn's error")
	}
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases: got=%d want=2", len(r.Phases))
	}
	if r.Phases[0].DurationMS != 2 || r.TotalMS != 4 {
		t.Fatalf("durations %+v", r)
	}
	if r.Phases[1].Note != "failed" {
		t.Fatalf("note %q", r.Phases[1].Note)
	}
	s := tm.Summary()
	if !strings.Contains(s, "bundle_elim        2.00 ms  // failed") || !strings.Contains(s, "total              4.00 ms") {
		t.Fatalf("summary:\n%s", s)
	}
}
