// Package profiler records how long each stage of a conversion takes.
package profiler

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Stage is the timing of one named step.
type Stage struct {
	Name     string
	Duration time.Duration
}

// Timer collects stage timings in the order stages finish. It is safe for
// concurrent use; a nil *Timer discards everything.
type Timer struct {
	mu     sync.Mutex
	start  time.Time
	stages []Stage
	now    func() time.Time
}

// NewTimer creates a timer whose total is measured from now.
func NewTimer() *Timer {
	t := &Timer{now: time.Now}
	t.start = t.now()
	return t
}

// StartOperation begins timing a stage.
//
// Arguments:
// - name: The name of the stage to track
//
// Returns:
// - A function to call when the stage completes
func (t *Timer) StartOperation(name string) func() {
	if t == nil {
		return func() {}
	}
	start := t.now()
	return func() {
		t.Record(name, t.now().Sub(start))
	}
}

// Record appends a finished stage.
func (t *Timer) Record(name string, d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stages = append(t.stages, Stage{Name: name, Duration: d})
}

// Stages returns a copy of the recorded stages.
func (t *Timer) Stages() []Stage {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Stage, len(t.stages))
	copy(out, t.stages)
	return out
}

// Total is the time elapsed since the timer was created.
func (t *Timer) Total() time.Duration {
	if t == nil {
		return 0
	}
	return t.now().Sub(t.start)
}

// Report returns one line per stage followed by the total.
func (t *Timer) Report() string {
	var b strings.Builder
	_ = t.WriteReport(&b)
	return b.String()
}

// WriteReport writes the stage report to w.
func (t *Timer) WriteReport(w io.Writer) error {
	width := len("total")
	stages := t.Stages()
	for _, s := range stages {
		if len(s.Name) > width {
			width = len(s.Name)
		}
	}
	for _, s := range stages {
		if _, err := fmt.Fprintf(w, "  %-*s %v\n", width, s.Name, s.Duration.Truncate(time.Microsecond)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  %-*s %v\n", width, "total", t.Total().Truncate(time.Microsecond))
	return err
}
