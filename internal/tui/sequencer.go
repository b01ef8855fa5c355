package tui

import (
	"cmp"
	"slices"
	"time"
)

// Step is a single scheduled mutation in a reveal sequence
type Step struct {
	Delay    time.Duration // offset from the sequence start
	Mutation func()
}

// Sequencer fires an ordered list of steps against an injected clock.
// It replaces nested one-shot timers: the production driver feeds real
// ticks, tests feed a virtual clock and never sleep.
type Sequencer struct {
	start time.Time
	steps []Step
	next  int
}

// NewSequencer schedules steps relative to start. Steps are sorted by
// delay so concurrent per-list reveals still fire in deadline order.
func NewSequencer(start time.Time, steps []Step) *Sequencer {
	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	slices.SortStableFunc(sorted, func(a, b Step) int {
		return cmp.Compare(a.Delay, b.Delay)
	})
	return &Sequencer{start: start, steps: sorted}
}

// Advance fires every step whose deadline has passed at now, in order,
// and returns how many fired
func (s *Sequencer) Advance(now time.Time) int {
	fired := 0
	for s.next < len(s.steps) {
		if now.Before(s.start.Add(s.steps[s.next].Delay)) {
			break
		}
		s.steps[s.next].Mutation()
		s.next++
		fired++
	}
	return fired
}

// Finish fires all remaining steps immediately
func (s *Sequencer) Finish() {
	for s.next < len(s.steps) {
		s.steps[s.next].Mutation()
		s.next++
	}
}

// Done reports whether every step has fired
func (s *Sequencer) Done() bool {
	return s.next >= len(s.steps)
}
