package tui

import (
	"testing"
	"time"
)

func TestSequencerFiresInOrder(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	var fired []int
	steps := []Step{
		{Delay: 160 * time.Millisecond, Mutation: func() { fired = append(fired, 2) }},
		{Delay: 0, Mutation: func() { fired = append(fired, 0) }},
		{Delay: 80 * time.Millisecond, Mutation: func() { fired = append(fired, 1) }},
	}
	seq := NewSequencer(start, steps)

	if n := seq.Advance(start); n != 1 {
		t.Errorf("Expected 1 step at t=0, fired %d", n)
	}
	if n := seq.Advance(start.Add(79 * time.Millisecond)); n != 0 {
		t.Errorf("Expected no steps before the deadline, fired %d", n)
	}
	if n := seq.Advance(start.Add(80 * time.Millisecond)); n != 1 {
		t.Errorf("Expected the second step at t=80ms, fired %d", n)
	}
	if seq.Done() {
		t.Error("Sequencer should not be done with a step remaining")
	}
	if n := seq.Advance(start.Add(time.Second)); n != 1 {
		t.Errorf("Expected the final step, fired %d", n)
	}
	if !seq.Done() {
		t.Error("Sequencer should be done after all steps fired")
	}
	if n := seq.Advance(start.Add(2 * time.Second)); n != 0 {
		t.Errorf("Advance after done should be a no-op, fired %d", n)
	}

	want := []int{0, 1, 2}
	if len(fired) != len(want) {
		t.Fatalf("Expected %d mutations, got %v", len(want), fired)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("Mutations fired out of order: %v", fired)
		}
	}
}

func TestSequencerCatchesUpInOneAdvance(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	count := 0
	var steps []Step
	for i := range 5 {
		steps = append(steps, Step{
			Delay:    time.Duration(i) * 80 * time.Millisecond,
			Mutation: func() { count++ },
		})
	}
	seq := NewSequencer(start, steps)

	// A late tick fires every overdue step at once
	if n := seq.Advance(start.Add(time.Minute)); n != 5 {
		t.Errorf("Expected all 5 steps on a late tick, fired %d", n)
	}
	if count != 5 {
		t.Errorf("Expected 5 mutations, got %d", count)
	}
}

func TestSequencerFinish(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	count := 0
	seq := NewSequencer(start, []Step{
		{Delay: 0, Mutation: func() { count++ }},
		{Delay: time.Hour, Mutation: func() { count++ }},
	})

	seq.Advance(start)
	if count != 1 {
		t.Fatalf("Expected 1 mutation before Finish, got %d", count)
	}

	seq.Finish()
	if count != 2 {
		t.Errorf("Finish should fire the remaining steps, count %d", count)
	}
	if !seq.Done() {
		t.Error("Sequencer should be done after Finish")
	}
}

func TestSequencerEmpty(t *testing.T) {
	seq := NewSequencer(time.Now(), nil)
	if !seq.Done() {
		t.Error("An empty sequence is immediately done")
	}
	if n := seq.Advance(time.Now().Add(time.Hour)); n != 0 {
		t.Errorf("Expected no mutations, fired %d", n)
	}
}
