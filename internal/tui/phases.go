package tui

import "time"

// phaseDuration is how long the submit indicator lingers on each phase.
// The indicator is decorative: the real response ends it at any point.
const phaseDuration = 1200 * time.Millisecond

var phaseLabels = [4]string{"parsing", "AI analysis", "metrics", "report"}

type phaseStatus int

const (
	phasePending phaseStatus = iota
	phaseActive
	phaseDone
)

// progressPhases tracks the four-phase submit indicator
type progressPhases struct {
	active   int
	complete bool
}

// advanceTo moves the active phase according to elapsed submit time.
// The last phase never self-completes; only the response finishes it.
func (p *progressPhases) advanceTo(elapsed time.Duration) {
	if p.complete {
		return
	}
	idx := int(elapsed / phaseDuration)
	if idx > len(phaseLabels)-1 {
		idx = len(phaseLabels) - 1
	}
	p.active = idx
}

// finish marks every phase complete regardless of elapsed time
func (p *progressPhases) finish() {
	p.complete = true
	p.active = len(phaseLabels) - 1
}

// status reports the display state of phase i
func (p *progressPhases) status(i int) phaseStatus {
	switch {
	case p.complete || i < p.active:
		return phaseDone
	case i == p.active:
		return phaseActive
	default:
		return phasePending
	}
}
