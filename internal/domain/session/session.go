// Package session implements the countdown, play and end phases of a game
// session together with its score and clock.
package session

import (
	"time"
)

// Default session configuration constants.
const (
	defaultCountdown = 10
	defaultDuration  = 180 * time.Second
	countdownStep    = time.Second
)

// Phase is the lifecycle stage of a session.
type Phase int

// Session phases. A session moves strictly forward through them.
const (
	PhaseCountdown Phase = iota
	PhaseActive
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseCountdown:
		return "countdown"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Listener receives session events. Calls happen on the goroutine driving
// the machine.
type Listener interface {
	OnHit(score int)
	OnSessionEnd(finalScore int)
	OnCountdownTick(value int)
}

// State is a snapshot of the session for display.
type State struct {
	Phase     Phase         `json:"phase"`
	Score     int           `json:"score"`
	Remaining time.Duration `json:"remaining"`
	Countdown int           `json:"countdown"`
}

// Transition reports what changed during one Tick.
type Transition struct {
	Countdown []int // countdown values emitted, in order
	Started   bool  // the session entered ACTIVE
	Ended     bool  // the session entered ENDED
	Final     int   // final score, set with Ended
}

// Machine is the session state machine. Not safe for concurrent use.
type Machine struct {
	countdown int
	duration  time.Duration
	listener  Listener

	running  bool
	phase    Phase
	value    int
	score    int
	nextStep time.Time
	deadline time.Time
}

// New creates a session in COUNTDOWN. The clock does not run until Start.
func New(opts ...Option) *Machine {
	m := &Machine{
		countdown: defaultCountdown,
		duration:  defaultDuration,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.phase = PhaseCountdown
	m.value = m.countdown
	return m
}

// Start begins the countdown at now and resets the score.
func (m *Machine) Start(now time.Time) {
	m.running = true
	m.phase = PhaseCountdown
	m.value = m.countdown
	m.score = 0
	m.nextStep = now.Add(countdownStep)
	m.deadline = time.Time{}
	if m.value > 0 && m.listener != nil {
		m.listener.OnCountdownTick(m.value)
	}
}

// Running reports whether Start has been called.
func (m *Machine) Running() bool {
	return m.running
}

// Tick advances the machine to now. The countdown drops by one per elapsed
// wall-clock second; ACTIVE ends once its deadline has passed.
func (m *Machine) Tick(now time.Time) Transition {
	var tr Transition
	if !m.running {
		return tr
	}

	if m.phase == PhaseCountdown {
		for m.value > 0 && !now.Before(m.nextStep) {
			m.value--
			m.nextStep = m.nextStep.Add(countdownStep)
			tr.Countdown = append(tr.Countdown, m.value)
			if m.listener != nil {
				m.listener.OnCountdownTick(m.value)
			}
		}
		if m.value > 0 {
			return tr
		}
		m.phase = PhaseActive
		m.deadline = now.Add(m.duration)
		tr.Started = true
	}

	if m.phase == PhaseActive && !m.deadline.After(now) {
		m.phase = PhaseEnded
		tr.Ended = true
		tr.Final = m.score
		if m.listener != nil {
			m.listener.OnSessionEnd(m.score)
		}
	}
	return tr
}

// RegisterHit credits one point. Hits outside ACTIVE, or at or past the
// deadline, are ignored and return false.
func (m *Machine) RegisterHit(now time.Time) (int, bool) {
	if m.phase != PhaseActive || !now.Before(m.deadline) {
		return m.score, false
	}
	m.score++
	if m.listener != nil {
		m.listener.OnHit(m.score)
	}
	return m.score, true
}

// State returns a snapshot at now.
func (m *Machine) State(now time.Time) State {
	st := State{Phase: m.phase, Score: m.score}
	switch m.phase {
	case PhaseCountdown:
		st.Countdown = m.value
		st.Remaining = m.duration
	case PhaseActive:
		st.Remaining = max(m.deadline.Sub(now), 0)
	case PhaseEnded:
	}
	return st
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	return m.phase
}

// Score returns the current score.
func (m *Machine) Score() int {
	return m.score
}

// Duration returns the configured play time.
func (m *Machine) Duration() time.Duration {
	return m.duration
}
