// Package activation implements the gate that decides whether hand gestures
// may trigger commands. The user arms the system by holding the arming pose,
// must then release it once, and the system falls back to standby after the
// hand has been out of view for a while.
package activation

import (
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// State is the activation state of the gate.
type State string

const (
	// StateStandby ignores every gesture except the arming pose.
	StateStandby State = "standby"
	// StateArming counts how long the arming pose has been held.
	StateArming State = "arming"
	// StateActiveLocked is active but waits for the arming pose to be released.
	StateActiveLocked State = "active_locked"
	// StateActiveReady accepts gestures for dispatch.
	StateActiveReady State = "active_ready"
)

// Active reports whether s is one of the active states.
func (s State) Active() bool {
	return s == StateActiveLocked || s == StateActiveReady
}

// Gate defaults.
const (
	DefaultActivationTime   = 1500 * time.Millisecond
	DefaultDeactivationTime = 3 * time.Second
)

// Config holds the gate parameters.
type Config struct {
	// ArmingSymbol is the pose that activates the gate (default open palm).
	ArmingSymbol gesture.Symbol
	// ActivationTime is how long the arming pose must be held.
	ActivationTime time.Duration
	// DeactivationTime is how long the hand may be absent before returning to standby.
	DeactivationTime time.Duration
	// LockTime is the minimum time spent locked after activation, even if the
	// arming pose is released sooner. Zero disables it.
	LockTime time.Duration
}

// DefaultConfig returns the palm-hold activation parameters.
func DefaultConfig() Config {
	return Config{
		ArmingSymbol:     gesture.SymbolOpenPalm,
		ActivationTime:   DefaultActivationTime,
		DeactivationTime: DefaultDeactivationTime,
	}
}

// Result is the outcome of one Update.
type Result struct {
	State State
	// Progress is the arming progress in [0, 1]; it is 1 in active states.
	Progress float64
	// JustActivated is true only on the frame that entered StateActiveLocked.
	JustActivated bool
	// JustDeactivated is true only on the frame that timed out back to standby.
	// The caller must reset state that depends on the active session.
	JustDeactivated bool
	// ReadyForAction is true when the gesture may be dispatched this frame.
	ReadyForAction bool
}

// Gate is the activation state machine. It is driven by one Update per frame
// with monotonically increasing timestamps and is not safe for concurrent use.
type Gate struct {
	config Config
	state  State

	armingSince time.Time // zero when not arming
	activeSince time.Time
	lostSince   time.Time // zero while the hand is visible
}

// NewGate creates a gate in standby. Zero durations and an empty arming
// symbol are replaced by their defaults.
func NewGate(config Config) *Gate {
	def := DefaultConfig()
	if config.ArmingSymbol.IsNone() {
		config.ArmingSymbol = def.ArmingSymbol
	}
	if config.ActivationTime <= 0 {
		config.ActivationTime = def.ActivationTime
	}
	if config.DeactivationTime <= 0 {
		config.DeactivationTime = def.DeactivationTime
	}
	if config.LockTime < 0 {
		config.LockTime = 0
	}

	return &Gate{
		config: config,
		state:  StateStandby,
	}
}

// Update advances the state machine by one frame.
func (g *Gate) Update(hasHand bool, sym gesture.Symbol, now time.Time) Result {
	if !hasHand {
		return g.handLost(now)
	}
	g.lostSince = time.Time{}

	armed := sym == g.config.ArmingSymbol

	switch g.state {
	case StateStandby, StateArming:
		return g.arm(armed, now)

	case StateActiveLocked:
		if !armed && now.Sub(g.activeSince) >= g.config.LockTime {
			g.state = StateActiveReady
			return Result{State: g.state, Progress: 1, ReadyForAction: true}
		}
		return Result{State: g.state, Progress: 1}

	default:
		return Result{State: g.state, Progress: 1, ReadyForAction: true}
	}
}

// arm handles the standby and arming states while a hand is visible.
func (g *Gate) arm(armed bool, now time.Time) Result {
	if !armed {
		g.armingSince = time.Time{}
		g.state = StateStandby
		return Result{State: g.state}
	}

	if g.armingSince.IsZero() {
		g.armingSince = now
	}

	elapsed := now.Sub(g.armingSince)
	if elapsed >= g.config.ActivationTime {
		g.state = StateActiveLocked
		g.armingSince = time.Time{}
		g.activeSince = now
		return Result{State: g.state, Progress: 1, JustActivated: true}
	}

	g.state = StateArming
	return Result{State: g.state, Progress: progress(elapsed, g.config.ActivationTime)}
}

// handLost handles a frame without a hand.
func (g *Gate) handLost(now time.Time) Result {
	g.armingSince = time.Time{}

	if !g.state.Active() {
		g.state = StateStandby
		return Result{State: g.state}
	}

	// With no hand the arming pose is no longer held, which releases the lock.
	if g.state == StateActiveLocked && now.Sub(g.activeSince) >= g.config.LockTime {
		g.state = StateActiveReady
	}

	if g.lostSince.IsZero() {
		g.lostSince = now
	}

	if now.Sub(g.lostSince) >= g.config.DeactivationTime {
		g.state = StateStandby
		g.lostSince = time.Time{}
		g.activeSince = time.Time{}
		return Result{State: g.state, JustDeactivated: true}
	}

	return Result{State: g.state, Progress: 1}
}

// State returns the current state.
func (g *Gate) State() State {
	return g.state
}

// Config returns the effective configuration.
func (g *Gate) Config() Config {
	return g.config
}

// Reset returns the gate to standby and clears every timer.
func (g *Gate) Reset() {
	g.state = StateStandby
	g.armingSince = time.Time{}
	g.activeSince = time.Time{}
	g.lostSince = time.Time{}
}

func progress(elapsed, total time.Duration) float64 {
	if total <= 0 {
		return 1
	}
	p := float64(elapsed) / float64(total)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
