package capture

import "time"

// Pacer defaults.
const (
	IdleFPS     = 5
	ActiveFPS   = 15
	IdleTimeout = 2 * time.Second
)

// Pacer picks the frame rate for the frame loop. It runs at the active rate
// while there is motion or the pipeline is busy (a hand is visible or the
// gate is not in standby) and drops to the idle rate once neither has been
// true for the idle timeout.
type Pacer struct {
	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration

	active   bool
	lastSeen time.Time
}

// NewPacer returns a Pacer with the default rates, starting idle.
func NewPacer() *Pacer {
	return &Pacer{IdleFPS: IdleFPS, ActiveFPS: ActiveFPS, IdleTimeout: IdleTimeout}
}

// Observe records one frame and returns the frame rate to use next and
// whether it changed.
func (p *Pacer) Observe(motion, busy bool, now time.Time) (fps int, changed bool) {
	if motion || busy {
		p.lastSeen = now
		if !p.active {
			p.active = true
			return p.ActiveFPS, true
		}
		return p.ActiveFPS, false
	}

	if p.active && now.Sub(p.lastSeen) > p.IdleTimeout {
		p.active = false
		return p.IdleFPS, true
	}
	return p.FPS(), false
}

// Active reports whether the pacer is at the active rate.
func (p *Pacer) Active() bool {
	return p.active
}

// FPS returns the current rate.
func (p *Pacer) FPS() int {
	if p.active {
		return p.ActiveFPS
	}
	return p.IdleFPS
}

// Interval returns the time between frames at the current rate.
func (p *Pacer) Interval() time.Duration {
	fps := p.FPS()
	if fps <= 0 {
		fps = IdleFPS
	}
	return time.Second / time.Duration(fps)
}
