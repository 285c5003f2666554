package action

import "time"

// Cooldown wraps an Action and drops its commands if the previous emission
// was less than the interval ago. Labels pass through unchanged. While
// cooling down the wrapped action sees no Episode, so a hold threshold it
// reaches meanwhile is not consumed and fires once the cooldown ends.
type Cooldown struct {
	inner    Action
	interval time.Duration
	last     time.Time
	emitted  bool
}

// WithCooldown wraps a with a cooldown. A non-positive interval returns a unchanged.
func WithCooldown(a Action, interval time.Duration) Action {
	if interval <= 0 {
		return a
	}
	return &Cooldown{inner: a, interval: interval}
}

// Unwrap returns the wrapped action.
func (c *Cooldown) Unwrap() Action {
	return c.inner
}

// Execute runs the wrapped action and applies the cooldown to its commands.
func (c *Cooldown) Execute(in Input) Outcome {
	if c.cooling(in.Now) {
		in.Episode = nil
	}
	return c.gate(c.inner.Execute(in), in.Now)
}

func (c *Cooldown) cooling(now time.Time) bool {
	return c.emitted && now.Sub(c.last) < c.interval
}

// Release forwards to the wrapped action when it is a Releaser.
func (c *Cooldown) Release(held time.Duration, now time.Time) (Outcome, bool) {
	r, ok := c.inner.(Releaser)
	if !ok {
		return Outcome{}, false
	}
	out, fired := r.Release(held, now)
	if !fired {
		return out, false
	}
	out = c.gate(out, now)
	return out, len(out.Commands) > 0
}

func (c *Cooldown) gate(out Outcome, now time.Time) Outcome {
	if len(out.Commands) == 0 {
		return out
	}
	if c.cooling(now) {
		out.Commands = nil
		return out
	}
	c.last = now
	c.emitted = true
	return out
}

// Reset forgets the last emission and resets the wrapped action.
func (c *Cooldown) Reset() {
	c.emitted = false
	c.last = time.Time{}
	if r, ok := c.inner.(Resetter); ok {
		r.Reset()
	}
}
