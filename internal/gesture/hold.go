package gesture

import "time"

// HoldTracker measures how long the confirmed symbol has been held and
// remembers which time thresholds already fired during the current holding
// episode. An episode starts whenever the tracked symbol changes.
type HoldTracker struct {
	symbol  Symbol
	start   time.Time
	started bool
	fired   map[time.Duration]struct{}

	prevSymbol Symbol
	prevHold   time.Duration
}

// NewHoldTracker creates a tracker with no active episode.
func NewHoldTracker() *HoldTracker {
	return &HoldTracker{
		symbol:     SymbolNone,
		prevSymbol: SymbolNone,
		fired:      make(map[time.Duration]struct{}),
	}
}

// Update records the confirmed symbol for the frame at now and returns the
// hold duration of the current episode. A symbol change ends the previous
// episode, clears the fired thresholds and returns 0.
func (h *HoldTracker) Update(sym Symbol, now time.Time) time.Duration {
	if sym == "" {
		sym = SymbolNone
	}

	if !h.started || sym != h.symbol {
		if h.started {
			h.prevSymbol = h.symbol
			h.prevHold = nonNegative(now.Sub(h.start))
		}
		h.symbol = sym
		h.start = now
		h.started = true
		clear(h.fired)
		return 0
	}

	return nonNegative(now.Sub(h.start))
}

// ShouldExecute reports whether threshold has not fired yet in this episode
// and marks it as fired. It returns true at most once per threshold per episode.
func (h *HoldTracker) ShouldExecute(threshold time.Duration) bool {
	if _, ok := h.fired[threshold]; ok {
		return false
	}
	h.fired[threshold] = struct{}{}
	return true
}

// Symbol returns the symbol of the current episode.
func (h *HoldTracker) Symbol() Symbol {
	return h.symbol
}

// Previous returns the symbol and final hold duration of the episode that
// ended most recently.
func (h *HoldTracker) Previous() (Symbol, time.Duration) {
	return h.prevSymbol, h.prevHold
}

// Reset drops the current episode and all history.
func (h *HoldTracker) Reset() {
	h.symbol = SymbolNone
	h.start = time.Time{}
	h.started = false
	h.prevSymbol = SymbolNone
	h.prevHold = 0
	clear(h.fired)
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
