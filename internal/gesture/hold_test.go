package gesture

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func TestHoldTracker_DurationGrowsWhileHeld(t *testing.T) {
	h := NewHoldTracker()

	if got := h.Update(SymbolFist, at(0)); got != 0 {
		t.Errorf("first update = %v, want 0", got)
	}
	if got := h.Update(SymbolFist, at(300)); got != 300*time.Millisecond {
		t.Errorf("hold at 0.3s = %v", got)
	}
	if got := h.Update(SymbolFist, at(600)); got != 600*time.Millisecond {
		t.Errorf("hold at 0.6s = %v", got)
	}
	if h.Symbol() != SymbolFist {
		t.Errorf("Symbol() = %v, want fist", h.Symbol())
	}
}

func TestHoldTracker_SymbolChangeStartsNewEpisode(t *testing.T) {
	h := NewHoldTracker()
	h.Update(SymbolFist, at(0))
	h.Update(SymbolFist, at(500))

	if got := h.Update(SymbolOpenPalm, at(800)); got != 0 {
		t.Errorf("hold after change = %v, want 0", got)
	}

	prev, held := h.Previous()
	if prev != SymbolFist || held != 800*time.Millisecond {
		t.Errorf("Previous() = (%v, %v), want (fist, 800ms)", prev, held)
	}

	if got := h.Update(SymbolOpenPalm, at(1000)); got != 200*time.Millisecond {
		t.Errorf("hold in new episode = %v, want 200ms", got)
	}
}

func TestHoldTracker_ShouldExecuteOncePerEpisode(t *testing.T) {
	h := NewHoldTracker()
	h.Update(SymbolFist, at(0))

	threshold := 500 * time.Millisecond
	if !h.ShouldExecute(threshold) {
		t.Fatal("first query should execute")
	}
	for i := 0; i < 3; i++ {
		if h.ShouldExecute(threshold) {
			t.Fatalf("query %d should not execute again", i+2)
		}
	}
	if !h.ShouldExecute(3 * time.Second) {
		t.Error("a different threshold should execute independently")
	}

	h.Update(SymbolFist, at(1000))
	if h.ShouldExecute(threshold) {
		t.Error("same episode must not re-fire")
	}

	h.Update(SymbolNone, at(1100))
	h.Update(SymbolFist, at(1200))
	if !h.ShouldExecute(threshold) {
		t.Error("new episode should clear fired thresholds")
	}
}

func TestHoldTracker_ClockGoingBackwardsIsZero(t *testing.T) {
	h := NewHoldTracker()
	h.Update(SymbolFist, at(1000))
	if got := h.Update(SymbolFist, at(500)); got != 0 {
		t.Errorf("hold = %v, want 0 for out-of-order timestamp", got)
	}
}

func TestHoldTracker_Reset(t *testing.T) {
	h := NewHoldTracker()
	h.Update(SymbolFist, at(0))
	h.ShouldExecute(time.Second)

	h.Reset()

	if h.Symbol() != SymbolNone {
		t.Errorf("Symbol() = %v after reset", h.Symbol())
	}
	if prev, held := h.Previous(); prev != SymbolNone || held != 0 {
		t.Errorf("Previous() = (%v, %v) after reset", prev, held)
	}
	if got := h.Update(SymbolFist, at(5000)); got != 0 {
		t.Errorf("first update after reset = %v, want 0", got)
	}
	if prev, _ := h.Previous(); prev != SymbolNone {
		t.Errorf("reset should not record a previous episode, got %v", prev)
	}
	if !h.ShouldExecute(time.Second) {
		t.Error("fired thresholds should be cleared by reset")
	}
}
