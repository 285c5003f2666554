package gesture

import "math"

// Smoothing defaults.
const (
	DefaultWindow   = 3
	DefaultMajority = 2.0 / 3.0
	MaxWindow       = 15
)

// Smoother debounces the raw per-frame symbol stream with a majority vote
// over a sliding window of the most recent raw symbols.
//
// Rules applied on every Push:
//  1. The raw symbol enters the window; the oldest is evicted once full.
//  2. Until the window is full the confirmed symbol is left unchanged.
//  3. Once full, the most frequent symbol is confirmed if it occurs at least
//     ceil(majority*window) times. Ties go to the most recently seen symbol.
//  4. A raw SymbolNone confirms SymbolNone immediately, overriding rule 3,
//     so that losing the hand never leaves a stale symbol confirmed.
type Smoother struct {
	window    []Symbol
	size      int
	required  int
	confirmed Symbol
}

// NewSmoother creates a Smoother with the given window size and majority fraction.
// Sizes below 1 are raised to 1 and above MaxWindow lowered to MaxWindow.
// A fraction outside (0, 1] falls back to DefaultMajority.
func NewSmoother(size int, majority float64) *Smoother {
	if size < 1 {
		size = 1
	}
	if size > MaxWindow {
		size = MaxWindow
	}
	if majority <= 0 || majority > 1 || math.IsNaN(majority) {
		majority = DefaultMajority
	}

	return &Smoother{
		window:    make([]Symbol, 0, size),
		size:      size,
		required:  RequiredVotes(size, majority),
		confirmed: SymbolNone,
	}
}

// RequiredVotes returns ceil(majority*size), clamped to [1, size].
func RequiredVotes(size int, majority float64) int {
	// The epsilon keeps 2/3 of 3 at exactly 2 despite float rounding.
	n := int(math.Ceil(float64(size)*majority - 1e-9))
	if n < 1 {
		n = 1
	}
	if n > size {
		n = size
	}
	return n
}

// Push adds a raw symbol and returns the confirmed symbol for this frame.
func (s *Smoother) Push(raw Symbol) Symbol {
	if raw == "" {
		raw = SymbolNone
	}

	if len(s.window) == s.size {
		copy(s.window, s.window[1:])
		s.window = s.window[:s.size-1]
	}
	s.window = append(s.window, raw)

	if raw == SymbolNone {
		s.confirmed = SymbolNone
		return s.confirmed
	}

	if len(s.window) < s.size {
		return s.confirmed
	}

	top, count := s.mostFrequent()
	if count >= s.required {
		s.confirmed = top
	}

	return s.confirmed
}

// mostFrequent returns the most common symbol in the window.
// Scanning from newest to oldest with a strict comparison makes the most
// recent symbol win ties.
func (s *Smoother) mostFrequent() (Symbol, int) {
	counts := make(map[Symbol]int, len(s.window))
	for _, sym := range s.window {
		counts[sym]++
	}

	var top Symbol
	best := 0
	for i := len(s.window) - 1; i >= 0; i-- {
		sym := s.window[i]
		if c := counts[sym]; c > best {
			top, best = sym, c
		}
	}
	return top, best
}

// Confirmed returns the current confirmed symbol.
func (s *Smoother) Confirmed() Symbol {
	return s.confirmed
}

// Size returns the window capacity.
func (s *Smoother) Size() int {
	return s.size
}

// Required returns the number of matching votes needed to confirm a symbol.
func (s *Smoother) Required() int {
	return s.required
}

// Len returns the number of raw symbols currently in the window.
func (s *Smoother) Len() int {
	return len(s.window)
}

// Reset empties the window and confirms SymbolNone.
func (s *Smoother) Reset() {
	s.window = s.window[:0]
	s.confirmed = SymbolNone
}
