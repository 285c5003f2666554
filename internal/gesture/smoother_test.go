package gesture

import "testing"

func TestRequiredVotes(t *testing.T) {
	tests := []struct {
		size     int
		majority float64
		want     int
	}{
		{1, DefaultMajority, 1},
		{2, DefaultMajority, 2},
		{3, DefaultMajority, 2},
		{4, DefaultMajority, 3},
		{5, DefaultMajority, 4},
		{6, DefaultMajority, 4},
		{3, 1.0, 3},
		{4, 0.5, 2},
		{3, 0.01, 1},
	}

	for _, tt := range tests {
		if got := RequiredVotes(tt.size, tt.majority); got != tt.want {
			t.Errorf("RequiredVotes(%d, %.2f) = %d, want %d", tt.size, tt.majority, got, tt.want)
		}
	}
}

func TestSmoother_ConfirmsAfterFullWindow(t *testing.T) {
	s := NewSmoother(3, DefaultMajority)

	if got := s.Push(SymbolFist); got != SymbolNone {
		t.Errorf("push 1: confirmed = %v, want none until the window is full", got)
	}
	if got := s.Push(SymbolFist); got != SymbolNone {
		t.Errorf("push 2: confirmed = %v, want none until the window is full", got)
	}
	if got := s.Push(SymbolFist); got != SymbolFist {
		t.Errorf("push 3: confirmed = %v, want fist", got)
	}
}

func TestSmoother_MajorityConfirmsForAllWindowSizes(t *testing.T) {
	for size := 1; size <= 9; size++ {
		s := NewSmoother(size, DefaultMajority)

		// Fill the window with jitter that is never the target symbol.
		for i := 0; i < size; i++ {
			if i%2 == 0 {
				s.Push(SymbolOpenPalm)
			} else {
				s.Push(SymbolTwoFinger)
			}
		}

		var got Symbol
		for i := 0; i < s.Required(); i++ {
			got = s.Push(SymbolFist)
		}

		if got != SymbolFist {
			t.Errorf("W=%d: confirmed = %v after %d identical symbols, want fist", size, got, s.Required())
		}
		if s.Len() > size {
			t.Errorf("W=%d: window length %d exceeds capacity", size, s.Len())
		}
	}
}

func TestSmoother_IgnoresSingleFrameJitter(t *testing.T) {
	s := NewSmoother(3, DefaultMajority)
	for i := 0; i < 3; i++ {
		s.Push(SymbolFist)
	}

	if got := s.Push(SymbolOpenPalm); got != SymbolFist {
		t.Errorf("single jitter frame changed confirmed symbol to %v", got)
	}
	if got := s.Push(SymbolOpenPalm); got != SymbolOpenPalm {
		t.Errorf("two of three frames should confirm open_palm, got %v", got)
	}
}

func TestSmoother_FastExitOnNone(t *testing.T) {
	t.Run("overrides a confirmed majority", func(t *testing.T) {
		s := NewSmoother(5, DefaultMajority)
		for i := 0; i < 5; i++ {
			s.Push(SymbolFist)
		}
		if s.Confirmed() != SymbolFist {
			t.Fatalf("setup: confirmed = %v, want fist", s.Confirmed())
		}

		if got := s.Push(SymbolNone); got != SymbolNone {
			t.Errorf("confirmed = %v after raw none, want none", got)
		}
	})

	t.Run("applies before the window is full", func(t *testing.T) {
		s := NewSmoother(3, DefaultMajority)
		s.Push(SymbolFist)
		if got := s.Push(SymbolNone); got != SymbolNone {
			t.Errorf("confirmed = %v, want none", got)
		}
	})

	t.Run("empty symbol counts as none", func(t *testing.T) {
		s := NewSmoother(1, DefaultMajority)
		s.Push(SymbolFist)
		if got := s.Push(""); got != SymbolNone {
			t.Errorf("confirmed = %v, want none", got)
		}
	})

	t.Run("recovers once the majority returns", func(t *testing.T) {
		s := NewSmoother(3, DefaultMajority)
		for i := 0; i < 3; i++ {
			s.Push(SymbolFist)
		}
		s.Push(SymbolNone)
		if got := s.Push(SymbolFist); got != SymbolFist {
			t.Errorf("confirmed = %v, want fist (2 of 3 frames)", got)
		}
	})
}

func TestSmoother_TieGoesToMostRecent(t *testing.T) {
	s := NewSmoother(4, 0.5)
	s.Push(SymbolFist)
	s.Push(SymbolFist)
	s.Push(SymbolOpenPalm)

	if got := s.Push(SymbolOpenPalm); got != SymbolOpenPalm {
		t.Errorf("confirmed = %v, want open_palm on a 2-2 tie", got)
	}
}

func TestSmoother_ClampsArguments(t *testing.T) {
	s := NewSmoother(0, 2.0)
	if s.Size() != 1 {
		t.Errorf("Size() = %d, want 1", s.Size())
	}
	if s.Required() != 1 {
		t.Errorf("Required() = %d, want 1", s.Required())
	}

	big := NewSmoother(100, -1)
	if big.Size() != MaxWindow {
		t.Errorf("Size() = %d, want %d", big.Size(), MaxWindow)
	}
	if big.Required() != RequiredVotes(MaxWindow, DefaultMajority) {
		t.Errorf("Required() = %d, want default majority", big.Required())
	}
}

func TestSmoother_Reset(t *testing.T) {
	s := NewSmoother(3, DefaultMajority)
	for i := 0; i < 3; i++ {
		s.Push(SymbolFist)
	}

	s.Reset()

	if s.Confirmed() != SymbolNone {
		t.Errorf("Confirmed() = %v after reset, want none", s.Confirmed())
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after reset, want 0", s.Len())
	}
	if got := s.Push(SymbolFist); got != SymbolNone {
		t.Errorf("window should refill after reset, got %v", got)
	}
}
