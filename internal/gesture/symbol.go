package gesture

import (
	"fmt"
	"strings"
)

// Symbol is a recognized static hand pose.
type Symbol string

// Known symbols. SymbolNone is the "no confident pose" sentinel.
const (
	SymbolNone        Symbol = "none"
	SymbolFist        Symbol = "fist"
	SymbolOpenPalm    Symbol = "open_palm"
	SymbolPointingUp  Symbol = "pointing_up"
	SymbolTwoFinger   Symbol = "two_finger"
	SymbolThreeFinger Symbol = "three_finger"
	SymbolThumbUp     Symbol = "thumb_up"
	SymbolThumbDown   Symbol = "thumb_down"
)

// Symbols lists every known symbol except SymbolNone.
var Symbols = []Symbol{
	SymbolFist,
	SymbolOpenPalm,
	SymbolPointingUp,
	SymbolTwoFinger,
	SymbolThreeFinger,
	SymbolThumbUp,
	SymbolThumbDown,
}

// categories maps MediaPipe gesture recognizer category names to symbols.
var categories = map[string]Symbol{
	"Closed_Fist": SymbolFist,
	"Open_Palm":   SymbolOpenPalm,
	"Pointing_Up": SymbolPointingUp,
	"Victory":     SymbolTwoFinger,
	"ILoveYou":    SymbolThreeFinger,
	"Thumb_Up":    SymbolThumbUp,
	"Thumb_Down":  SymbolThumbDown,
}

// FromCategory converts a recognizer category name to a Symbol.
// Unknown categories (including MediaPipe's "None") map to SymbolNone.
func FromCategory(name string) Symbol {
	if s, ok := categories[name]; ok {
		return s
	}
	return SymbolNone
}

// ParseSymbol parses a symbol name such as "fist" or "open_palm".
// Matching is case-insensitive and accepts dashes in place of underscores.
func ParseSymbol(s string) (Symbol, error) {
	norm := Symbol(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if norm == SymbolNone {
		return SymbolNone, nil
	}
	for _, known := range Symbols {
		if norm == known {
			return known, nil
		}
	}
	return SymbolNone, fmt.Errorf("unknown symbol %q", s)
}

// IsNone reports whether s is the sentinel symbol. The zero value counts as none.
func (s Symbol) IsNone() bool {
	return s == SymbolNone || s == ""
}

// String returns the symbol name.
func (s Symbol) String() string {
	if s == "" {
		return string(SymbolNone)
	}
	return string(s)
}

// UnmarshalText implements encoding.TextUnmarshaler so symbols can be decoded
// from YAML, JSON and environment variables.
func (s *Symbol) UnmarshalText(text []byte) error {
	parsed, err := ParseSymbol(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
